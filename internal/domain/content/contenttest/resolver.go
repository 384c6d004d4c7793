// Package contenttest provides an in-memory content.Resolver for domain tests.
package contenttest

import (
	"context"
	"sort"
	"sync"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// Resolver keeps items and memberships in maps.
type Resolver struct {
	mu           sync.Mutex
	Items        map[content.Target]content.Item
	Members      map[content.Scope]map[string]bool
	PublicScopes map[content.Scope]bool
	Moderators   map[content.Scope]map[string]bool
	Deleted      []content.Target
}

func NewResolver() *Resolver {
	return &Resolver{
		Items:        map[content.Target]content.Item{},
		Members:      map[content.Scope]map[string]bool{},
		PublicScopes: map[content.Scope]bool{},
		Moderators:   map[content.Scope]map[string]bool{},
	}
}

// AddMember grants userID membership of scope.
func (r *Resolver) AddMember(scope content.Scope, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Members[scope] == nil {
		r.Members[scope] = map[string]bool{}
	}
	r.Members[scope][userID] = true
}

// RemoveMember revokes userID's membership of scope.
func (r *Resolver) RemoveMember(scope content.Scope, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Members[scope], userID)
}

// AddModerator grants userID membership and moderation rights on scope.
func (r *Resolver) AddModerator(scope content.Scope, userID string) {
	r.AddMember(scope, userID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Moderators[scope] == nil {
		r.Moderators[scope] = map[string]bool{}
	}
	r.Moderators[scope][userID] = true
}

// AddItem registers an item.
func (r *Resolver) AddItem(item content.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items[item.Target] = item
}

func (r *Resolver) Resolve(ctx context.Context, target content.Target) (*content.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.Items[target]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "content not found", nil, "contenttest-not-found")
	}
	return &item, nil
}

func (r *Resolver) IsMember(_ context.Context, scope content.Scope, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Members[scope][userID], nil
}

func (r *Resolver) CanRead(ctx context.Context, scope content.Scope, userID string) (bool, error) {
	r.mu.Lock()
	public := r.PublicScopes[scope]
	r.mu.Unlock()
	if public {
		return true, nil
	}
	return r.IsMember(ctx, scope, userID)
}

func (r *Resolver) IsModerator(_ context.Context, scope content.Scope, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Moderators[scope][userID], nil
}

func (r *Resolver) ScopesForUser(_ context.Context, userID string) ([]content.Scope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var scopes []content.Scope
	for scope, members := range r.Members {
		if members[userID] {
			scopes = append(scopes, scope)
		}
	}
	sort.Slice(scopes, func(i, j int) bool { return scopes[i].ID < scopes[j].ID })
	return scopes, nil
}

func (r *Resolver) Recent(_ context.Context, scope content.Scope, parent *content.Target, limit int) ([]content.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []content.Item
	for _, item := range r.Items {
		if item.Scope != scope {
			continue
		}
		if parent != nil && item.Target != *parent && item.ParentID != parent.ID {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Target.ID < items[j].Target.ID })
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (r *Resolver) DeleteDependents(_ context.Context, targets []content.Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, targets...)
	return nil
}
