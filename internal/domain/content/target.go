// Package content describes the polymorphic targets that reactions, attachments, translations,
// embeddings and speech recordings hang off, and the scopes (channels, conversations) that govern
// who can read them.
package content

import (
	"context"
	"fmt"
	"time"
)

// TargetType names a table holding user authored text.
type TargetType string

const (
	TargetPost                      TargetType = "post"
	TargetPostThreadComment         TargetType = "post_thread_comment"
	TargetMessage                   TargetType = "message"
	TargetConversationThreadComment TargetType = "conversation_thread_comment"
)

// TargetTypes lists every valid target type.
var TargetTypes = []TargetType{
	TargetPost,
	TargetPostThreadComment,
	TargetMessage,
	TargetConversationThreadComment,
}

// ParseTargetType validates a raw target type.
func ParseTargetType(raw string) (TargetType, error) {
	for _, t := range TargetTypes {
		if string(t) == raw {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target type %q", raw)
}

// Target identifies one piece of content.
type Target struct {
	Type TargetType `json:"target_type"`
	ID   string     `json:"target_id"`
}

func (t Target) String() string {
	return string(t.Type) + ":" + t.ID
}

// ScopeType names a container that grants read access.
type ScopeType string

const (
	ScopeChannel      ScopeType = "channel"
	ScopeConversation ScopeType = "conversation"
)

// Scope is a channel or a conversation.
type Scope struct {
	Type ScopeType `json:"scope_type"`
	ID   string    `json:"scope_id"`
}

// Topic returns the realtime topic that carries changes inside the scope.
func (s Scope) Topic() string {
	return string(s.Type) + ":" + s.ID
}

// Item is a resolved piece of content with the data downstream pipelines need.
type Item struct {
	Target    Target
	Scope     Scope
	ParentID  string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

// Resolver looks content and scopes up across tables.
type Resolver interface {
	// Resolve returns the item behind a target or a NOT_FOUND error.
	Resolve(ctx context.Context, target Target) (*Item, error)
	// IsMember reports whether userID may write inside scope. Archived channels accept no writes.
	IsMember(ctx context.Context, scope Scope, userID string) (bool, error)
	// CanRead is IsMember widened to public channels.
	CanRead(ctx context.Context, scope Scope, userID string) (bool, error)
	// IsModerator reports whether userID may remove other people's content inside scope.
	IsModerator(ctx context.Context, scope Scope, userID string) (bool, error)
	// ScopesForUser lists every channel and conversation userID belongs to.
	ScopesForUser(ctx context.Context, userID string) ([]Scope, error)
	// Recent returns the newest items of a scope (or of one thread when parent is set), oldest first.
	Recent(ctx context.Context, scope Scope, parent *Target, limit int) ([]Item, error)
}

// Cleaner removes rows that reference targets without a foreign key.
type Cleaner interface {
	DeleteDependents(ctx context.Context, targets []Target) error
}
