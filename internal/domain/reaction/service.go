package reaction

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const tableReactions = "emoji_reactions"

// Service manages emoji reactions on posts, messages and thread comments.
type Service interface {
	Toggle(ctx context.Context, userID string, target content.Target, emoji string) (*ToggleResult, error)
	Add(ctx context.Context, userID string, target content.Target, emoji string) ([]Summary, error)
	Remove(ctx context.Context, userID string, target content.Target, emoji string) ([]Summary, error)
	List(ctx context.Context, userID string, target content.Target) ([]Summary, error)
}

type service struct {
	repo     Repository
	resolver content.Resolver
	notifier *realtime.Notifier
	log      zerolog.Logger
}

func NewService(repo Repository, resolver content.Resolver, notifier *realtime.Notifier, log zerolog.Logger) Service {
	return &service{
		repo:     repo,
		resolver: resolver,
		notifier: notifier,
		log:      log.With().Str("component", "reaction-service").Logger(),
	}
}

func (s *service) Toggle(ctx context.Context, userID string, target content.Target, emoji string) (*ToggleResult, error) {
	item, e, err := s.prepareWrite(ctx, userID, target, emoji)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Delete(ctx, target, userID, e)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "remove reaction")
	}
	added := removed == nil
	if added {
		if _, err := s.insert(ctx, item, userID, e); err != nil {
			return nil, err
		}
	} else {
		s.notifier.Emit(ctx, tableReactions, realtime.ChangeDelete, nil, removed, item.Scope.Topic())
	}

	summary, err := s.summary(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Added: added, Emoji: e, Summary: summary}, nil
}

func (s *service) Add(ctx context.Context, userID string, target content.Target, emoji string) ([]Summary, error) {
	item, e, err := s.prepareWrite(ctx, userID, target, emoji)
	if err != nil {
		return nil, err
	}
	if _, err := s.insert(ctx, item, userID, e); err != nil {
		return nil, err
	}
	return s.summary(ctx, userID, target)
}

func (s *service) Remove(ctx context.Context, userID string, target content.Target, emoji string) ([]Summary, error) {
	item, e, err := s.prepareWrite(ctx, userID, target, emoji)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Delete(ctx, target, userID, e)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "remove reaction")
	}
	if removed != nil {
		s.notifier.Emit(ctx, tableReactions, realtime.ChangeDelete, nil, removed, item.Scope.Topic())
	}
	return s.summary(ctx, userID, target)
}

func (s *service) List(ctx context.Context, userID string, target content.Target) ([]Summary, error) {
	item, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	ok, err := s.resolver.CanRead(ctx, item.Scope, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check read access")
	}
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "content not found", nil, "7b0e4c9a-3f6d-4a12-8e5b-c1d9f2a6e437")
	}
	return s.summary(ctx, userID, target)
}

// insert is idempotent: an existing reaction is left untouched.
func (s *service) insert(ctx context.Context, item *content.Item, userID, emoji string) (*Reaction, error) {
	r := &Reaction{
		ID:         idgen.New(idgen.PrefixReaction),
		TargetType: item.Target.Type,
		TargetID:   item.Target.ID,
		UserID:     userID,
		Emoji:      emoji,
		CreatedAt:  time.Now().UTC(),
	}
	created, err := s.repo.Insert(ctx, r)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "add reaction")
	}
	if created {
		s.notifier.Emit(ctx, tableReactions, realtime.ChangeInsert, r, nil, item.Scope.Topic())
	}
	return r, nil
}

func (s *service) prepareWrite(ctx context.Context, userID string, target content.Target, emoji string) (*content.Item, string, error) {
	e, ok := NormalizeEmoji(emoji)
	if !ok {
		return nil, "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "emoji must be a :shortcode: or a single emoji", nil, "2f8a5d1c-6e9b-4c73-a0d4-b7e3c8f1a926")
	}
	item, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		return nil, "", err
	}
	member, err := s.resolver.IsMember(ctx, item.Scope, userID)
	if err != nil {
		return nil, "", platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check membership")
	}
	if !member {
		return nil, "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only members can react", nil, "e4c1b8f5-0d3a-4e96-9b2c-5a8f1d6e3c07")
	}
	return item, e, nil
}

func (s *service) summary(ctx context.Context, userID string, target content.Target) ([]Summary, error) {
	rows, err := s.repo.ListForTarget(ctx, target)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list reactions")
	}
	return Summarize(rows, userID), nil
}
