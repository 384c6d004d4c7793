package presence

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const tablePresence = "presence"

// Service tracks who is online.
type Service interface {
	Heartbeat(ctx context.Context, userID string) (*Presence, error)
	SetStatus(ctx context.Context, userID string, status Status, statusText *string) (*Presence, error)
	Get(ctx context.Context, userIDs []string) ([]*Presence, error)
	ListForChannel(ctx context.Context, userID, channelID string) ([]*Presence, error)
	ExpireStale(ctx context.Context) (int, error)
}

type service struct {
	repo     Repository
	tracker  Tracker
	resolver content.Resolver
	notifier *realtime.Notifier
	timeout  time.Duration
	log      zerolog.Logger
}

// NewService wires presence. tracker may be nil, then only the database decides liveness.
func NewService(repo Repository, tracker Tracker, resolver content.Resolver, notifier *realtime.Notifier, timeout time.Duration, log zerolog.Logger) Service {
	return &service{
		repo:     repo,
		tracker:  tracker,
		resolver: resolver,
		notifier: notifier,
		timeout:  timeout,
		log:      log.With().Str("component", "presence-service").Logger(),
	}
}

// Heartbeat marks the user as seen. A user coming back from offline turns online; away and dnd are kept.
func (s *service) Heartbeat(ctx context.Context, userID string) (*Presence, error) {
	current, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	next := *current
	next.LastSeenAt = now
	if next.Status == StatusOffline {
		next.Status = StatusOnline
		next.UpdatedAt = now
	}
	if err := s.repo.Save(ctx, &next); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "save presence")
	}
	if s.tracker != nil {
		if err := s.tracker.Touch(ctx, userID, s.timeout); err != nil {
			s.log.Debug().Err(err).Str("user_id", userID).Msg("touch presence key")
		}
	}
	if next.Status != current.Status {
		s.publish(ctx, &next, current)
	}
	return &next, nil
}

func (s *service) SetStatus(ctx context.Context, userID string, status Status, statusText *string) (*Presence, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, err.Error(), nil, "c6e1a9f3-2d7b-4b85-a0e4-8f3c5d9b1a27")
	}
	current, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	next := *current
	next.Status = status
	next.UpdatedAt = now
	if status != StatusOffline {
		next.LastSeenAt = now
	}
	if statusText != nil {
		text := strings.TrimSpace(*statusText)
		if utf8.RuneCountInString(text) > MaxStatusText {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "status text is too long", nil, "1b8d4f0a-6e3c-4a92-b7d5-e0a9c2f6b348")
		}
		next.StatusText = text
	}
	if err := s.repo.Save(ctx, &next); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "save presence")
	}
	if s.tracker != nil && status != StatusOffline {
		if err := s.tracker.Touch(ctx, userID, s.timeout); err != nil {
			s.log.Debug().Err(err).Str("user_id", userID).Msg("touch presence key")
		}
	}
	s.publish(ctx, &next, current)
	return &next, nil
}

func (s *service) current(ctx context.Context, userID string) (*Presence, error) {
	p, err := s.repo.Find(ctx, userID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return Offline(userID), nil
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load presence")
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, userIDs []string) ([]*Presence, error) {
	ids := dedupe(userIDs)
	if len(ids) == 0 {
		return []*Presence{}, nil
	}
	if len(ids) > MaxLookup {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "too many user ids", nil, "7f3a0c6e-9b2d-4e14-85a8-d1f6b0c3e972")
	}
	rows, err := s.repo.FindMany(ctx, ids)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load presence")
	}
	byID := make(map[string]*Presence, len(rows))
	for _, p := range rows {
		byID[p.UserID] = p
	}
	out := make([]*Presence, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		} else {
			out = append(out, Offline(id))
		}
	}
	return s.withLiveness(ctx, out), nil
}

func (s *service) ListForChannel(ctx context.Context, userID, channelID string) ([]*Presence, error) {
	ok, err := s.resolver.CanRead(ctx, content.Scope{Type: content.ScopeChannel, ID: channelID}, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check channel access")
	}
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "channel not found", nil, "e9b5d2a7-0c4f-4f63-a1e8-6b3d9c0f2a58")
	}
	rows, err := s.repo.ListForChannel(ctx, channelID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list channel presence")
	}
	if rows == nil {
		rows = []*Presence{}
	}
	return s.withLiveness(ctx, rows), nil
}

// withLiveness reports users whose liveness key expired as offline before the sweep catches up.
func (s *service) withLiveness(ctx context.Context, rows []*Presence) []*Presence {
	if s.tracker == nil || len(rows) == 0 {
		return rows
	}
	var check []string
	for _, p := range rows {
		if p.Status != StatusOffline {
			check = append(check, p.UserID)
		}
	}
	if len(check) == 0 {
		return rows
	}
	alive, err := s.tracker.Alive(ctx, check)
	if err != nil {
		s.log.Debug().Err(err).Msg("presence liveness lookup")
		return rows
	}
	for _, p := range rows {
		if p.Status != StatusOffline && !alive[p.UserID] {
			p.Status = StatusOffline
		}
	}
	return rows
}

func (s *service) ExpireStale(ctx context.Context) (int, error) {
	expired, err := s.repo.ExpireStale(ctx, time.Now().UTC().Add(-s.timeout))
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "expire presence")
	}
	for _, p := range expired {
		s.publish(ctx, p, nil)
	}
	if len(expired) > 0 {
		s.log.Info().Int("count", len(expired)).Msg("marked stale users offline")
	}
	return len(expired), nil
}

// publish sends the change to the user's own topic and to every channel they belong to.
func (s *service) publish(ctx context.Context, next, previous *Presence) {
	topics := []string{realtime.UserTopic(next.UserID)}
	scopes, err := s.resolver.ScopesForUser(ctx, next.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", next.UserID).Msg("list scopes for presence")
	}
	for _, scope := range scopes {
		if scope.Type == content.ScopeChannel {
			topics = append(topics, scope.Topic())
		}
	}
	var old any
	if previous != nil {
		old = previous
	}
	s.notifier.Emit(ctx, tablePresence, realtime.ChangeUpdate, next, old, topics...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
