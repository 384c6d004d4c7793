package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const maxTopicsPerSubscription = 100

// Notifier turns committed writes into change events. Publishing is best effort: a failed
// publish is logged and never fails the write that produced it.
type Notifier struct {
	publisher Publisher
	log       zerolog.Logger
}

func NewNotifier(publisher Publisher, log zerolog.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		log:       log.With().Str("component", "realtime-notifier").Logger(),
	}
}

// Emit publishes one change of table on every topic.
func (n *Notifier) Emit(ctx context.Context, table string, change ChangeType, record any, oldRecord any, topics ...string) {
	if n == nil || n.publisher == nil {
		return
	}
	payload, err := marshalOptional(record)
	if err != nil {
		n.log.Error().Err(err).Str("table", table).Msg("marshal realtime record")
		return
	}
	oldPayload, err := marshalOptional(oldRecord)
	if err != nil {
		n.log.Error().Err(err).Str("table", table).Msg("marshal realtime old record")
		return
	}

	now := time.Now().UTC()
	for _, topic := range topics {
		event := Event{
			ID:              idgen.New(idgen.PrefixRealtimeEvent),
			Topic:           topic,
			Table:           table,
			Type:            change,
			Record:          payload,
			OldRecord:       oldPayload,
			CommitTimestamp: now,
		}
		if err := n.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
			n.log.Warn().Err(err).Str("topic", topic).Str("table", table).Msg("publish realtime event")
		}
	}
}

func marshalOptional(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Service authorizes and opens change feed subscriptions.
type Service interface {
	Subscribe(ctx context.Context, userID string, topics []string) (Subscription, error)
}

type service struct {
	broker   Broker
	resolver content.Resolver
	log      zerolog.Logger
}

func NewService(broker Broker, resolver content.Resolver, log zerolog.Logger) Service {
	return &service{
		broker:   broker,
		resolver: resolver,
		log:      log.With().Str("component", "realtime-service").Logger(),
	}
}

// Subscribe checks every topic before any event is delivered and again whenever its membership changes.
func (s *service) Subscribe(ctx context.Context, userID string, topics []string) (Subscription, error) {
	topics = dedupe(topics)
	if len(topics) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "at least one topic is required", nil, "0b0cf7a4-3c55-4df7-9b8e-5f0c8f3d2a10")
	}
	if len(topics) > maxTopicsPerSubscription {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "too many topics", nil, "3f3c6c11-98a8-4f0e-8b4c-4f5a2a7f0e21")
	}

	for _, topic := range topics {
		kind, id, ok := SplitTopic(topic)
		if !ok {
			return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid topic", nil, "9e2d5b0c-61c4-4b5e-a1d4-7c4b8b9d3e32", map[string]any{"topic": topic})
		}
		allowed, err := s.canRead(ctx, userID, kind, id)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "authorize topic")
		}
		if !allowed {
			return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "topic not accessible", nil, "c7a1e3f2-7d0b-4f52-9a7e-2b1d6c8e4f43", map[string]any{"topic": topic})
		}
	}

	sub, err := s.broker.Subscribe(ctx, topics)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "open subscription", err, "e4b7f0d1-2c3a-4e9b-8f6d-1a2b3c4d5e54")
	}
	s.log.Debug().Str("user_id", userID).Strs("topics", topics).Str("subscription_id", sub.ID()).Msg("subscription opened")
	return s.guard(ctx, userID, sub), nil
}

func (s *service) canRead(ctx context.Context, userID, kind, id string) (bool, error) {
	switch kind {
	case "user":
		return id == userID, nil
	case "channel":
		return s.resolver.CanRead(ctx, content.Scope{Type: content.ScopeChannel, ID: id}, userID)
	case "conversation":
		return s.resolver.CanRead(ctx, content.Scope{Type: content.ScopeConversation, ID: id}, userID)
	}
	return false, nil
}

func dedupe(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
