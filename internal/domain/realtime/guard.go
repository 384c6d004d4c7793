package realtime

import (
	"context"
	"sync"
)

// accessTables hold the rows that decide who may read a channel or conversation topic.
var accessTables = map[string]bool{
	"channels":                  true,
	"channel_members":           true,
	"conversation_participants": true,
}

// guardedSubscription re-checks a topic whenever its access rows change, so a removed member stops
// receiving the topic without reconnecting. The event that revokes access is still delivered.
type guardedSubscription struct {
	inner  Subscription
	events chan Event
	done   chan struct{}
	once   sync.Once

	// revoked is owned by the run goroutine.
	revoked map[string]bool
}

func (s *service) guard(ctx context.Context, userID string, inner Subscription) *guardedSubscription {
	g := &guardedSubscription{
		inner:   inner,
		events:  make(chan Event),
		done:    make(chan struct{}),
		revoked: map[string]bool{},
	}
	go g.run(ctx, s, userID)
	return g
}

func (g *guardedSubscription) ID() string {
	return g.inner.ID()
}

func (g *guardedSubscription) Events() <-chan Event {
	return g.events
}

func (g *guardedSubscription) Close() error {
	g.once.Do(func() { close(g.done) })
	return g.inner.Close()
}

func (g *guardedSubscription) run(ctx context.Context, s *service, userID string) {
	defer close(g.events)
	for {
		var (
			event Event
			open  bool
		)
		select {
		case <-g.done:
			return
		case event, open = <-g.inner.Events():
			if !open {
				return
			}
		}

		wasRevoked := g.revoked[event.Topic]
		if accessTables[event.Table] {
			g.recheck(ctx, s, userID, event.Topic)
		}
		if wasRevoked && g.revoked[event.Topic] {
			continue
		}

		select {
		case g.events <- event:
		case <-g.done:
			return
		}
	}
}

func (g *guardedSubscription) recheck(ctx context.Context, s *service, userID, topic string) {
	kind, id, ok := SplitTopic(topic)
	if !ok || kind == "user" {
		return
	}
	allowed, err := s.canRead(ctx, userID, kind, id)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("topic", topic).Msg("re-check topic access")
		return
	}
	if !allowed && !g.revoked[topic] {
		s.log.Debug().Str("user_id", userID).Str("topic", topic).Str("subscription_id", g.inner.ID()).Msg("topic access revoked")
	}
	g.revoked[topic] = !allowed
}
