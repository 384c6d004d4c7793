// Package broker fans realtime events out to subscribers, in process or across replicas through Redis.
package broker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
)

const defaultBuffer = 64

// Hub delivers events to the subscriptions of this process.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	topics map[string]map[string]*subscription
	buffer int
	log    zerolog.Logger
}

var _ realtime.Broker = (*Hub)(nil)

func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]*subscription),
		topics: make(map[string]map[string]*subscription),
		buffer: buffer,
		log:    log.With().Str("component", "realtime-hub").Logger(),
	}
}

// Publish never blocks. A subscriber whose buffer is full loses its backlog and gets one RESYNC event.
func (h *Hub) Publish(_ context.Context, event realtime.Event) error {
	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.topics[event.Topic]))
	for _, sub := range h.topics[event.Topic] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if !sub.deliver(event) {
			h.log.Warn().Str("subscription_id", sub.id).Str("topic", event.Topic).Msg("subscriber lagging, sent resync")
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, topics []string) (realtime.Subscription, error) {
	sub := &subscription{
		id:     idgen.New(idgen.PrefixRealtimeEvent),
		topics: topics,
		events: make(chan realtime.Event, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	for _, topic := range topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[string]*subscription)
		}
		h.topics[topic][sub.id] = sub
	}
	h.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			_ = sub.Close()
		}()
	}
	return sub, nil
}

// Count returns the number of open subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub.id)
	for _, topic := range sub.topics {
		delete(h.topics[topic], sub.id)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
	}
}

type subscription struct {
	id     string
	topics []string
	events chan realtime.Event
	hub    *Hub

	mu     sync.Mutex
	closed bool
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Events() <-chan realtime.Event {
	return s.events
}

func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.hub.remove(s)
	return nil
}

// deliver reports false when the buffer overflowed and was replaced by a resync marker.
func (s *subscription) deliver(event realtime.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.events <- event:
		return true
	default:
	}

drain:
	for {
		select {
		case <-s.events:
		default:
			break drain
		}
	}
	s.events <- realtime.Event{
		ID:              idgen.New(idgen.PrefixRealtimeEvent),
		Topic:           event.Topic,
		Type:            realtime.ChangeResync,
		CommitTimestamp: time.Now().UTC(),
	}
	return false
}
