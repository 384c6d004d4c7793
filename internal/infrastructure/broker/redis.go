package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/realtime"
)

const redisChannel = "huddle:realtime"

// RedisBroker publishes through Redis so every replica's Hub sees every event.
type RedisBroker struct {
	client redis.UniversalClient
	hub    *Hub
	log    zerolog.Logger

	startOnce sync.Once
	wg        sync.WaitGroup
}

var _ realtime.Broker = (*RedisBroker)(nil)

func NewRedisBroker(client redis.UniversalClient, hub *Hub, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		hub:    hub,
		log:    log.With().Str("component", "realtime-redis").Logger(),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, event realtime.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, redisChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topics []string) (realtime.Subscription, error) {
	return b.hub.Subscribe(ctx, topics)
}

// Start relays Redis messages into the local hub until ctx is done.
func (b *RedisBroker) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		pubsub := b.client.Subscribe(ctx, redisChannel)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer pubsub.Close()
			b.run(ctx, pubsub.Channel())
		}()
		b.log.Info().Str("channel", redisChannel).Msg("realtime relay started")
	})
}

// Wait blocks until the relay stopped.
func (b *RedisBroker) Wait() {
	b.wg.Wait()
}

func (b *RedisBroker) run(ctx context.Context, messages <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event realtime.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Msg("drop malformed realtime message")
				continue
			}
			_ = b.hub.Publish(ctx, event)
		}
	}
}
