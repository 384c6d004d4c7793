package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huddlehq/huddle-server/internal/domain/presence"
)

// PresenceTracker marks users alive with expiring keys.
type PresenceTracker struct {
	client redis.UniversalClient
}

var _ presence.Tracker = (*PresenceTracker)(nil)

func NewPresenceTracker(client redis.UniversalClient) *PresenceTracker {
	return &PresenceTracker{client: client}
}

func aliveKey(userID string) string {
	return keyPrefix + "presence:" + userID
}

func (t *PresenceTracker) Touch(ctx context.Context, userID string, ttl time.Duration) error {
	return t.client.Set(ctx, aliveKey(userID), time.Now().UTC().Unix(), ttl).Err()
}

func (t *PresenceTracker) Alive(ctx context.Context, userIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	pipe := t.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.Exists(ctx, aliveKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check presence keys: %w", err)
	}
	for i, id := range userIDs {
		out[id] = cmds[i].Val() > 0
	}
	return out, nil
}
