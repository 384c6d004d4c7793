package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huddlehq/huddle-server/internal/domain/translation"
)

// TranslationCache keeps provider results in Redis.
type TranslationCache struct {
	client redis.UniversalClient
}

var _ translation.Cache = (*TranslationCache)(nil)

func NewTranslationCache(client redis.UniversalClient) *TranslationCache {
	return &TranslationCache{client: client}
}

func (c *TranslationCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+"translation:"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get value from cache: %w", err)
	}
	return val, true, nil
}

func (c *TranslationCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, keyPrefix+"translation:"+key, value, ttl).Err()
}
