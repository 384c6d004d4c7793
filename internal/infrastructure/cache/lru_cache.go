package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/domain/translation"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// expiringLRU is a size bounded LRU whose entries also expire.
type expiringLRU struct {
	cache *lru.Cache
	now   func() time.Time
}

func newExpiringLRU(size int) (*expiringLRU, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &expiringLRU{cache: c, now: time.Now}, nil
}

func (c *expiringLRU) get(key string) (any, bool) {
	raw, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	e := raw.(entry)
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.cache.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (c *expiringLRU) set(key string, value any, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(key, e)
}

// VectorCache keeps query embeddings in process memory.
type VectorCache struct {
	lru *expiringLRU
}

var _ embedding.VectorCache = (*VectorCache)(nil)

func NewVectorCache(size int) (*VectorCache, error) {
	c, err := newExpiringLRU(size)
	if err != nil {
		return nil, err
	}
	return &VectorCache{lru: c}, nil
}

func (c *VectorCache) Get(key string) ([]float32, bool) {
	v, ok := c.lru.get(key)
	if !ok {
		return nil, false
	}
	return v.([]float32), true
}

func (c *VectorCache) Set(key string, v []float32, ttl time.Duration) {
	c.lru.set(key, v, ttl)
}

// MemoryTranslationCache is the translation cache used without Redis.
type MemoryTranslationCache struct {
	lru *expiringLRU
}

var _ translation.Cache = (*MemoryTranslationCache)(nil)

func NewMemoryTranslationCache(size int) (*MemoryTranslationCache, error) {
	c, err := newExpiringLRU(size)
	if err != nil {
		return nil, err
	}
	return &MemoryTranslationCache{lru: c}, nil
}

func (c *MemoryTranslationCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.lru.get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (c *MemoryTranslationCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.lru.set(key, value, ttl)
	return nil
}
