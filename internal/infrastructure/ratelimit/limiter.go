// Package ratelimit throttles callers with one token bucket per key.
package ratelimit

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const defaultMaxKeys = 10000

// KeyedLimiter keeps a token bucket per key. The least recently used buckets are evicted once
// maxKeys is reached, which resets their budget.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache
	limit    rate.Limit
	burst    int
}

// NewPerMinute allows perMinute events per key per minute with a burst of the same size.
func NewPerMinute(perMinute float64, maxKeys int) *KeyedLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	burst := int(perMinute)
	if burst < 1 {
		burst = 1
	}
	return New(rate.Limit(perMinute/60), burst, maxKeys)
}

func New(limit rate.Limit, burst, maxKeys int) *KeyedLimiter {
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	cache, _ := lru.New(maxKeys)
	return &KeyedLimiter{limiters: cache, limit: limit, burst: burst}
}

func (l *KeyedLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(key, limiter)
	return limiter
}

// Allow reports whether one more event for key fits in its budget.
func (l *KeyedLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}
