package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCacheExpires(t *testing.T) {
	c, err := NewVectorCache(4)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.lru.now = func() time.Time { return now }

	c.Set("m:abc", []float32{1, 2}, time.Minute)
	v, ok := c.Get("m:abc")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("m:abc")
	assert.False(t, ok)
}

func TestVectorCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewVectorCache(2)
	require.NoError(t, err)

	c.Set("a", []float32{1}, 0)
	c.Set("b", []float32{2}, 0)
	_, _ = c.Get("a")
	c.Set("c", []float32{3}, 0)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestMemoryTranslationCache(t *testing.T) {
	c, err := NewMemoryTranslationCache(8)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", `{"text":"hola"}`, time.Hour))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"text":"hola"}`, v)
}
