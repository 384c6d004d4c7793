package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExcludesConcurrentHolders(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "sweep:orphan-files", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "sweep:orphan-files", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.TryLock(ctx, "sweep:tts-backfill", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	unlock()
	unlock()
	_, ok, err = l.TryLock(ctx, "sweep:orphan-files", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
