package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUniversalOptions(t *testing.T) {
	opts, err := buildUniversalOptions("redis://:secret@cache-1:6379/2")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache-1:6379"}, opts.Addrs)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildUniversalOptions("node-a:7000, node-b:7001")
	require.NoError(t, err)
	assert.Equal(t, []string{"node-a:7000", "node-b:7001"}, opts.Addrs)

	_, err = buildUniversalOptions(" , ")
	assert.Error(t, err)
}
