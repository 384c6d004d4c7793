package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledReturnsNoopProvider(t *testing.T) {
	p, err := Init(context.Background(), DefaultConfig("huddle-test"))
	require.NoError(t, err)
	assert.NotNil(t, p.Tracer)
	assert.NotNil(t, p.Meter)
	assert.Nil(t, p.TracerProvider)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		host     string
		insecure bool
	}{
		{"otel-collector:4318", "otel-collector:4318", false},
		{"http://otel-collector:4318", "otel-collector:4318", true},
		{"https://otlp.example.com", "otlp.example.com", false},
	}
	for _, tt := range tests {
		host, insecure, err := parseEndpoint(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.host, host)
		assert.Equal(t, tt.insecure, insecure)
	}

	_, _, err := parseEndpoint("  ")
	assert.Error(t, err)
}
