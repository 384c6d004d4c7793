package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsLocalStorage())
	assert.False(t, cfg.IsS3Storage())
	assert.Equal(t, 1536, cfg.EmbeddingDimensions)
	assert.Len(t, cfg.SweepSchedules(), 4)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "auth requires issuer",
			env:     map[string]string{"AUTH_ENABLED": "true", "AUTH_JWKS_URL": "http://jwks"},
			wantErr: "AUTH_ISSUER",
		},
		{
			name:    "auth requires jwks",
			env:     map[string]string{"AUTH_ENABLED": "true", "AUTH_ISSUER": "http://issuer"},
			wantErr: "AUTH_JWKS_URL",
		},
		{
			name:    "unknown storage backend",
			env:     map[string]string{"STORAGE_BACKEND": "gcs"},
			wantErr: "STORAGE_BACKEND",
		},
		{
			name:    "required s3 without bucket",
			env:     map[string]string{"STORAGE_BACKEND": "s3", "STORAGE_REQUIRED": "true"},
			wantErr: "S3_BUCKET",
		},
		{
			name:    "invalid cron expression",
			env:     map[string]string{"SWEEP_TTS_SCHEDULE": "every ten minutes"},
			wantErr: "tts-backfill",
		},
		{
			name:    "zero dimensions",
			env:     map[string]string{"EMBEDDING_DIMENSIONS": "0"},
			wantErr: "EMBEDDING_DIMENSIONS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadS3Optional(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "S3")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsS3Storage())
}
