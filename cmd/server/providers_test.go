package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/infrastructure/broker"
	"github.com/huddlehq/huddle-server/internal/infrastructure/cache"
	"github.com/huddlehq/huddle-server/internal/infrastructure/llm"
	"github.com/huddlehq/huddle-server/internal/infrastructure/translator"
	"github.com/huddlehq/huddle-server/internal/infrastructure/voiceclone"
)

func TestNewExternalProvidersLeavesUnconfiguredNil(t *testing.T) {
	ext := newExternalProviders(&config.Config{}, zerolog.Nop())

	assert.True(t, ext.chat == nil)
	assert.True(t, ext.embedder == nil)
	assert.True(t, ext.translator == nil)
	assert.True(t, ext.cloner == nil)
	assert.True(t, ext.synthesizer == nil)
}

func TestNewExternalProvidersPrefersVoiceProviderForSpeech(t *testing.T) {
	cfg := &config.Config{
		OpenAIAPIKey:      "sk-test",
		TranslationAPIKey: "deepl-key",
		TranslationAPIURL: "https://api-free.deepl.com",
		ProviderTimeout:   time.Second,
	}

	ext := newExternalProviders(cfg, zerolog.Nop())
	assert.IsType(t, &llm.ChatModel{}, ext.chat)
	assert.IsType(t, &llm.Speech{}, ext.synthesizer)
	assert.IsType(t, &translator.DeepL{}, ext.translator)
	assert.True(t, ext.cloner == nil)

	cfg.VoiceAPIKey = "eleven-key"
	ext = newExternalProviders(cfg, zerolog.Nop())
	assert.IsType(t, &voiceclone.ElevenLabs{}, ext.cloner)
	assert.IsType(t, &voiceclone.ElevenLabs{}, ext.synthesizer)
}

func TestNewInfrastructureFallsBackWithoutRedis(t *testing.T) {
	cfg := &config.Config{
		StorageBackend:     "local",
		LocalStoragePath:   t.TempDir(),
		EmbeddingCacheSize: 16,
		RealtimeBuffer:     8,
	}

	infra, cleanup, err := newInfrastructure(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, infra.redis)
	assert.True(t, infra.tracker == nil)
	assert.IsType(t, &broker.Hub{}, infra.broker)
	assert.IsType(t, &cache.LocalLocker{}, infra.locker)
	assert.IsType(t, &cache.MemoryTranslationCache{}, infra.translations)
	assert.NoError(t, infra.storage.Health(context.Background()))
}
