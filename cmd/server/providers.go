package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/assistant"
	"github.com/huddlehq/huddle-server/internal/domain/channel"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/conversation"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/post"
	"github.com/huddlehq/huddle-server/internal/domain/presence"
	"github.com/huddlehq/huddle-server/internal/domain/reaction"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/domain/sweep"
	"github.com/huddlehq/huddle-server/internal/domain/translation"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/infrastructure/auth"
	"github.com/huddlehq/huddle-server/internal/infrastructure/broker"
	"github.com/huddlehq/huddle-server/internal/infrastructure/cache"
	"github.com/huddlehq/huddle-server/internal/infrastructure/crontab"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database"
	"github.com/huddlehq/huddle-server/internal/infrastructure/llm"
	"github.com/huddlehq/huddle-server/internal/infrastructure/metrics"
	"github.com/huddlehq/huddle-server/internal/infrastructure/ratelimit"
	"github.com/huddlehq/huddle-server/internal/infrastructure/storage"
	"github.com/huddlehq/huddle-server/internal/infrastructure/translator"
	"github.com/huddlehq/huddle-server/internal/infrastructure/voiceclone"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
	"github.com/huddlehq/huddle-server/pkg/observability"
	"github.com/huddlehq/huddle-server/pkg/observability/jobs"
	"github.com/huddlehq/huddle-server/pkg/observability/middleware"
	"github.com/huddlehq/huddle-server/pkg/telemetry"
)

const (
	translationMemoryEntries = 4096
	rateLimiterKeys          = 10000
)

// repositories groups the gorm repositories; wire fills it from RepositoryProvider.
type repositories struct {
	Users         user.Repository
	Channels      channel.Repository
	Posts         post.Repository
	Conversations conversation.Repository
	Files         file.Repository
	Reactions     reaction.Repository
	Translations  translation.Repository
	Embeddings    embedding.Repository
	Recordings    voice.Repository
	Presence      presence.Repository
	Resolver      content.Resolver
	Cleaner       content.Cleaner
}

// infrastructure holds the shared clients. Redis backed members fall back to in-process
// implementations when REDIS_URL is empty.
type infrastructure struct {
	redis        redis.UniversalClient
	broker       realtime.Broker
	locker       sweep.Locker
	tracker      presence.Tracker
	translations translation.Cache
	vectors      embedding.VectorCache
	storage      storage.Backend
}

// externalProviders are the third-party APIs. Unconfigured providers stay nil interfaces.
type externalProviders struct {
	chat        assistant.ChatModel
	embedder    embedding.Embedder
	translator  translation.Translator
	cloner      voice.Cloner
	synthesizer voice.Synthesizer
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, dbCfg database.Config, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	if err := database.SeedAssistant(ctx, db, cfg.AssistantUserID, cfg.AssistantName, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, func(), error) {
	validator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return validator, func() {
		if validator != nil {
			validator.Close()
		}
	}, nil
}

func newTelemetry(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*observability.Provider, func(), error) {
	otelCfg := observability.DefaultConfig(cfg.ServiceName)
	otelCfg.ServiceVersion = cfg.ServiceVersion
	otelCfg.Environment = cfg.Environment
	otelCfg.TracingEnabled = cfg.EnableTracing
	otelCfg.MetricsEnabled = cfg.EnableMetrics
	otelCfg.SamplingRate = cfg.SamplingRate
	if cfg.OTLPEndpoint != "" {
		otelCfg.OTLPEndpoint = cfg.OTLPEndpoint
	}

	provider, err := observability.Init(ctx, otelCfg)
	if err != nil {
		return nil, nil, err
	}
	return provider, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}, nil
}

func newInfrastructure(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*infrastructure, func(), error) {
	vectors, err := cache.NewVectorCache(cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, nil, err
	}
	backend, err := storage.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	infra := &infrastructure{vectors: vectors, storage: backend}
	hub := broker.NewHub(cfg.RealtimeBuffer, log)

	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, realtime fan-out and sweep locks are process local")
		memoryCache, err := cache.NewMemoryTranslationCache(translationMemoryEntries)
		if err != nil {
			return nil, nil, err
		}
		infra.broker = hub
		infra.locker = cache.NewLocalLocker()
		infra.translations = memoryCache
		return infra, func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		return nil, nil, err
	}
	brokerCtx, cancel := context.WithCancel(ctx)
	redisBroker := broker.NewRedisBroker(client, hub, log)
	redisBroker.Start(brokerCtx)

	infra.redis = client
	infra.broker = redisBroker
	infra.locker = cache.NewRedisLocker(client, log)
	infra.tracker = cache.NewPresenceTracker(client)
	infra.translations = cache.NewTranslationCache(client)

	return infra, func() {
		cancel()
		redisBroker.Wait()
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("close redis client")
		}
	}, nil
}

func newExternalProviders(cfg *config.Config, log zerolog.Logger) externalProviders {
	var ext externalProviders

	if cfg.LLMEnabled() {
		client := llm.NewClient(cfg)
		ext.chat = llm.NewChatModel(client, cfg)
		ext.embedder = llm.NewEmbedder(client, cfg)
		ext.synthesizer = llm.NewSpeech(client, cfg)
	} else {
		log.Warn().Msg("no language model configured, assistant and search are disabled")
	}

	if cfg.TranslationAPIKey != "" {
		ext.translator = translator.NewDeepL(cfg.TranslationAPIURL, cfg.TranslationAPIKey, cfg.ProviderTimeout)
	}

	if cfg.VoiceAPIKey != "" {
		elevenLabs := voiceclone.NewElevenLabs(cfg.VoiceAPIURL, cfg.VoiceAPIKey, cfg.VoiceModel, cfg.VoiceDefaultVoiceID, cfg.ProviderTimeout)
		ext.cloner = elevenLabs
		ext.synthesizer = elevenLabs
	}
	return ext
}

func newServices(
	cfg *config.Config,
	log zerolog.Logger,
	repos repositories,
	infra *infrastructure,
	ext externalProviders,
	tel *observability.Provider,
) (handlers.Services, error) {
	notifier := realtime.NewNotifier(infra.broker, log)

	fileService := file.NewService(cfg, repos.Files, infra.storage, repos.Resolver, log)
	userService := user.NewService(repos.Users, fileService, log)
	channelService := channel.NewService(repos.Channels, repos.Cleaner, notifier, log)
	postService := post.NewService(repos.Posts, repos.Resolver, fileService, repos.Cleaner, notifier, log)
	conversationService := conversation.NewService(repos.Conversations, userService, fileService, repos.Cleaner, notifier, log)
	reactionService := reaction.NewService(repos.Reactions, repos.Resolver, notifier, log)
	translationService := translation.NewService(cfg, repos.Translations, ext.translator, infra.translations, repos.Resolver, notifier, log)
	embeddingService := embedding.NewService(cfg, repos.Embeddings, ext.embedder, infra.vectors, repos.Resolver, log)
	voiceService := voice.NewService(cfg, repos.Recordings, ext.cloner, ext.synthesizer, infra.storage, userService, translationService, repos.Resolver, notifier, log)
	presenceService := presence.NewService(repos.Presence, infra.tracker, repos.Resolver, notifier, cfg.PresenceTimeout, log)
	realtimeService := realtime.NewService(infra.broker, repos.Resolver, log)

	assistantService := assistant.NewService(cfg, assistant.Deps{
		Model:     ext.chat,
		Resolver:  repos.Resolver,
		Searcher:  embeddingService,
		Posts:     postService,
		Messages:  conversationService,
		Directory: userService,
		Limiter:   ratelimit.NewPerMinute(cfg.AssistantRatePerMin, rateLimiterKeys),
		Sanitizer: telemetry.NewSanitizer(telemetry.ParseLevel(cfg.PIILevel), cfg.ServiceName),
	}, log)

	runner := sweep.NewRunner(cfg, sweep.Deps{
		Files:      fileService,
		Embeddings: embeddingService,
		Speech:     voiceService,
		Presence:   presenceService,
	}, infra.locker, metrics.SweepRecorder{}, log)

	instrumenter, err := jobs.NewInstrumenter(tel.Tracer, tel.Meter, cfg.ServiceName)
	if err != nil {
		return handlers.Services{}, err
	}
	runner.Wrap(func(name string, job sweep.Job) sweep.Job {
		return func(ctx context.Context) (any, error) {
			var result any
			err := instrumenter.Run(ctx, name, func(ctx context.Context) error {
				var jobErr error
				result, jobErr = job(ctx)
				return jobErr
			})
			return result, err
		}
	})

	return handlers.Services{
		Users:         userService,
		Channels:      channelService,
		Posts:         postService,
		Conversations: conversationService,
		Files:         fileService,
		Reactions:     reactionService,
		Translations:  translationService,
		Assistant:     assistantService,
		Embeddings:    embeddingService,
		Voice:         voiceService,
		Presence:      presenceService,
		Realtime:      realtimeService,
		Sweeps:        runner,
	}, nil
}

func newServerOptions(cfg *config.Config, validator *auth.Validator, db *gorm.DB, infra *infrastructure, tel *observability.Provider) httpserver.Options {
	opts := httpserver.Options{
		Validator: validator,
		Limiter:   ratelimit.NewPerMinute(cfg.APIRatePerMin, rateLimiterKeys),
		Checks: map[string]httpserver.ReadinessCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"storage": infra.storage.Health,
		},
	}
	if infra.redis != nil {
		opts.Checks["redis"] = func(ctx context.Context) error {
			return infra.redis.Ping(ctx).Err()
		}
	}
	if cfg.EnableTracing {
		opts.Tracing = middleware.Tracing(tel.Tracer, tel.Meter, cfg.ServiceName)
	}
	return opts
}

func newScheduler(cfg *config.Config, services handlers.Services, log zerolog.Logger) *crontab.Crontab {
	return crontab.NewCrontab(cfg, services.Sweeps, log)
}
