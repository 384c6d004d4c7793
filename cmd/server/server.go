package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/infrastructure/crontab"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/channelrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/contentrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/conversationrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/embeddingrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/filerepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/postrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/presencerepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/reactionrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/translationrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/userrepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/repository/voicerepo"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
	"github.com/huddlehq/huddle-server/internal/infrastructure/logger"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver"
)

// Application runs the HTTP API and the sweep scheduler until the context is cancelled.
type Application struct {
	httpServer *httpserver.HttpServer
	scheduler  *crontab.Crontab
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, scheduler *crontab.Crontab, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		scheduler:  scheduler,
		log:        log,
	}
}

// @title Huddle API
// @version 1.0
// @description Channels, conversations, threads and reactions with realtime delivery and assistant features.
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func (a *Application) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.httpServer.Run(ctx)
	})
	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Run(ctx)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := buildApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize application")
	}
	defer cleanup()

	log.Info().
		Str("addr", cfg.Addr()).
		Str("environment", cfg.Environment).
		Str("storage", cfg.StorageBackend).
		Bool("redis", cfg.RedisURL != "").
		Bool("llm", cfg.LLMEnabled()).
		Msg("starting huddle server")

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

// buildApplication assembles the service by hand. BuildApplication in wire.go describes the same graph.
func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(step string, err error) (*Application, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("%s: %w", step, err)
	}

	tel, telCleanup, err := newTelemetry(ctx, cfg, log)
	if err != nil {
		return fail("initialize observability", err)
	}
	cleanups = append(cleanups, telCleanup)

	gormDB, err := newGormDB(ctx, newDatabaseConfig(cfg), cfg, log)
	if err != nil {
		return fail("prepare database", err)
	}

	validator, validatorCleanup, err := newAuthValidator(ctx, cfg, log)
	if err != nil {
		return fail("initialize auth validator", err)
	}
	cleanups = append(cleanups, validatorCleanup)

	infra, infraCleanup, err := newInfrastructure(ctx, cfg, log)
	if err != nil {
		return fail("initialize infrastructure", err)
	}
	cleanups = append(cleanups, infraCleanup)

	db := transaction.NewDatabase(gormDB)
	contentRepo := contentrepo.NewContentGormRepository(db)
	repos := repositories{
		Users:         userrepo.NewUserGormRepository(db),
		Channels:      channelrepo.NewChannelGormRepository(db),
		Posts:         postrepo.NewPostGormRepository(db),
		Conversations: conversationrepo.NewConversationGormRepository(db),
		Files:         filerepo.NewFileGormRepository(db),
		Reactions:     reactionrepo.NewReactionGormRepository(db),
		Translations:  translationrepo.NewTranslationGormRepository(db),
		Embeddings:    embeddingrepo.NewEmbeddingGormRepository(db),
		Recordings:    voicerepo.NewRecordingGormRepository(db),
		Presence:      presencerepo.NewPresenceGormRepository(db),
		Resolver:      contentRepo,
		Cleaner:       contentRepo,
	}

	services, err := newServices(cfg, log, repos, infra, newExternalProviders(cfg, log), tel)
	if err != nil {
		return fail("initialize services", err)
	}

	httpServer, err := httpserver.New(cfg, log, services, newServerOptions(cfg, validator, gormDB, infra, tel))
	if err != nil {
		return fail("initialize http server", err)
	}

	return NewApplication(httpServer, newScheduler(cfg, services, log), log), cleanup, nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
