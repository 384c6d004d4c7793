package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/infrastructure/auth"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/middlewares"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/routes"
	v1 "github.com/huddlehq/huddle-server/internal/interfaces/httpserver/routes/v1"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options carries the optional collaborators of the HTTP server.
type Options struct {
	Validator *auth.Validator
	// Limiter throttles AI backed endpoints per caller. Nil disables throttling.
	Limiter middlewares.Limiter
	// Tracing is the OpenTelemetry request middleware, when tracing is enabled.
	Tracing gin.HandlerFunc
	Checks  map[string]ReadinessCheck
}

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg         *config.Config
	engine      *gin.Engine
	log         zerolog.Logger
	handlerProv *handlers.Provider
	routeProv   *routes.Provider
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg *config.Config, log zerolog.Logger, services handlers.Services, opts Options) (*HttpServer, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := requests.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middlewares.RequestID())
	if opts.Tracing != nil {
		engine.Use(opts.Tracing)
	}
	engine.Use(middlewares.LoggingMiddleware(log))
	engine.Use(middlewares.MetricsMiddleware())
	engine.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))

	handlerProvider := handlers.NewProvider(services, handlers.Limits{
		FileMaxBytes:        cfg.FileMaxBytes,
		VoiceSampleMaxBytes: cfg.VoiceSampleMaxBytes,
		RealtimeKeepAlive:   cfg.RealtimeKeepAlive,
	}, log)
	routeProvider := routes.NewProvider(handlerProvider, v1.Guards{
		Authenticated: []gin.HandlerFunc{
			middlewares.Authenticate(opts.Validator),
			middlewares.EnsureUser(services.Users, log),
		},
		Throttled: []gin.HandlerFunc{middlewares.RateLimit(opts.Limiter)},
		Admin:     []gin.HandlerFunc{middlewares.RequireScope(cfg.AdminScope, cfg.AuthEnabled)},
	})

	// Public routes (health checks, metrics) without authentication
	registerPublicRoutes(engine, cfg, opts.Checks)
	routeProvider.Register(engine)

	return &HttpServer{
		cfg:         cfg,
		engine:      engine,
		log:         log,
		handlerProv: handlerProvider,
		routeProv:   routeProvider,
	}, nil
}

// Handler exposes the engine for tests.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("HTTP server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("Context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func registerPublicRoutes(engine *gin.Engine, cfg *config.Config, checks map[string]ReadinessCheck) {
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, responses.HealthResponse{
			Status:  "ok",
			Service: cfg.ServiceName,
			Version: cfg.ServiceVersion,
		})
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, responses.HealthResponse{Status: "healthy"})
	})

	engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		body := responses.HealthResponse{Status: "ready", Checks: results}
		if status != http.StatusOK {
			body.Status = "not_ready"
		}
		c.JSON(status, body)
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
