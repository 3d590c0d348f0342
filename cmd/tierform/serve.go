// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/carterperez-dev/tierform/internal/config"
	"github.com/carterperez-dev/tierform/internal/core"
	"github.com/carterperez-dev/tierform/internal/health"
	"github.com/carterperez-dev/tierform/internal/middleware"
	"github.com/carterperez-dev/tierform/internal/server"
	"github.com/carterperez-dev/tierform/internal/stats"
	"github.com/carterperez-dev/tierform/internal/tier"
)

const (
	drainDelay = 5 * time.Second
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tier builder HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(*configPath)
		},
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func runServe(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"session_store", cfg.Session.Store,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	var (
		rdb        *core.Redis
		repo       tier.Repository
		redisStats func() *redis.PoolStats
		redisCli   *redis.Client
	)

	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		rdb, err = core.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		logger.Info("redis connected",
			"pool_size", cfg.Redis.PoolSize,
		)
		redisCli = rdb.Client
		redisStats = rdb.PoolStats
		repo = tier.NewRedisRepository(
			rdb,
			cfg.Session.KeyPrefix,
			cfg.Session.TTL,
		)
	default:
		repo = tier.NewMemoryRepository(cfg.Session.TTL)
	}

	tierSvc := tier.NewService(
		repo,
		catalogFromConfig(cfg.Catalog),
		cfg.Session.SeedCount,
	)
	tierHandler := tier.NewHandler(tierSvc)

	healthHandler := health.NewHandler(health.Dependency{
		Name:    "session_store",
		Checker: repo,
	})

	statsHandler := stats.NewHandler(stats.HandlerConfig{
		Store:        cfg.Session.Store,
		SessionCount: tierSvc.SessionCount,
		StorePing:    repo.Ping,
		RedisStats:   redisStats,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing(otel.GetTracerProvider()))
	router.Use(middleware.Logger(logger))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(redisCli, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			KeyFunc:  middleware.KeyByIPAndEndpoint(cfg.Server.TrustProxy),
			FailOpen: true,
		})
		defer limiter.Close()
		router.Use(limiter.Handler)
	}
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Route("/v1", func(r chi.Router) {
		tierHandler.RegisterRoutes(r)
		statsHandler.RegisterRoutes(r)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}
