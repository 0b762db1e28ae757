package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/token-service/internal/api/http"
	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/config"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/persistence"
	"github.com/spec-kit/token-service/internal/ratelimit"
	"github.com/spec-kit/token-service/internal/repository"
	"github.com/spec-kit/token-service/internal/service"
	"github.com/spec-kit/token-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	for _, warning := range cfg.Warnings() {
		logger.Warn("insecure configuration", zap.String("issue", warning))
	}

	authenticator, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, auth.WithTTL(cfg.Auth.AccessTokenTTL()))
	if err != nil {
		logger.Fatal("failed to init authenticator", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher()
	var eventRepo repository.AuthEventRepository
	if pg.Configured() {
		eventRepo = repository.NewAuthEventRepository(pg.PoolHandle())
	}
	worker.StartAuditWorker(service.NewAuditService(dispatcher, eventRepo, logger))

	loginLimit := ratelimit.Config{Requests: cfg.Auth.LoginRateLimit, Window: cfg.Auth.LoginRateWindow()}
	var loginLimiter ratelimit.Limiter
	switch {
	case !loginLimit.Enabled():
	case redis.Configured():
		loginLimiter = ratelimit.NewRedisLimiter(redis.Client, cfg.App.Name+":login:", loginLimit)
	default:
		loginLimiter = ratelimit.NewMemoryLimiter(loginLimit)
	}

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(httptransport.Dependencies{
		Name:           cfg.App.Name,
		Version:        cfg.App.Version,
		RequestTimeout: cfg.App.RequestTimeout(),
		Authenticator:  authenticator,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
		LoginLimiter:   loginLimiter,
		LoginLimit:     loginLimit,
		Health: map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
