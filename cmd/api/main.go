package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/travel-auth/internal/api/http"
	"github.com/spec-kit/travel-auth/internal/api/http/handlers"
	"github.com/spec-kit/travel-auth/internal/auth"
	"github.com/spec-kit/travel-auth/internal/cache"
	"github.com/spec-kit/travel-auth/internal/config"
	"github.com/spec-kit/travel-auth/internal/events"
	"github.com/spec-kit/travel-auth/internal/observability"
	"github.com/spec-kit/travel-auth/internal/persistence"
	"github.com/spec-kit/travel-auth/internal/ratelimit"
	"github.com/spec-kit/travel-auth/internal/repository"
	"github.com/spec-kit/travel-auth/internal/service"
	"github.com/spec-kit/travel-auth/internal/session"
	"github.com/spec-kit/travel-auth/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisManager := persistence.NewConnectionManager(cfg.Redis, logger)
	defer redisManager.Disconnect() //nolint:errcheck

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	accountRepo := repository.NewAccountRepository(pg.PoolHandle())
	tokenService := auth.NewTokenService(cfg.Auth)
	sessionStore := session.NewStore(redisManager, cfg.Session.TTL)
	cacheManager := cache.NewManager(redisManager, logger, cfg.Cache.TTL)
	limiter := ratelimit.NewLimiter(redisManager, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)

	authService := service.NewAuthService(service.AuthDependencies{
		Accounts:   accountRepo,
		Tokens:     tokenService,
		Sessions:   sessionStore,
		Cache:      cacheManager,
		Dispatcher: dispatcher,
	})
	auditService := service.NewAuditService(dispatcher, logger, metrics)
	worker.StartAuditWorker(auditService)

	authMiddleware := auth.NewAuthMiddleware(tokenService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisManager)
	authHandler := handlers.NewAuthHandler(authService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		AuthMiddleware: authMiddleware,
		RateLimit:      httptransport.RateLimitMiddleware(limiter, logger),
	})

	go func() {
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
