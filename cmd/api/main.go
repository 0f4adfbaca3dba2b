package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/identity-service/internal/api/http"
	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/identity"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/persistence"
	"github.com/spec-kit/identity-service/internal/repository"
	"github.com/spec-kit/identity-service/internal/service"
	"github.com/spec-kit/identity-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var userRepo repository.UserRepository
	if pg.Configured() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory user store; data is lost on restart")
		userRepo = repository.NewMemoryUserRepository()
	}

	var outcomeRepo repository.OutcomeRepository
	if redis.Configured() {
		outcomeRepo = repository.NewOutcomeRepository(redis.Client)
	}

	provider := newProvider(cfg.Cognito, logger)
	if cognito, ok := provider.(*identity.CognitoClient); ok {
		defer cognito.Close()
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, outcomeRepo, logger))

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Provider:   provider,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authMiddleware := auth.NewAuthMiddleware(provider)

	var reconcileWorker *worker.ReconcileWorker
	if cfg.Reconcile.Enabled && outcomeRepo != nil {
		reconcileWorker = worker.NewReconcileWorker(
			service.NewReconcileService(outcomeRepo, provider, logger),
			cfg.Reconcile.Interval(),
			logger,
		)
		reconcileWorker.Start(ctx)
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    redis,
	})
	authHandler := handlers.NewAuthHandler(authService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("fiber shutdown", zap.Error(err))
	}
	cancel()
	if reconcileWorker != nil {
		reconcileWorker.Wait()
	}
}

func newProvider(cfg config.CognitoConfig, logger *zap.Logger) identity.Provider {
	if cfg.Provider == config.ProviderMemory {
		logger.Warn("using in-memory identity provider")
		tokens := identity.NewTokenManager(cfg.MemorySecret, cfg.TokenTTL(), cfg.Issuer(), cfg.ClientID)
		return identity.NewMemoryProvider(tokens)
	}
	return identity.NewCognitoClient(cfg, logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
