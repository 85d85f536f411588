package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/points-service/internal/api/http"
	"github.com/spec-kit/points-service/internal/api/http/handlers"
	"github.com/spec-kit/points-service/internal/auth"
	"github.com/spec-kit/points-service/internal/cache"
	"github.com/spec-kit/points-service/internal/config"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/observability"
	"github.com/spec-kit/points-service/internal/persistence"
	"github.com/spec-kit/points-service/internal/repository"
	"github.com/spec-kit/points-service/internal/repository/memory"
	"github.com/spec-kit/points-service/internal/service"
	"github.com/spec-kit/points-service/internal/storage"
	"github.com/spec-kit/points-service/internal/worker"
)

type repositories struct {
	requests    repository.PointRequestRepository
	tasks       repository.TaskRepository
	admins      repository.AdminRepository
	secretaries repository.SecretaryRepository
	transfers   repository.TransferRepository
	tx          repository.Transactor
}

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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	bus, err := persistence.NewNATS(cfg.Notification, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect nats", zap.Error(err))
	}
	defer bus.Close()

	repos := buildRepositories(pg)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, bus, metrics, logger, cfg.Notification)

	leaderboardCache := cache.NewRedisLeaderboardCache(redis.Client, cfg.Points.LeaderboardCacheTTL())
	roleService := service.NewRoleService(service.RoleDependencies{AdminRepo: repos.admins, SecretaryRepo: repos.secretaries})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: repos.requests,
		TaskRepo:    repos.tasks,
		Cache:       leaderboardCache,
		Dispatcher:  dispatcher,
		Logger:      logger,
		PageSize:    cfg.Points.PageSize,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:   repos.tasks,
		Cache:      leaderboardCache,
		Dispatcher: dispatcher,
		Logger:     logger,
		Limits: service.TaskLimits{
			MinPoints:            cfg.Points.MinTaskPoints,
			MaxPoints:            cfg.Points.MaxTaskPoints,
			MinDescriptionLength: cfg.Points.MinDescriptionLength,
			MaxDescriptionLength: cfg.Points.MaxDescriptionLength,
		},
	})
	transferService := service.NewTransferService(service.TransferDependencies{
		TransferRepo:  repos.transfers,
		AdminRepo:     repos.admins,
		SecretaryRepo: repos.secretaries,
		Transactor:    repos.tx,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Expiry:        cfg.Points.TransferExpiry(),
		EmailDomain:   cfg.Auth.EmailDomain,
		BaseURL:       cfg.App.BaseURL,
		BcryptCost:    cfg.Auth.BcryptCost,
	})
	leaderboardService := service.NewLeaderboardService(service.LeaderboardDependencies{
		RequestRepo: repos.requests,
		TaskRepo:    repos.tasks,
		Cache:       leaderboardCache,
		Logger:      logger,
	})
	secretaryService := service.NewSecretaryService(service.SecretaryDependencies{
		SecretaryRepo: repos.secretaries,
		AdminRepo:     repos.admins,
		Dispatcher:    dispatcher,
		Logger:        logger,
		EmailDomain:   cfg.Auth.EmailDomain,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, roleService)
	var google *auth.GoogleProvider
	if cfg.Auth.GoogleEnabled() {
		google = auth.NewGoogleProvider(cfg.Auth)
	} else {
		logger.Warn("google sign-in not configured; login routes disabled")
	}

	var proofs *storage.ProofStore
	if cfg.Storage.Enabled() {
		proofs = storage.NewProofStore(storage.NewS3Client(cfg.Storage), cfg.Storage, logger)
	}

	app := httptransport.NewApp(cfg.App.Name, int(max(cfg.Storage.MaxUploadBytes, 4<<20))+1<<20)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(google, tokens, logger, cfg.Env() != "development"),
		Requests:       handlers.NewRequestsHandler(requestService),
		Tasks:          handlers.NewTasksHandler(taskService, leaderboardService),
		Transfers:      handlers.NewTransfersHandler(transferService),
		Secretaries:    handlers.NewSecretariesHandler(secretaryService),
		Uploads:        handlers.NewUploadsHandler(proofs),
		AuthMiddleware: authMiddleware,
		SubmitLimiter:  httptransport.SubmitRateLimiter(redis.Client, cfg.Points.SubmitRateLimit, cfg.Points.SubmitRateWindow(), logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// buildRepositories picks PostgreSQL when a pool is open and the in-memory store otherwise.
func buildRepositories(pg *persistence.Postgres) repositories {
	if !pg.Enabled() {
		store := memory.New()
		return repositories{
			requests:    store.Requests(),
			tasks:       store.Tasks(),
			admins:      store.Admins(),
			secretaries: store.Secretaries(),
			transfers:   store.Transfers(),
			tx:          store,
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		requests:    repository.NewPointRequestRepository(pool),
		tasks:       repository.NewTaskRepository(pool),
		admins:      repository.NewAdminRepository(pool),
		secretaries: repository.NewSecretaryRepository(pool),
		transfers:   repository.NewTransferRepository(pool),
		tx:          repository.NewTransactor(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
