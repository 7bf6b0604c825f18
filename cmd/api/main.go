package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/waterworks/servicedesk/internal/api/http"
	"github.com/waterworks/servicedesk/internal/api/http/handlers"
	"github.com/waterworks/servicedesk/internal/auth"
	"github.com/waterworks/servicedesk/internal/config"
	"github.com/waterworks/servicedesk/internal/events"
	"github.com/waterworks/servicedesk/internal/lifecycle"
	"github.com/waterworks/servicedesk/internal/observability"
	"github.com/waterworks/servicedesk/internal/persistence"
	"github.com/waterworks/servicedesk/internal/repository"
	"github.com/waterworks/servicedesk/internal/service"
	"github.com/waterworks/servicedesk/internal/validation"
	"github.com/waterworks/servicedesk/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	requestRepo := repository.NewRequestRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	photoRepo := repository.NewPhotoRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	assetRepo := repository.NewAssetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(func(event events.Event, handlerErr error) {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.Error(handlerErr))
	})

	machine := lifecycle.New(lifecycle.Policy{
		StrictResolutionPath: cfg.Support.StrictResolutionPath,
	}, nil)
	validator := validation.New(validation.RegionBounds{
		MinLatitude:  cfg.Support.MinLatitude,
		MaxLatitude:  cfg.Support.MaxLatitude,
		MinLongitude: cfg.Support.MinLongitude,
		MaxLongitude: cfg.Support.MaxLongitude,
	}, nil)

	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  requestRepo,
		CommentRepo:  commentRepo,
		PhotoRepo:    photoRepo,
		CustomerRepo: customerRepo,
		StaffRepo:    staffRepo,
		AssetRepo:    assetRepo,
		Validator:    validator,
		Machine:      machine,
		Dispatcher:   dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		RequestRepo: requestRepo,
		StaffRepo:   staffRepo,
		Machine:     machine,
		Dispatcher:  dispatcher,
	})
	threadService := service.NewThreadService(service.ThreadDependencies{
		RequestRepo: requestRepo,
		CommentRepo: commentRepo,
		PhotoRepo:   photoRepo,
		Policy: service.ThreadPolicy{
			AllowCommentsOnTerminal: cfg.Support.AllowCommentsOnTerminal,
			MaxPhotoBytes:           cfg.Support.MaxPhotoBytes,
		},
		Dispatcher: dispatcher,
	})
	statsService := service.NewStatsService(service.StatsDependencies{
		RequestRepo: requestRepo,
		Cache:       redis.ClientHandle(),
		CacheTTL:    cfg.Support.StatsCacheTTL(),
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		CustomerRepo: customerRepo,
		StaffRepo:    staffRepo,
	})
	notificationService := service.NewNotificationService(dispatcher, customerRepo, staffRepo, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), customerRepo, staffRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Support.MaxPhotoBytes) + 1024*1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService)
	requestsHandler := handlers.NewRequestsHandler(requestService, threadService, statsService)
	staffHandler := handlers.NewStaffRequestsHandler(requestService, assignmentService, threadService, statsService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Requests:       requestsHandler,
		StaffRequests:  staffHandler,
		AuthMiddleware: authMiddleware,
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
