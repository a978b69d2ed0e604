package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/campusvoice/feedback-service/internal/api/http"
	"github.com/campusvoice/feedback-service/internal/api/http/handlers"
	"github.com/campusvoice/feedback-service/internal/auth"
	"github.com/campusvoice/feedback-service/internal/config"
	"github.com/campusvoice/feedback-service/internal/events"
	"github.com/campusvoice/feedback-service/internal/moderation"
	"github.com/campusvoice/feedback-service/internal/observability"
	"github.com/campusvoice/feedback-service/internal/persistence"
	"github.com/campusvoice/feedback-service/internal/repository"
	"github.com/campusvoice/feedback-service/internal/service"
	"github.com/campusvoice/feedback-service/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	issueRepo := repository.NewIssueRepository(pool)
	updateRepo := repository.NewIssueUpdateRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	gateway := moderation.NewHTTPGateway(cfg.Moderation, logger)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:  issueRepo,
		UpdateRepo: updateRepo,
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Logger:     logger,
		SLAGrace:   cfg.Issue.SLAGrace(),
		DedupLimit: cfg.Issue.DedupScanLimit,
	})
	dashboardService := service.NewDashboardService(issueRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Feedback:       handlers.NewFeedbackHandler(issueService),
		Issues:         handlers.NewIssuesHandler(issueService),
		Stats:          handlers.NewStatsHandler(dashboardService),
		Sweep:          handlers.NewSweepHandler(issueService),
		AuthMiddleware: authMiddleware,
	})

	if cfg.Sweep.Enabled {
		sweepWorker := worker.NewSweepWorker(issueService, redis.ClientHandle(), logger, metrics, cfg.Sweep.Interval())
		go sweepWorker.Run(ctx)
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
