package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/freshness"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const dashboardCacheKey = "helpdesk:dashboard"

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	bridge := events.NewRedisBridge(events.NewInMemoryDispatcher(logger), redis.Client, cfg.Redis.ChangeChannel, logger)
	go func() {
		if err := bridge.Run(ctx); err != nil {
			logger.Warn("change feed stopped", zap.Error(err))
		}
	}()

	scheduler := worker.NewScheduler(logger)
	scheduler.Start()
	defer scheduler.Stop()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	ruleRepo := repository.NewSLARuleRepository(pool)
	sessionRepo := repository.NewChatSessionRepository(pool)
	messageRepo := repository.NewChatMessageRepository(pool)
	articleRepo := repository.NewArticleRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	ev := evaluator.New(cfg.SLA.FallbackRule)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		AgentRepo:    agentRepo,
		CustomerRepo: customerRepo,
		TokenManager: tokens,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		NoteRepo:   noteRepo,
		AgentRepo:  agentRepo,
		AuditRepo:  auditRepo,
		Dispatcher: bridge,
		Logger:     logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		RuleRepo:   ruleRepo,
		TicketRepo: ticketRepo,
		AuditRepo:  auditRepo,
		Evaluator:  ev,
		Dispatcher: bridge,
		Logger:     logger,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		SessionRepo:   sessionRepo,
		MessageRepo:   messageRepo,
		TicketRepo:    ticketRepo,
		AuditRepo:     auditRepo,
		TicketService: ticketService,
		SLAService:    slaService,
		Dispatcher:    bridge,
		Logger:        logger,
	})
	supportService := service.NewSupportService(service.SupportDependencies{
		SessionRepo:   sessionRepo,
		CustomerRepo:  customerRepo,
		TicketService: ticketService,
		ChatService:   chatService,
		Dispatcher:    bridge,
		Logger:        logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		TicketRepo:     ticketRepo,
		RuleRepo:       ruleRepo,
		AgentRepo:      agentRepo,
		Evaluator:      ev,
		Store:          service.NewRedisSnapshotStore(redis.Client, dashboardCacheKey, cfg.Freshness.DashboardCacheTTL()),
		PresenceWindow: cfg.SLA.PresenceWindow(),
		PollInterval:   cfg.Freshness.DashboardPoll(),
		Logger:         logger,
	})
	teamService := service.NewTeamService(service.TeamDependencies{
		AgentRepo:      agentRepo,
		AuditRepo:      auditRepo,
		Dispatcher:     bridge,
		PresenceWindow: cfg.SLA.PresenceWindow(),
		BcryptCost:     cfg.Auth.BcryptCost,
		Logger:         logger,
	})
	articleService := service.NewArticleService(service.ArticleDependencies{
		ArticleRepo: articleRepo,
		Dispatcher:  bridge,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(bridge, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)
	defer notificationService.Close()

	scanner := worker.NewBreachScanner(ticketRepo, ruleRepo, ev, bridge, logger)
	if stop, err := scanner.Schedule(scheduler, cfg.SLA.BreachScan()); err != nil {
		logger.Warn("sla breach scan not scheduled", zap.Error(err))
	} else {
		defer stop()
	}

	freshDeps := freshness.Deps{Subscriber: bridge, Ticker: scheduler, Logger: logger, Metrics: metrics}
	sessions := freshness.Start(ctx, freshDeps, freshness.Source{
		Name:     "chat_sessions",
		Events:   events.SessionEvents,
		Interval: cfg.Freshness.SessionPoll(),
		Refresh:  chatService.RefreshSessions,
	})
	defer sessions.Stop()
	dashboard := freshness.Start(ctx, freshDeps, freshness.Source{
		Name:     "dashboard",
		Events:   events.TicketEvents,
		Interval: cfg.Freshness.DashboardPoll(),
		Refresh:  dashboardService.Refresh,
	})
	defer dashboard.Stop()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, slaService),
		SLA:            handlers.NewSLAHandler(slaService),
		Chat:           handlers.NewChatHandler(chatService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Team:           handlers.NewTeamHandler(teamService),
		Articles:       handlers.NewArticlesHandler(articleService),
		Support:        handlers.NewSupportHandler(supportService),
		Feed:           handlers.NewFeedHandler(bridge, teamService, cfg.Freshness.Heartbeat(), logger),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, agentRepo, customerRepo),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		logger.Error("fiber listen", zap.Error(err))
		return err
	case sig := <-waitForShutdown():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

func waitForShutdown() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
