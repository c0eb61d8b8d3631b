package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/adapter"
	httptransport "github.com/spec-kit/incident-hub/internal/api/http"
	"github.com/spec-kit/incident-hub/internal/api/http/handlers"
	"github.com/spec-kit/incident-hub/internal/auth"
	"github.com/spec-kit/incident-hub/internal/config"
	"github.com/spec-kit/incident-hub/internal/events"
	"github.com/spec-kit/incident-hub/internal/observability"
	"github.com/spec-kit/incident-hub/internal/persistence"
	"github.com/spec-kit/incident-hub/internal/repository"
	"github.com/spec-kit/incident-hub/internal/repository/memory"
	"github.com/spec-kit/incident-hub/internal/sender"
	"github.com/spec-kit/incident-hub/internal/service"
	"github.com/spec-kit/incident-hub/internal/worker"
)

// stores groups the repositories; Postgres when configured, memory otherwise.
type stores struct {
	tickets       repository.TicketRepository
	notifications repository.NotificationRepository
	settings      repository.NotificationSettingRepository
	hosts         repository.HostResolver
	directory     repository.RecipientDirectory
	// users gates authentication; nil trusts the token alone.
	users repository.RecipientDirectory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
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

	repos := buildStores(pg, logger)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	gate := service.NewDedupGate(repos.tickets, dedupCache(redis, cfg.Ingest), logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repos.tickets,
		Gate:       gate,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ingestService := service.NewIngestService(service.IngestDependencies{
		Adapters: adapter.DefaultRegistry(),
		Hosts:    repos.hosts,
		Tickets:  ticketService,
		Metrics:  metrics,
		Logger:   logger,
	})

	senders, err := buildSenders(cfg.Notification, repos.directory)
	if err != nil {
		logger.Fatal("failed to build senders", zap.Error(err))
	}
	logger.Info("notification channels", zap.Any("enabled", enabledChannels(senders)))

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Notifications: repos.notifications,
		Settings:      repos.settings,
		Senders:       senders,
		Metrics:       metrics,
		Logger:        logger,
		SendTimeout:   cfg.Notification.SendTimeout(),
		Workers:       cfg.Notification.DispatchWorkers,
		OperatorIDs:   cfg.Notification.OperatorIDs,
	})

	var locker worker.Locker
	if redis.Enabled() {
		locker = redis
	}
	worker.StartNotificationWorker(ctx, notificationService, dispatcher, locker, cfg.Worker, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.users)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: bodyLimit(cfg.Ingest),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Webhooks:       handlers.NewWebhooksHandler(ingestService, cfg.Ingest.MaxPayloadBytes),
		AuthMiddleware: authMiddleware,
		WebhookGuard:   auth.WebhookGuard(cfg.Webhook.TokenHash),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func buildStores(pg *persistence.Postgres, logger *zap.Logger) stores {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		users := repository.NewUserRepository(pool)
		return stores{
			tickets:       repository.NewTicketRepository(pool),
			notifications: repository.NewNotificationRepository(pool),
			settings:      repository.NewNotificationSettingRepository(pool),
			hosts:         repository.NewHostRepository(pool),
			directory:     users,
			users:         users,
		}
	}
	logger.Warn("running with in-memory storage; data is lost on restart")
	return stores{
		tickets:       memory.NewTicketStore(),
		notifications: memory.NewNotificationStore(),
		settings:      memory.NewSettingStore(),
		hosts:         memory.NewHostMap(),
		directory:     memory.NewDirectory(),
	}
}

func dedupCache(redis *persistence.Redis, cfg config.IngestConfig) service.CorrelationCache {
	cache := persistence.NewDedupCache(redis, cfg.DedupTTL())
	if cache == nil {
		return nil
	}
	return cache
}

func buildSenders(cfg config.NotificationConfig, directory repository.RecipientDirectory) (*sender.Registry, error) {
	client := &http.Client{Timeout: cfg.SendTimeout()}
	return sender.NewRegistry(
		sender.NewInApp(),
		sender.NewSlack(cfg.Slack, client),
		sender.NewTeams(cfg.Teams, client),
		sender.NewEmail(cfg.Email, nil, directory),
	)
}

func enabledChannels(r *sender.Registry) []string {
	var out []string
	for _, ch := range r.Channels() {
		if r.Enabled(ch) {
			out = append(out, string(ch))
		}
	}
	return out
}

func bodyLimit(cfg config.IngestConfig) int {
	if cfg.MaxPayloadBytes > 0 {
		// leave headroom so the handler can answer with a JSON error
		return cfg.MaxPayloadBytes * 2
	}
	return 4 * 1024 * 1024
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
