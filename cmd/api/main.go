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

	httptransport "github.com/spec-kit/astro-gateway/internal/api/http"
	"github.com/spec-kit/astro-gateway/internal/api/http/handlers"
	"github.com/spec-kit/astro-gateway/internal/backend"
	"github.com/spec-kit/astro-gateway/internal/config"
	"github.com/spec-kit/astro-gateway/internal/events"
	"github.com/spec-kit/astro-gateway/internal/gate"
	"github.com/spec-kit/astro-gateway/internal/observability"
	"github.com/spec-kit/astro-gateway/internal/persistence"
	"github.com/spec-kit/astro-gateway/internal/realtime"
	"github.com/spec-kit/astro-gateway/internal/repository"
	"github.com/spec-kit/astro-gateway/internal/service"
	"github.com/spec-kit/astro-gateway/internal/session"
	"github.com/spec-kit/astro-gateway/internal/storage"
	"github.com/spec-kit/astro-gateway/internal/worker"
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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var store storage.Backend = storage.NewMemoryBackend(cfg.Session.IdleTTL())
	if redis != nil {
		store = storage.NewRedisBackend(redis.Client, cfg.Session.IdleTTL())
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var journalRepo repository.SessionEventRepository
	if pg.Enabled() {
		journalRepo = repository.NewSessionEventRepository(pg.PoolHandle())
	}
	journal := service.NewJournalService(journalRepo, dispatcher, logger)
	worker.StartJournalWorker(journal)

	routeGate := gate.New(cfg.Gate, logger, metrics)
	client := backend.NewClient(cfg.Backend, nil, logger)

	manager := session.NewManager(session.Dependencies{
		Profiles:        client,
		Carts:           client,
		Storage:         store,
		Dispatcher:      dispatcher,
		Dialer:          realtime.NewSocketIODialer(cfg.Realtime.Path, cfg.Realtime.ConnectTimeout(), logger),
		RealtimeBaseURL: realtime.BaseURL(cfg.Backend.APIOrigin, cfg.Backend.APIPathSuffix),
		CookieName:      routeGate.Cookies().CookieName,
		Timeout:         cfg.Backend.Timeout(),
		IdleTTL:         cfg.Session.IdleTTL(),
		Logger:          logger,
	})
	defer manager.Close()

	janitorDone := worker.StartSessionJanitor(ctx, manager, cfg.Session.JanitorInterval(), logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	resolver := handlers.NewSessionResolver(manager, routeGate.Cookies())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics, manager),
		Session:  handlers.NewSessionHandler(resolver, manager, dispatcher, journal, logger),
		Cart:     handlers.NewCartHandler(resolver, logger),
		Realtime: handlers.NewRealtimeHandler(resolver),
		Pages:    handlers.NewPageHandler(cfg.App.FrontendOrigin, logger),
		Gate:     routeGate,
	})

	go func() {
		logger.Info("gateway listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("cookie_mode", cfg.Gate.CookieMode),
			zap.Bool("journal", journal.Enabled()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-janitorDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
