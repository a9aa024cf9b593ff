package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"handover/internal/api"
	"handover/internal/auth"
	"handover/internal/config"
	"handover/internal/database"
	"handover/internal/domain"
	"handover/internal/events"
	"handover/internal/logging"
	"handover/internal/metrics"
	"handover/internal/notify"
	"handover/internal/repository"
	"handover/internal/service"
	"handover/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	store, err := initStore(cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	dispatcher, journal, err := initDispatcher(cfg, &logger)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	eventBus := events.NewEventBus()
	subscribeEventLogging(eventBus, &logger)

	retryPolicy := worker.RetryPolicy{
		InitialDelay:  time.Duration(cfg.Store.RetryInitialDelayMS) * time.Millisecond,
		MaxDelay:      time.Duration(cfg.Store.RetryMaxDelayMS) * time.Millisecond,
		BackoffFactor: cfg.Store.RetryBackoffFactor,
	}
	submissions := service.NewSubmissionService(
		store,
		dispatcher,
		eventBus,
		cfg.Store.SubmitAttempts,
		retryPolicy,
		time.Duration(cfg.Store.SubmitTimeoutSeconds)*time.Second,
		&logger,
	)

	policy := auth.NewAllowlistPolicy(cfg.Admins)
	httpServer := api.NewHTTPServer(&cfg.API, store, submissions, policy, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go dispatcher.Start(ctx)
	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initStore(cfg *config.Config, logger *zerolog.Logger) (domain.Store, error) {
	if cfg.Store.Backend == "memory" {
		logger.Warn().Msg("using in-memory store; data will not survive restarts")
		return repository.NewMemoryStore(), nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	store := repository.NewRedisStore(client)
	if err := store.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return store, nil
}

func initDispatcher(cfg *config.Config, logger *zerolog.Logger) (*notify.Dispatcher, *database.Journal, error) {
	transport, err := notify.NewTelegramTransport(cfg.Notifications)
	if err != nil {
		return nil, nil, fmt.Errorf("init notification transport: %w", err)
	}
	if transport == nil {
		logger.Info().Msg("notifications disabled: no telegram token configured")
		return notify.NewDispatcher(nil, nil, worker.RetryPolicy{}, logger), nil, nil
	}

	journal, err := database.NewJournal(cfg.Notifications.JournalPath)
	if err != nil {
		return nil, nil, fmt.Errorf("init notification journal: %w", err)
	}

	retry := worker.RetryPolicy{MaxRetries: cfg.Notifications.MaxRetries}
	return notify.NewDispatcher(journal, transport, retry, logger), journal, nil
}

func subscribeEventLogging(bus *events.EventBus, logger *zerolog.Logger) {
	eventLogger := logger.With().Str("component", "events").Logger()
	handler := func(event *events.Event) error {
		eventLogger.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Msg("domain event")
		return nil
	}
	bus.Subscribe(events.EventRequestSubmitted, handler)
	bus.Subscribe(events.EventRequestWithdrawn, handler)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			logger.Warn().Msg("HTTP API is disabled in config")
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
