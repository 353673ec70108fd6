package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beneficios_backend/internal/email"
	"beneficios_backend/internal/events"
	apphttp "beneficios_backend/internal/http"
	"beneficios_backend/internal/http/router"
	"beneficios_backend/internal/notification"
	"beneficios_backend/internal/notification/outbox"
	"beneficios_backend/internal/scheduler"
	"beneficios_backend/internal/solicitacao"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/metrics"
	"beneficios_backend/internal/solicitacao/ports"
	"beneficios_backend/internal/solicitacao/repository"
	"beneficios_backend/internal/solicitacao/service"
	"beneficios_backend/platform/config"
	"beneficios_backend/platform/db"
	"beneficios_backend/platform/logger"
	"beneficios_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	catalog, err := loadCatalog(cfg)
	if err != nil {
		log.Error("failed to load benefit catalog", "error", err)
		panic("failed to load benefit catalog: " + err.Error())
	}
	log.Info("benefit catalog loaded", "types", len(catalog.Types()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	workflowMetrics := metrics.New(registry)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	renewalClient, closeClient := initRenewalClient(cfg, log)
	if closeClient != nil {
		defer closeClient()
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(outbox.New(pool), email.NewSender(cfg), catalog, log)
	notificationModule.RegisterHandlers(eventBus)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	workflowCfg := service.Config{
		Notifier:         ports.BusNotifier{Bus: eventBus},
		Metrics:          workflowMetrics,
		Log:              log,
		MaxRetries:       cfg.GetWorkflowMaxRetries(),
		SweepParallelism: cfg.GetRenewalSweepParallelism(),
	}
	if renewalClient != nil {
		workflowCfg.Enqueuer = renewalClient
	}
	solicitacaoModule := solicitacao.NewModule(repository.New(pool), catalog, val, workflowCfg)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Modules: []apphttp.Module{
			solicitacaoModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRenewalClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; renewals run inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize renewal client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func loadCatalog(cfg config.WorkflowConfig) (*domain.Catalog, error) {
	path := cfg.GetBenefitCatalogPath()
	if path == "" {
		return domain.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return domain.LoadCatalog(f)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
