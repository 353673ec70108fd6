package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beneficios_backend/internal/email"
	"beneficios_backend/internal/events"
	"beneficios_backend/internal/notification"
	"beneficios_backend/internal/notification/outbox"
	"beneficios_backend/internal/scheduler"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/metrics"
	"beneficios_backend/internal/solicitacao/ports"
	"beneficios_backend/internal/solicitacao/repository"
	"beneficios_backend/internal/solicitacao/service"
	"beneficios_backend/platform/config"
	"beneficios_backend/platform/db"
	"beneficios_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	catalog, err := loadCatalog(cfg)
	if err != nil {
		log.Error("failed to load benefit catalog", "error", err)
		panic("failed to load benefit catalog: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	outboxRepo := outbox.New(pool)
	notificationModule := notification.New(outboxRepo, email.NewSender(cfg), catalog, log)
	notificationModule.RegisterHandlers(eventBus)

	// Worker-side workflow wiring (no HTTP handlers required). Renewals run
	// inline here, so no enqueuer is configured.
	workflow := service.New(repository.New(pool), catalog, service.Config{
		Notifier:         ports.BusNotifier{Bus: eventBus},
		Metrics:          metrics.New(prometheus.DefaultRegisterer),
		Log:              log,
		MaxRetries:       cfg.GetWorkflowMaxRetries(),
		SweepParallelism: cfg.GetRenewalSweepParallelism(),
	})

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outboxRepo, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	sweep := scheduler.NewRenewalSweep(workflow.Renewals(), cfg, log)
	go sweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, workflow.Renewals(), notificationModule, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
		return errors.New(name + ": invalid retry attempts")
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
