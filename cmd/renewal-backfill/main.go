package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/repository"
	"beneficios_backend/internal/solicitacao/service"
	"beneficios_backend/platform/config"
	"beneficios_backend/platform/db"
	"beneficios_backend/platform/logger"
)

// renewal-backfill evaluates every concluded auto-renewing request that has
// neither a child renewal nor an exhausted marker, batch by batch, and stops
// when a batch makes no progress.
func main() {
	batchSize := flag.Int("batch", 100, "candidates evaluated per batch")
	pause := flag.Duration("pause", time.Second, "pause between batches")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting renewal backfill", "batch", *batchSize)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		log.Error("failed to load benefit catalog", "error", err)
		panic("failed to load benefit catalog: " + err.Error())
	}

	renewals := service.NewRenewalScheduler(repository.New(pool), catalog, service.RenewalConfig{
		Log:         log,
		MaxRetries:  cfg.GetWorkflowMaxRetries(),
		Parallelism: cfg.GetRenewalSweepParallelism(),
	})

	var total service.SweepResult
	for {
		result, err := renewals.Sweep(ctx, *batchSize)
		if err != nil {
			log.Error("renewal batch failed", "error", err)
			break
		}
		total.Created += result.Created
		total.Exhausted += result.Exhausted
		total.Skipped += result.Skipped
		total.Failed += result.Failed

		if result.Created+result.Exhausted == 0 {
			log.Info("no renewal progress in batch, stopping", "skipped", result.Skipped, "failed", result.Failed)
			break
		}
		log.Info("renewal batch done", "created", result.Created, "exhausted", result.Exhausted, "failed", result.Failed)
		time.Sleep(*pause)
	}

	log.Info("renewal backfill finished",
		"created", total.Created,
		"exhausted", total.Exhausted,
		"skipped", total.Skipped,
		"failed", total.Failed,
	)
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
