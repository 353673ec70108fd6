package main

import (
	"context"
	"flag"
	"time"

	"beneficios_backend/internal/notification/outbox"
	"beneficios_backend/platform/config"
	"beneficios_backend/platform/db"
	"beneficios_backend/platform/logger"

	"github.com/google/uuid"
)

type failedRequeuer interface {
	ListFailed(ctx context.Context, since time.Time, limit int) ([]outbox.Record, error)
	Requeue(ctx context.Context, id uuid.UUID) error
}

// outbox-requeue returns failed notifications to pending with a fresh attempt
// budget, for example after an SMTP outage outlasted the retry window.
func main() {
	since := flag.Duration("since", 72*time.Hour, "only requeue records that failed within this window")
	template := flag.String("template", "", "only requeue this template")
	dryRun := flag.Bool("dry-run", false, "list the records without changing them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting notification outbox requeue", "since", since.String(), "template", *template, "dryRun", *dryRun)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	requeued, skipped := requeue(ctx, outbox.New(pool), log, time.Now().Add(-*since), *template, *dryRun)
	log.Info("notification outbox requeue finished", "requeued", requeued, "skipped", skipped)
}

func requeue(ctx context.Context, repo failedRequeuer, log *logger.Logger, since time.Time, template string, dryRun bool) (int, int) {
	const batchSize = 100

	records, err := repo.ListFailed(ctx, since, batchSize)
	if err != nil {
		log.Error("failed to list failed outbox records", "error", err)
		return 0, 0
	}

	var requeued, skipped int
	for _, rec := range records {
		if template != "" && rec.Template != template {
			skipped++
			continue
		}
		if dryRun {
			log.Info("would requeue", "outboxId", rec.ID, "template", rec.Template, "attempts", rec.Attempts)
			requeued++
			continue
		}
		if err := repo.Requeue(ctx, rec.ID); err != nil {
			log.Error("failed to requeue outbox record", "outboxId", rec.ID, "error", err)
			skipped++
			continue
		}
		requeued++
	}
	return requeued, skipped
}
