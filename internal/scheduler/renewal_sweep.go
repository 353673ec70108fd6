package scheduler

import (
	"context"
	"time"

	"beneficios_backend/internal/solicitacao/service"
	"beneficios_backend/platform/config"
	"beneficios_backend/platform/logger"
)

const (
	defaultRenewalSweepInterval = time.Hour
	defaultRenewalSweepBatch    = 200
)

// Sweeper renews the concluded requests still waiting for their renewal.
type Sweeper interface {
	Sweep(ctx context.Context, limit int) (service.SweepResult, error)
}

// RenewalSweep periodically catches up on renewals whose task was lost or failed.
type RenewalSweep struct {
	sweeper  Sweeper
	log      *logger.Logger
	interval time.Duration
	batch    int
}

func NewRenewalSweep(sweeper Sweeper, cfg config.RenewalConfig, log *logger.Logger) *RenewalSweep {
	interval := cfg.GetRenewalSweepInterval()
	if interval <= 0 {
		interval = defaultRenewalSweepInterval
	}
	batch := cfg.GetRenewalSweepBatch()
	if batch <= 0 {
		batch = defaultRenewalSweepBatch
	}
	if log == nil {
		log = logger.Nop()
	}

	return &RenewalSweep{
		sweeper:  sweeper,
		log:      log,
		interval: interval,
		batch:    batch,
	}
}

func (s *RenewalSweep) Run(ctx context.Context) {
	if s == nil || s.sweeper == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RenewalSweep) sweep(ctx context.Context) {
	result, err := s.sweeper.Sweep(ctx, s.batch)
	if err != nil {
		s.log.Warn("renewal sweep failed", "error", err)
		return
	}

	if result.Created > 0 || result.Exhausted > 0 || result.Failed > 0 {
		s.log.Info("renewal sweep finished",
			"created", result.Created,
			"exhausted", result.Exhausted,
			"skipped", result.Skipped,
			"failed", result.Failed,
		)
	}
}
