package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"beneficios_backend/internal/events"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/metrics"
	"beneficios_backend/internal/solicitacao/ports"
	"beneficios_backend/internal/solicitacao/retry"
	"beneficios_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RenewalOutcome classifies one renewal evaluation.
type RenewalOutcome string

const (
	RenewalCreated   RenewalOutcome = "created"
	RenewalExhausted RenewalOutcome = "exhausted"
	RenewalSkipped   RenewalOutcome = "skipped"
)

// RenewalResult is what Renew did for one parent request.
type RenewalResult struct {
	Outcome RenewalOutcome
	Child   *domain.Request

	// NextRenewal is the parent's new DataProximaRenovacao when a child was created.
	NextRenewal    *time.Time
	ParentProtocol string

	// Renewals and Limit describe the parent when the limit was reached.
	Renewals int
	Limit    int
}

// RenewalConfig carries the optional collaborators of a RenewalScheduler.
type RenewalConfig struct {
	Notifier    ports.Notifier
	Metrics     *metrics.Metrics
	Log         *logger.Logger
	Now         func() time.Time
	MaxRetries  int
	Parallelism int
}

type RenewalScheduler struct {
	store       ports.Store
	catalog     *domain.Catalog
	notifier    ports.Notifier
	metrics     *metrics.Metrics
	log         *logger.Logger
	now         func() time.Time
	maxRetries  int
	parallelism int
}

func NewRenewalScheduler(store ports.Store, catalog *domain.Catalog, cfg RenewalConfig) *RenewalScheduler {
	s := &RenewalScheduler{
		store:       store,
		catalog:     catalog,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		log:         cfg.Log,
		now:         cfg.Now,
		maxRetries:  cfg.MaxRetries,
		parallelism: cfg.Parallelism,
	}
	if s.notifier == nil {
		s.notifier = ports.NopNotifier{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.parallelism < 1 {
		s.parallelism = 4
	}
	return s
}

// Renew evaluates a concluded auto-renewing request. It creates the next request in
// rascunho while the benefit allows more renewals, and otherwise records that renewals
// are exhausted. Calling it again for the same parent changes nothing.
func (s *RenewalScheduler) Renew(ctx context.Context, parentID uuid.UUID) (RenewalResult, error) {
	var result RenewalResult
	err := retry.OnConflict(ctx, s.maxRetries, func(ctx context.Context) error {
		return s.store.RunInTx(ctx, func(ctx context.Context) error {
			var err error
			result, err = s.renew(ctx, parentID)
			return err
		})
	})
	if errors.Is(err, ports.ErrRenewalExists) {
		return RenewalResult{Outcome: RenewalSkipped}, nil
	}
	if err != nil {
		return RenewalResult{}, err
	}

	s.metrics.IncrementRenewal(string(result.Outcome))
	switch result.Outcome {
	case RenewalCreated:
		child := result.Child
		s.log.WithContext(ctx).Info("renewal created",
			"solicitacao_id", parentID,
			"renovacao_id", child.ID,
			"contador_renovacoes", child.ContadorRenovacoes,
		)
		s.notifier.Notify(ctx, events.SolicitacaoCreated{
			BaseEvent:             events.NewBaseEvent(),
			SolicitacaoID:         child.ID,
			Protocolo:             child.Protocolo,
			TipoBeneficio:         string(child.TipoBeneficio),
			UnidadeID:             child.UnidadeID,
			SolicitacaoOriginalID: child.SolicitacaoOriginalID,
		})
		s.notifier.Notify(ctx, events.SolicitacaoRenewed{
			BaseEvent:            events.NewBaseEvent(),
			SolicitacaoID:        parentID,
			RenovacaoID:          child.ID,
			ProtocoloOriginal:    result.ParentProtocol,
			Protocolo:            child.Protocolo,
			ContadorRenovacoes:   child.ContadorRenovacoes,
			DataProximaRenovacao: result.NextRenewal,
			ContatoEmail:         child.Contato.Email,
		})
	case RenewalExhausted:
		s.log.WithContext(ctx).Info("renewal limit reached", "solicitacao_id", parentID, "limit", result.Limit)
		s.notifier.Notify(ctx, events.SolicitacaoRenewalExhausted{
			BaseEvent:          events.NewBaseEvent(),
			SolicitacaoID:      parentID,
			Protocolo:          result.ParentProtocol,
			ContadorRenovacoes: result.Renewals,
			MaxRenovacoes:      result.Limit,
		})
	}
	return result, nil
}

func (s *RenewalScheduler) renew(ctx context.Context, parentID uuid.UUID) (RenewalResult, error) {
	parent, err := s.store.LoadRequest(ctx, parentID)
	if err != nil {
		return RenewalResult{}, err
	}
	if parent.Status != domain.StatusConcluida || !parent.RenovacaoAutomatica {
		return RenewalResult{Outcome: RenewalSkipped}, nil
	}

	existing, err := s.store.FindRenewalOf(ctx, parentID)
	if err != nil {
		return RenewalResult{}, err
	}
	if existing != nil {
		return RenewalResult{Outcome: RenewalSkipped, Child: existing}, nil
	}
	exhausted, err := s.alreadyExhausted(ctx, parentID)
	if err != nil {
		return RenewalResult{}, err
	}
	if exhausted {
		return RenewalResult{Outcome: RenewalSkipped}, nil
	}

	bt, ok := s.catalog.Lookup(parent.TipoBeneficio)
	if !ok {
		return RenewalResult{}, fmt.Errorf("benefit catalog has no entry for %s", parent.TipoBeneficio)
	}

	now := s.now()
	count := parent.ContadorRenovacoes + 1
	if count > bt.MaxRenovacoes {
		note := fmt.Sprintf("limite de %d renovações atingido", bt.MaxRenovacoes)
		if err := s.store.AppendHistory(ctx, domain.RenewalExhaustedEntry(parent, note, now)); err != nil {
			return RenewalResult{}, err
		}
		return RenewalResult{
			Outcome:        RenewalExhausted,
			ParentProtocol: parent.Protocolo,
			Renewals:       parent.ContadorRenovacoes,
			Limit:          bt.MaxRenovacoes,
		}, nil
	}

	next := parent.RenewalBase().AddDate(0, bt.PeriodoRenovacaoMeses, 0)
	protocolo, err := s.store.NextProtocol(ctx, now)
	if err != nil {
		return RenewalResult{}, err
	}
	originalID := parent.ID
	child := domain.Request{
		ID:                    uuid.New(),
		Protocolo:             protocolo,
		BeneficiarioID:        parent.BeneficiarioID,
		SolicitanteID:         parent.SolicitanteID,
		TipoBeneficio:         parent.TipoBeneficio,
		UnidadeID:             parent.UnidadeID,
		TecnicoID:             parent.TecnicoID,
		Status:                domain.StatusRascunho,
		RenovacaoAutomatica:   true,
		ContadorRenovacoes:    count,
		SolicitacaoOriginalID: &originalID,
		ValorCentavos:         parent.ValorCentavos,
		Contato:               parent.Contato,
		Dados:                 parent.Dados.Clone(),
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.CreateRequest(ctx, child); err != nil {
		return RenewalResult{}, err
	}

	expected := parent.Version
	parent.DataProximaRenovacao = &next
	parent.UpdatedAt = now
	if err := s.store.SaveRequest(ctx, parent, expected); err != nil {
		return RenewalResult{}, err
	}
	return RenewalResult{Outcome: RenewalCreated, Child: &child, NextRenewal: &next, ParentProtocol: parent.Protocolo}, nil
}

func (s *RenewalScheduler) alreadyExhausted(ctx context.Context, requestID uuid.UUID) (bool, error) {
	history, err := s.store.ListHistory(ctx, requestID)
	if err != nil {
		return false, err
	}
	for _, h := range history {
		if h.Motivo == domain.MotivoRenovacaoEncerrada {
			return true, nil
		}
	}
	return false, nil
}

// SweepResult counts the outcomes of one sweep.
type SweepResult struct {
	Created   int
	Exhausted int
	Skipped   int
	Failed    int
}

// Sweep renews up to limit pending candidates in parallel. A failing candidate is
// logged and counted; it does not stop the others.
func (s *RenewalScheduler) Sweep(ctx context.Context, limit int) (SweepResult, error) {
	ids, err := s.store.ListRenewalCandidates(ctx, limit)
	if err != nil {
		return SweepResult{}, err
	}

	var (
		mu     sync.Mutex
		result SweepResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			r, err := s.Renew(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				s.log.WithContext(gctx).Error("renewal sweep item failed", "solicitacao_id", id, "error", err)
				return nil
			}
			switch r.Outcome {
			case RenewalCreated:
				result.Created++
			case RenewalExhausted:
				result.Exhausted++
			default:
				result.Skipped++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}
