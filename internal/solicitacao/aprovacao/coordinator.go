// Package aprovacao runs the multi-approver sign-off protocol of critical request actions.
package aprovacao

import (
	"context"
	"errors"
	"time"

	"beneficios_backend/internal/events"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/metrics"
	"beneficios_backend/internal/solicitacao/ports"
	"beneficios_backend/internal/solicitacao/retry"
	"beneficios_backend/platform/logger"

	"github.com/google/uuid"
)

type Coordinator struct {
	store      ports.ApprovalStore
	notifier   ports.Notifier
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
	maxRetries int
}

// Config carries the optional collaborators of a Coordinator.
type Config struct {
	Notifier   ports.Notifier
	Metrics    *metrics.Metrics
	Log        *logger.Logger
	Now        func() time.Time
	MaxRetries int
}

func New(store ports.ApprovalStore, cfg Config) *Coordinator {
	c := &Coordinator{
		store:      store,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		log:        cfg.Log,
		now:        cfg.Now,
		maxRetries: cfg.MaxRetries,
	}
	if c.notifier == nil {
		c.notifier = ports.NopNotifier{}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// Instantiate opens the approval of actionCode for req. A live approval of the same
// action is returned as is. A rejected one is dispensed and replaced by a fresh instance.
func (c *Coordinator) Instantiate(ctx context.Context, req domain.Request, actionCode string) (domain.RequestApproval, error) {
	action, err := c.store.LoadApprovalAction(ctx, actionCode)
	if err != nil {
		return domain.RequestApproval{}, err
	}

	existing, err := c.store.ListApprovalsByRequest(ctx, req.ID)
	if err != nil {
		return domain.RequestApproval{}, err
	}
	var rejected []uuid.UUID
	for _, a := range existing {
		if a.AcaoID != action.ID || a.Dispensada {
			continue
		}
		if a.Status != domain.AprovacaoRejeitada {
			return a, nil
		}
		rejected = append(rejected, a.ID)
	}

	candidates, err := c.store.ListConfigApprovers(ctx, action.ID)
	if err != nil {
		return domain.RequestApproval{}, err
	}
	approval, err := domain.NewRequestApproval(action, req, candidates, c.now())
	if err != nil {
		return domain.RequestApproval{}, err
	}
	for _, id := range rejected {
		if err := c.dispense(ctx, id); err != nil {
			return domain.RequestApproval{}, err
		}
	}
	if err := c.store.CreateApproval(ctx, approval); err != nil {
		return domain.RequestApproval{}, err
	}

	c.log.WithContext(ctx).Info("approval opened",
		"aprovacao_id", approval.ID,
		"solicitacao_id", req.ID,
		"acao", action.Codigo,
		"aprovadores", len(approval.Aprovadores),
	)
	return approval, nil
}

// RecordDecision applies one approver's decision against the current approval version.
func (c *Coordinator) RecordDecision(ctx context.Context, approvalID, approverID uuid.UUID, decision domain.Decisao, justificativa string, anexos ...string) (domain.AggregateStatus, error) {
	var decided domain.RequestApproval
	err := retry.OnConflict(ctx, c.maxRetries, func(ctx context.Context) error {
		a, err := c.store.LoadApproval(ctx, approvalID)
		if err != nil {
			return err
		}
		expected := a.Version
		if err := a.Decide(approverID, decision, justificativa, anexos, c.now()); err != nil {
			return err
		}
		if err := c.store.SaveApproval(ctx, a, expected); err != nil {
			if errors.Is(err, domain.ErrConcurrentModification) {
				c.metrics.IncrementConflict("solicitacao_aprovacao")
			}
			return err
		}
		a.Version = expected + 1
		decided = a
		return nil
	})
	if err != nil {
		return "", err
	}

	c.metrics.IncrementDecision(string(decision), string(decided.Status))
	c.log.WithContext(ctx).ApprovalDecision(decided.ID.String(), approverID.String(), string(decision), string(decided.Status))
	c.notifier.Notify(ctx, events.AprovacaoDecisionRecorded{
		BaseEvent:     events.NewBaseEvent(),
		AprovacaoID:   decided.ID,
		SolicitacaoID: decided.SolicitacaoID,
		AprovadorID:   approverID,
		Decisao:       string(decision),
		StatusGeral:   string(decided.Status),
	})
	return decided.Status, nil
}

// Summary is the combined outcome of every live approval linked to a request.
type Summary struct {
	Status      domain.AggregateStatus
	Linked      int
	Outstanding []uuid.UUID
}

// Aggregate summarises the non-dispensed approvals of a request. Any rejection
// rejects the request-level outcome; otherwise every approval must be approved.
func (c *Coordinator) Aggregate(ctx context.Context, requestID uuid.UUID) (Summary, error) {
	approvals, err := c.store.ListApprovalsByRequest(ctx, requestID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Status: domain.AprovacaoAprovada}
	for _, a := range approvals {
		if a.Dispensada {
			continue
		}
		summary.Linked++
		switch a.Status {
		case domain.AprovacaoRejeitada:
			summary.Status = domain.AprovacaoRejeitada
			summary.Outstanding = append(summary.Outstanding, a.ID)
		case domain.AprovacaoPendente:
			if summary.Status != domain.AprovacaoRejeitada {
				summary.Status = domain.AprovacaoPendente
			}
			summary.Outstanding = append(summary.Outstanding, a.ID)
		}
	}
	return summary, nil
}

// Dispense marks every live approval of the request as irrelevant. Records are kept.
func (c *Coordinator) Dispense(ctx context.Context, requestID uuid.UUID) (int, error) {
	approvals, err := c.store.ListApprovalsByRequest(ctx, requestID)
	if err != nil {
		return 0, err
	}

	dispensed := 0
	for _, listed := range approvals {
		if listed.Dispensada {
			continue
		}
		if err := c.dispense(ctx, listed.ID); err != nil {
			return dispensed, err
		}
		dispensed++
	}
	return dispensed, nil
}

func (c *Coordinator) dispense(ctx context.Context, approvalID uuid.UUID) error {
	return retry.OnConflict(ctx, c.maxRetries, func(ctx context.Context) error {
		a, err := c.store.LoadApproval(ctx, approvalID)
		if err != nil {
			return err
		}
		if a.Dispensada {
			return nil
		}
		expected := a.Version
		a.Dispensada = true
		a.UpdatedAt = c.now()
		return c.store.SaveApproval(ctx, a, expected)
	})
}

// List returns every approval of a request including dispensed ones.
func (c *Coordinator) List(ctx context.Context, requestID uuid.UUID) ([]domain.RequestApproval, error) {
	return c.store.ListApprovalsByRequest(ctx, requestID)
}

// Get loads one approval.
func (c *Coordinator) Get(ctx context.Context, approvalID uuid.UUID) (domain.RequestApproval, error) {
	return c.store.LoadApproval(ctx, approvalID)
}
