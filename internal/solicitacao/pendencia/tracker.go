// Package pendencia tracks the blocking issues raised against a request while it is analysed.
package pendencia

import (
	"context"
	"errors"
	"strings"
	"time"

	"beneficios_backend/internal/events"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/metrics"
	"beneficios_backend/internal/solicitacao/ports"
	"beneficios_backend/internal/solicitacao/retry"
	"beneficios_backend/platform/apperr"
	"beneficios_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence the tracker needs.
type Store interface {
	ports.UnitOfWork
	LoadRequest(ctx context.Context, id uuid.UUID) (domain.Request, error)
	SaveRequest(ctx context.Context, req domain.Request, expectedVersion int) error
	ports.PendencyStore
}

type Tracker struct {
	store      Store
	notifier   ports.Notifier
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
	maxRetries int
}

// Config carries the optional collaborators of a Tracker.
type Config struct {
	Notifier   ports.Notifier
	Metrics    *metrics.Metrics
	Log        *logger.Logger
	Now        func() time.Time
	MaxRetries int
}

func New(store Store, cfg Config) *Tracker {
	t := &Tracker{
		store:      store,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		log:        cfg.Log,
		now:        cfg.Now,
		maxRetries: cfg.MaxRetries,
	}
	if t.notifier == nil {
		t.notifier = ports.NopNotifier{}
	}
	if t.log == nil {
		t.log = logger.Nop()
	}
	if t.now == nil {
		t.now = func() time.Time { return time.Now().UTC() }
	}
	return t
}

// Open raises a new pendency against a non-terminal request. The request version is
// bumped in the same transaction, so a transition checked against the previous version
// fails with a concurrent modification instead of missing the pendency.
func (t *Tracker) Open(ctx context.Context, requestID uuid.UUID, description string, raisedBy domain.Actor) (uuid.UUID, error) {
	if !raisedBy.Role.CanMutateRequests() {
		return uuid.Nil, domain.Unauthorized("role cannot raise pendencies")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return uuid.Nil, apperr.Validation("description is required")
	}

	var (
		req domain.Request
		p   domain.Pendency
	)
	err := retry.OnConflict(ctx, t.maxRetries, func(ctx context.Context) error {
		return t.store.RunInTx(ctx, func(ctx context.Context) error {
			var err error
			req, err = t.store.LoadRequest(ctx, requestID)
			if err != nil {
				return err
			}
			if req.Status.IsTerminal() {
				return domain.TerminalRequest(req.ID, req.Status)
			}

			now := t.now()
			expected := req.Version
			req.UpdatedAt = now
			if err := t.store.SaveRequest(ctx, req, expected); err != nil {
				if errors.Is(err, domain.ErrConcurrentModification) {
					t.metrics.IncrementConflict("solicitacao")
				}
				return err
			}
			req.Version = expected + 1

			p = domain.Pendency{
				ID:            uuid.New(),
				SolicitacaoID: requestID,
				Descricao:     description,
				Status:        domain.PendenciaAberta,
				RegistradoPor: raisedBy.ID,
				Version:       1,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			return t.store.CreatePendency(ctx, p)
		})
	})
	if err != nil {
		return uuid.Nil, err
	}

	t.metrics.IncrementPendency("opened")
	t.log.WithContext(ctx).Info("pendency opened", "pendencia_id", p.ID, "solicitacao_id", requestID)
	t.notifier.Notify(ctx, events.PendenciaOpened{
		BaseEvent:     events.NewBaseEvent(),
		PendenciaID:   p.ID,
		SolicitacaoID: requestID,
		Protocolo:     req.Protocolo,
		Descricao:     description,
		RegistradoPor: raisedBy.ID,
		ContatoEmail:  req.Contato.Email,
	})
	return p.ID, nil
}

// Resolve closes a pendency. Resolving an already resolved pendency succeeds without writing.
func (t *Tracker) Resolve(ctx context.Context, pendencyID uuid.UUID, resolvedBy domain.Actor, note string) error {
	return t.close(ctx, pendencyID, resolvedBy, note, domain.PendenciaResolvida)
}

// Cancel withdraws a pendency raised by mistake. Cancelling twice succeeds without writing.
func (t *Tracker) Cancel(ctx context.Context, pendencyID uuid.UUID, actor domain.Actor, note string) error {
	return t.close(ctx, pendencyID, actor, note, domain.PendenciaCancelada)
}

func (t *Tracker) close(ctx context.Context, pendencyID uuid.UUID, actor domain.Actor, note string, target domain.PendencyStatus) error {
	if !actor.Role.CanMutateRequests() {
		return domain.Unauthorized("role cannot change pendencies")
	}

	var changed domain.Pendency
	err := retry.OnConflict(ctx, t.maxRetries, func(ctx context.Context) error {
		p, err := t.store.LoadPendency(ctx, pendencyID)
		if err != nil {
			return err
		}
		if p.Status == target {
			changed = domain.Pendency{}
			return nil
		}
		if !p.IsBlocking() {
			return apperr.Conflict("pendency is already " + string(p.Status)).
				WithDetails(map[string]any{"pendencia_id": p.ID, "status": p.Status})
		}

		now := t.now()
		expected := p.Version
		p.Status = target
		p.ResolvidoPor = actor.HistoryUserID()
		p.DataResolucao = &now
		p.ObservacaoResolucao = strings.TrimSpace(note)
		p.UpdatedAt = now
		if err := t.store.SavePendency(ctx, p, expected); err != nil {
			if errors.Is(err, domain.ErrConcurrentModification) {
				t.metrics.IncrementConflict("pendencia")
			}
			return err
		}
		p.Version = expected + 1
		changed = p
		return nil
	})
	if err != nil || changed.ID == uuid.Nil {
		return err
	}

	t.metrics.IncrementPendency(string(target))
	t.log.WithContext(ctx).Info("pendency closed", "pendencia_id", changed.ID, "solicitacao_id", changed.SolicitacaoID, "status", target)
	t.notifier.Notify(ctx, events.PendenciaResolved{
		BaseEvent:     events.NewBaseEvent(),
		PendenciaID:   changed.ID,
		SolicitacaoID: changed.SolicitacaoID,
		Status:        string(target),
	})
	return nil
}

// StartResolution marks an open pendency as being worked on. It still blocks its request.
func (t *Tracker) StartResolution(ctx context.Context, pendencyID uuid.UUID, actor domain.Actor) error {
	if !actor.Role.CanMutateRequests() {
		return domain.Unauthorized("role cannot change pendencies")
	}
	return retry.OnConflict(ctx, t.maxRetries, func(ctx context.Context) error {
		p, err := t.store.LoadPendency(ctx, pendencyID)
		if err != nil {
			return err
		}
		switch p.Status {
		case domain.PendenciaEmResolucao:
			return nil
		case domain.PendenciaAberta:
		default:
			return apperr.Conflict("pendency is already " + string(p.Status))
		}
		expected := p.Version
		p.Status = domain.PendenciaEmResolucao
		p.UpdatedAt = t.now()
		return t.store.SavePendency(ctx, p, expected)
	})
}

// ListByRequest returns every pendency of the request, oldest first.
func (t *Tracker) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Pendency, error) {
	return t.store.ListPendenciesByRequest(ctx, requestID)
}

// Blocking returns the pendencies that still hold the request back.
func (t *Tracker) Blocking(ctx context.Context, requestID uuid.UUID) ([]domain.Pendency, error) {
	all, err := t.store.ListPendenciesByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	var out []domain.Pendency
	for _, p := range all {
		if p.IsBlocking() {
			out = append(out, p)
		}
	}
	return out, nil
}

// HasBlocking reports whether any pendency of the request is unresolved.
func (t *Tracker) HasBlocking(ctx context.Context, requestID uuid.UUID) (bool, error) {
	blocking, err := t.Blocking(ctx, requestID)
	if err != nil {
		return false, err
	}
	return len(blocking) > 0, nil
}
