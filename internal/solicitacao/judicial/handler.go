// Package judicial applies court determinations that override the regular request workflow.
package judicial

import (
	"context"
	"strings"
	"time"

	"beneficios_backend/internal/events"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/ports"
	"beneficios_backend/internal/solicitacao/retry"
	"beneficios_backend/platform/apperr"
	"beneficios_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence the handler needs.
type Store interface {
	ports.UnitOfWork
	ports.JudicialStore
	LoadRequest(ctx context.Context, id uuid.UUID) (domain.Request, error)
	SaveRequest(ctx context.Context, req domain.Request, expectedVersion int) error
}

// Dispenser marks the approvals of a request as irrelevant.
type Dispenser interface {
	Dispense(ctx context.Context, requestID uuid.UUID) (int, error)
}

// Forcer walks a request to target through allow-listed steps without gates.
type Forcer interface {
	Force(ctx context.Context, requestID uuid.UUID, target domain.Status, actor domain.Actor, observation string) (domain.Request, error)
}

// Input is a court determination as received from the caller.
type Input struct {
	Tipo             string
	NumeroProcesso   string
	Orgao            string
	Descricao        string
	DataDeterminacao time.Time
}

type Handler struct {
	store      Store
	approvals  Dispenser
	forcer     Forcer
	notifier   ports.Notifier
	log        *logger.Logger
	now        func() time.Time
	maxRetries int
}

// Config carries the optional collaborators of a Handler.
type Config struct {
	Notifier   ports.Notifier
	Log        *logger.Logger
	Now        func() time.Time
	MaxRetries int
}

func New(store Store, approvals Dispenser, forcer Forcer, cfg Config) *Handler {
	h := &Handler{
		store:      store,
		approvals:  approvals,
		forcer:     forcer,
		notifier:   cfg.Notifier,
		log:        cfg.Log,
		now:        cfg.Now,
		maxRetries: cfg.MaxRetries,
	}
	if h.notifier == nil {
		h.notifier = ports.NopNotifier{}
	}
	if h.log == nil {
		h.log = logger.Nop()
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	return h
}

// Apply registers the determination, links it to the request, dispenses its approvals
// and forces the request to the directive's target. It returns the resulting status.
func (h *Handler) Apply(ctx context.Context, requestID uuid.UUID, in Input, actor domain.Actor) (domain.Status, error) {
	if !actor.IsSystem() && !actor.Role.CanApplyJudicial() {
		return "", domain.Unauthorized("role cannot register court determinations")
	}
	tipo, err := domain.ParseTipoDeterminacao(in.Tipo)
	if err != nil {
		h.log.WithContext(ctx).SchemaViolation("determinacao_judicial", "tipo", in.Tipo)
		return "", err
	}
	if strings.TrimSpace(in.NumeroProcesso) == "" {
		return "", apperr.Validation("numero_processo is required")
	}

	var (
		det   domain.Determinacao
		final domain.Status
	)
	err = retry.OnConflict(ctx, h.maxRetries, func(ctx context.Context) error {
		return h.store.RunInTx(ctx, func(ctx context.Context) error {
			req, err := h.store.LoadRequest(ctx, requestID)
			if err != nil {
				return err
			}
			if req.Status.IsTerminal() {
				return domain.TerminalRequest(req.ID, req.Status)
			}

			now := h.now()
			if previous, err := h.store.ActiveDeterminacao(ctx, requestID); err != nil {
				return err
			} else if previous != nil {
				previous.Ativa = false
				if err := h.store.SaveDeterminacao(ctx, *previous); err != nil {
					return err
				}
			}

			det = domain.Determinacao{
				ID:               uuid.New(),
				SolicitacaoID:    requestID,
				Tipo:             tipo,
				NumeroProcesso:   strings.TrimSpace(in.NumeroProcesso),
				Orgao:            strings.TrimSpace(in.Orgao),
				Descricao:        strings.TrimSpace(in.Descricao),
				DataDeterminacao: in.DataDeterminacao,
				Ativa:            true,
				CreatedAt:        now,
			}
			if det.DataDeterminacao.IsZero() {
				det.DataDeterminacao = now
			}
			if err := h.store.SaveDeterminacao(ctx, det); err != nil {
				return err
			}

			expected := req.Version
			req.DeterminacaoJudicial = true
			req.DeterminacaoJudicialID = &det.ID
			req.UpdatedAt = now
			if err := h.store.SaveRequest(ctx, req, expected); err != nil {
				return err
			}

			if _, err := h.approvals.Dispense(ctx, requestID); err != nil {
				return err
			}

			final = req.Status
			target := tipo.TargetStatus(req.Status)
			if !h.needsTransition(req.Status, target) {
				return nil
			}
			forced, err := h.forcer.Force(ctx, requestID, target, actor, "processo "+det.NumeroProcesso)
			if err != nil {
				return err
			}
			final = forced.Status
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	h.log.WithContext(ctx).Info("court determination applied",
		"solicitacao_id", requestID,
		"determinacao_id", det.ID,
		"tipo", tipo,
		"status", final,
	)
	h.notifier.Notify(ctx, events.DeterminacaoJudicialApplied{
		BaseEvent:      events.NewBaseEvent(),
		DeterminacaoID: det.ID,
		SolicitacaoID:  requestID,
		Tipo:           string(tipo),
		NumeroProcesso: det.NumeroProcesso,
		StatusFinal:    string(final),
	})
	return final, nil
}

// needsTransition reports whether current must move to reach target. A concessao
// against a request already released, or being paid, leaves it where it is.
func (h *Handler) needsTransition(current, target domain.Status) bool {
	if current == target {
		return false
	}
	return domain.PathTo(current, target) != nil
}

// Active returns the determination currently in force for the request, if any.
func (h *Handler) Active(ctx context.Context, requestID uuid.UUID) (*domain.Determinacao, error) {
	return h.store.ActiveDeterminacao(ctx, requestID)
}
