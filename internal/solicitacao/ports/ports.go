// Package ports defines the collaborators the request workflow engine depends on.
// Implementations live in the repository packages and in the scheduler.
package ports

import (
	"context"
	"errors"
	"time"

	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/platform/events"

	"github.com/google/uuid"
)

// ErrRenewalExists is returned by CreateRequest when the parent already has a renewal child.
var ErrRenewalExists = errors.New("renewal already exists for parent request")

// ErrPaymentExists is returned by CreatePayment when the request already has a payment plan.
var ErrPaymentExists = errors.New("payment plan already exists for request")

// UnitOfWork groups several store calls into one atomic unit.
// Stores called with the ctx passed to fn participate in the same transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RequestStore persists Requests. SaveRequest succeeds only when the stored version
// equals expectedVersion, and then stores expectedVersion+1.
type RequestStore interface {
	CreateRequest(ctx context.Context, req domain.Request) error
	LoadRequest(ctx context.Context, id uuid.UUID) (domain.Request, error)
	SaveRequest(ctx context.Context, req domain.Request, expectedVersion int) error
	NextProtocol(ctx context.Context, at time.Time) (string, error)
	// FindRenewalOf returns the child renewal of parentID, if any.
	FindRenewalOf(ctx context.Context, parentID uuid.UUID) (*domain.Request, error)
	// ListRenewalCandidates returns concluded auto-renewing requests without a child
	// and without a renewal-exhausted history row.
	ListRenewalCandidates(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// HistoryStore is the append-only status history.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry domain.StatusHistory) error
	ListHistory(ctx context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error)
}

// PendencyStore persists pendencies with optimistic versioning.
type PendencyStore interface {
	CreatePendency(ctx context.Context, p domain.Pendency) error
	LoadPendency(ctx context.Context, id uuid.UUID) (domain.Pendency, error)
	SavePendency(ctx context.Context, p domain.Pendency, expectedVersion int) error
	ListPendenciesByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Pendency, error)
}

// ApprovalStore persists approval templates and their per-request instances.
type ApprovalStore interface {
	LoadApprovalAction(ctx context.Context, code string) (domain.ApprovalAction, error)
	ListConfigApprovers(ctx context.Context, actionID uuid.UUID) ([]domain.ConfigApprover, error)
	CreateApproval(ctx context.Context, a domain.RequestApproval) error
	LoadApproval(ctx context.Context, id uuid.UUID) (domain.RequestApproval, error)
	SaveApproval(ctx context.Context, a domain.RequestApproval, expectedVersion int) error
	ListApprovalsByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.RequestApproval, error)
}

// JudicialStore persists court determinations.
type JudicialStore interface {
	SaveDeterminacao(ctx context.Context, d domain.Determinacao) error
	ActiveDeterminacao(ctx context.Context, requestID uuid.UUID) (*domain.Determinacao, error)
}

// PaymentStore persists payment plans.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p domain.Pagamento) error
	PaymentByRequest(ctx context.Context, requestID uuid.UUID) (*domain.Pagamento, error)
}

// Store is the full persistence collaborator of the engine.
type Store interface {
	UnitOfWork
	RequestStore
	HistoryStore
	PendencyStore
	ApprovalStore
	JudicialStore
	PaymentStore
}

// Notifier receives every status transition and approval decision.
// Delivery is fire-and-forget from the engine's perspective.
type Notifier interface {
	Notify(ctx context.Context, event events.Event)
}

// RenewalEnqueuer hands a concluded request over to the renewal worker.
type RenewalEnqueuer interface {
	EnqueueRenewal(ctx context.Context, requestID uuid.UUID) error
}

// BusNotifier adapts an events.Bus to Notifier.
type BusNotifier struct {
	Bus events.Bus
}

// Notify publishes event asynchronously.
func (n BusNotifier) Notify(ctx context.Context, event events.Event) {
	if n.Bus == nil {
		return
	}
	n.Bus.Publish(ctx, event)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, events.Event) {}
