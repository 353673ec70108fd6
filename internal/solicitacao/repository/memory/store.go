// Package memory is an in-process implementation of ports.Store.
// It backs unit tests and local runs without PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/ports"

	"github.com/google/uuid"
)

type txKey struct{}

type state struct {
	requests     map[uuid.UUID]domain.Request
	history      map[uuid.UUID][]domain.StatusHistory
	pendencies   map[uuid.UUID]domain.Pendency
	actions      map[string]domain.ApprovalAction
	configs      map[uuid.UUID][]domain.ConfigApprover
	approvals    map[uuid.UUID]domain.RequestApproval
	determinacao map[uuid.UUID]domain.Determinacao
	payments     map[uuid.UUID]domain.Pagamento
	protocols    map[int]int
}

func newState() state {
	return state{
		requests:     make(map[uuid.UUID]domain.Request),
		history:      make(map[uuid.UUID][]domain.StatusHistory),
		pendencies:   make(map[uuid.UUID]domain.Pendency),
		actions:      make(map[string]domain.ApprovalAction),
		configs:      make(map[uuid.UUID][]domain.ConfigApprover),
		approvals:    make(map[uuid.UUID]domain.RequestApproval),
		determinacao: make(map[uuid.UUID]domain.Determinacao),
		payments:     make(map[uuid.UUID]domain.Pagamento),
		protocols:    make(map[int]int),
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.requests {
		out.requests[k] = cloneRequest(v)
	}
	for k, v := range s.history {
		out.history[k] = append([]domain.StatusHistory(nil), v...)
	}
	for k, v := range s.pendencies {
		out.pendencies[k] = v
	}
	for k, v := range s.actions {
		out.actions[k] = v
	}
	for k, v := range s.configs {
		out.configs[k] = append([]domain.ConfigApprover(nil), v...)
	}
	for k, v := range s.approvals {
		out.approvals[k] = v.Clone()
	}
	for k, v := range s.determinacao {
		out.determinacao[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = clonePayment(v)
	}
	for k, v := range s.protocols {
		out.protocols[k] = v
	}
	return out
}

// Store keeps every entity in maps guarded by one mutex.
// RunInTx serializes transactions and rolls the whole state back when fn fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newState()}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// writeLock serialises a write made outside RunInTx with running transactions so a
// rollback never discards it. Writes inside a transaction already hold txMu.
func (s *Store) writeLock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

// AddApprovalAction seeds an approval template.
func (s *Store) AddApprovalAction(action domain.ApprovalAction, approvers ...domain.ConfigApprover) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.actions[action.Codigo] = action
	for _, a := range approvers {
		a.AcaoID = action.ID
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		s.data.configs[action.ID] = append(s.data.configs[action.ID], a)
	}
}

// ---- requests ----

func (s *Store) CreateRequest(ctx context.Context, req domain.Request) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.requests[req.ID]; exists {
		return fmt.Errorf("solicitacao %s already exists", req.ID)
	}
	if req.SolicitacaoOriginalID != nil {
		for _, other := range s.data.requests {
			if other.SolicitacaoOriginalID != nil && *other.SolicitacaoOriginalID == *req.SolicitacaoOriginalID {
				return ports.ErrRenewalExists
			}
		}
	}
	if req.Version == 0 {
		req.Version = 1
	}
	s.data.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *Store) LoadRequest(_ context.Context, id uuid.UUID) (domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.data.requests[id]
	if !ok {
		return domain.Request{}, domain.NotFound("solicitacao", id)
	}
	return cloneRequest(req), nil
}

func (s *Store) SaveRequest(ctx context.Context, req domain.Request, expectedVersion int) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data.requests[req.ID]
	if !ok {
		return domain.NotFound("solicitacao", req.ID)
	}
	if current.Version != expectedVersion {
		return domain.ConcurrentModification("solicitacao", req.ID, expectedVersion)
	}
	req.Version = expectedVersion + 1
	s.data.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *Store) NextProtocol(ctx context.Context, at time.Time) (string, error) {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	year := at.UTC().Year()
	s.data.protocols[year]++
	return fmt.Sprintf("SOL-%d-%06d", year, s.data.protocols[year]), nil
}

func (s *Store) FindRenewalOf(_ context.Context, parentID uuid.UUID) (*domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.data.requests {
		if req.SolicitacaoOriginalID != nil && *req.SolicitacaoOriginalID == parentID {
			out := cloneRequest(req)
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListRenewalCandidates(_ context.Context, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	renewed := make(map[uuid.UUID]bool)
	for _, req := range s.data.requests {
		if req.SolicitacaoOriginalID != nil {
			renewed[*req.SolicitacaoOriginalID] = true
		}
	}

	var candidates []domain.Request
	for _, req := range s.data.requests {
		if req.Status != domain.StatusConcluida || !req.RenovacaoAutomatica || renewed[req.ID] {
			continue
		}
		if s.exhaustedLocked(req.ID) {
			continue
		}
		candidates = append(candidates, req)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].RenewalBase().Before(candidates[j].RenewalBase())
	})

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *Store) exhaustedLocked(id uuid.UUID) bool {
	for _, h := range s.data.history[id] {
		if h.Motivo == domain.MotivoRenovacaoEncerrada {
			return true
		}
	}
	return false
}

// ---- history ----

func (s *Store) AppendHistory(ctx context.Context, entry domain.StatusHistory) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.history[entry.SolicitacaoID] = append(s.data.history[entry.SolicitacaoID], entry)
	return nil
}

func (s *Store) ListHistory(_ context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.StatusHistory(nil), s.data.history[requestID]...), nil
}

// ---- pendencies ----

func (s *Store) CreatePendency(ctx context.Context, p domain.Pendency) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.requests[p.SolicitacaoID]; !ok {
		return domain.NotFound("solicitacao", p.SolicitacaoID)
	}
	if p.Version == 0 {
		p.Version = 1
	}
	s.data.pendencies[p.ID] = p
	return nil
}

func (s *Store) LoadPendency(_ context.Context, id uuid.UUID) (domain.Pendency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.pendencies[id]
	if !ok {
		return domain.Pendency{}, domain.NotFound("pendencia", id)
	}
	return p, nil
}

func (s *Store) SavePendency(ctx context.Context, p domain.Pendency, expectedVersion int) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.data.pendencies[p.ID]
	if !ok {
		return domain.NotFound("pendencia", p.ID)
	}
	if current.Version != expectedVersion {
		return domain.ConcurrentModification("pendencia", p.ID, expectedVersion)
	}
	p.Version = expectedVersion + 1
	s.data.pendencies[p.ID] = p
	return nil
}

func (s *Store) ListPendenciesByRequest(_ context.Context, requestID uuid.UUID) ([]domain.Pendency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Pendency
	for _, p := range s.data.pendencies {
		if p.SolicitacaoID == requestID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- approvals ----

func (s *Store) LoadApprovalAction(_ context.Context, code string) (domain.ApprovalAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	action, ok := s.data.actions[code]
	if !ok {
		return domain.ApprovalAction{}, domain.NotFoundByKey("acao_aprovacao", code)
	}
	return action, nil
}

func (s *Store) ListConfigApprovers(_ context.Context, actionID uuid.UUID) ([]domain.ConfigApprover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ConfigApprover(nil), s.data.configs[actionID]...), nil
}

func (s *Store) CreateApproval(ctx context.Context, a domain.RequestApproval) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Version == 0 {
		a.Version = 1
	}
	s.data.approvals[a.ID] = a.Clone()
	return nil
}

func (s *Store) LoadApproval(_ context.Context, id uuid.UUID) (domain.RequestApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data.approvals[id]
	if !ok {
		return domain.RequestApproval{}, domain.NotFound("solicitacao_aprovacao", id)
	}
	return a.Clone(), nil
}

func (s *Store) SaveApproval(ctx context.Context, a domain.RequestApproval, expectedVersion int) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.data.approvals[a.ID]
	if !ok {
		return domain.NotFound("solicitacao_aprovacao", a.ID)
	}
	if current.Version != expectedVersion {
		return domain.ConcurrentModification("solicitacao_aprovacao", a.ID, expectedVersion)
	}
	a = a.Clone()
	a.Version = expectedVersion + 1
	s.data.approvals[a.ID] = a
	return nil
}

func (s *Store) ListApprovalsByRequest(_ context.Context, requestID uuid.UUID) ([]domain.RequestApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RequestApproval
	for _, a := range s.data.approvals {
		if a.SolicitacaoID == requestID {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- judicial ----

func (s *Store) SaveDeterminacao(ctx context.Context, d domain.Determinacao) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.determinacao[d.ID] = d
	return nil
}

func (s *Store) ActiveDeterminacao(_ context.Context, requestID uuid.UUID) (*domain.Determinacao, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.Determinacao
	for _, d := range s.data.determinacao {
		if d.SolicitacaoID != requestID || !d.Ativa {
			continue
		}
		if latest == nil || d.DataDeterminacao.After(latest.DataDeterminacao) {
			v := d
			latest = &v
		}
	}
	return latest, nil
}

// ---- payments ----

func (s *Store) CreatePayment(ctx context.Context, p domain.Pagamento) error {
	defer s.writeLock(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.payments[p.SolicitacaoID]; exists {
		return ports.ErrPaymentExists
	}
	s.data.payments[p.SolicitacaoID] = clonePayment(p)
	return nil
}

func (s *Store) PaymentByRequest(_ context.Context, requestID uuid.UUID) (*domain.Pagamento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.payments[requestID]
	if !ok {
		return nil, nil
	}
	out := clonePayment(p)
	return &out, nil
}

func cloneRequest(r domain.Request) domain.Request {
	r.Dados = r.Dados.Clone()
	return r
}

func clonePayment(p domain.Pagamento) domain.Pagamento {
	p.Parcelas = append([]domain.Parcela(nil), p.Parcelas...)
	return p
}
