// Package service holds the request state machine and the renewal scheduler.
// Every status change of a request goes through StateMachine.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"beneficios_backend/internal/events"
	"beneficios_backend/internal/solicitacao/aprovacao"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/eligibility"
	"beneficios_backend/internal/solicitacao/judicial"
	"beneficios_backend/internal/solicitacao/metrics"
	"beneficios_backend/internal/solicitacao/pendencia"
	"beneficios_backend/internal/solicitacao/ports"
	"beneficios_backend/internal/solicitacao/retry"
	"beneficios_backend/platform/apperr"
	"beneficios_backend/platform/logger"
	"beneficios_backend/platform/phone"

	"github.com/google/uuid"
)

// Config carries the optional collaborators of the engine.
type Config struct {
	Notifier          ports.Notifier
	Enqueuer          ports.RenewalEnqueuer
	Metrics           *metrics.Metrics
	Log               *logger.Logger
	Now               func() time.Time
	MaxRetries        int
	SweepParallelism  int
	EligibilityOption []eligibility.Option
}

type StateMachine struct {
	store       ports.Store
	catalog     *domain.Catalog
	eligibility *eligibility.Validator
	pendencies  *pendencia.Tracker
	approvals   *aprovacao.Coordinator
	judicial    *judicial.Handler
	renewals    *RenewalScheduler
	enqueuer    ports.RenewalEnqueuer
	notifier    ports.Notifier
	metrics     *metrics.Metrics
	log         *logger.Logger
	now         func() time.Time
	maxRetries  int
}

// New wires the engine components around one store.
func New(store ports.Store, catalog *domain.Catalog, cfg Config) *StateMachine {
	if cfg.Notifier == nil {
		cfg.Notifier = ports.NopNotifier{}
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = retry.DefaultAttempts
	}

	sm := &StateMachine{
		store:       store,
		catalog:     catalog,
		eligibility: eligibility.New(catalog, append([]eligibility.Option{eligibility.WithClock(cfg.Now)}, cfg.EligibilityOption...)...),
		enqueuer:    cfg.Enqueuer,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		log:         cfg.Log,
		now:         cfg.Now,
		maxRetries:  cfg.MaxRetries,
	}
	sm.pendencies = pendencia.New(store, pendencia.Config{
		Notifier: cfg.Notifier, Metrics: cfg.Metrics, Log: cfg.Log, Now: cfg.Now, MaxRetries: cfg.MaxRetries,
	})
	sm.approvals = aprovacao.New(store, aprovacao.Config{
		Notifier: cfg.Notifier, Metrics: cfg.Metrics, Log: cfg.Log, Now: cfg.Now, MaxRetries: cfg.MaxRetries,
	})
	sm.judicial = judicial.New(store, sm.approvals, sm, judicial.Config{
		Notifier: cfg.Notifier, Log: cfg.Log, Now: cfg.Now, MaxRetries: cfg.MaxRetries,
	})
	sm.renewals = NewRenewalScheduler(store, catalog, RenewalConfig{
		Notifier: cfg.Notifier, Metrics: cfg.Metrics, Log: cfg.Log, Now: cfg.Now,
		MaxRetries: cfg.MaxRetries, Parallelism: cfg.SweepParallelism,
	})
	return sm
}

func (sm *StateMachine) Pendencies() *pendencia.Tracker    { return sm.pendencies }
func (sm *StateMachine) Approvals() *aprovacao.Coordinator { return sm.approvals }
func (sm *StateMachine) Judicial() *judicial.Handler       { return sm.judicial }
func (sm *StateMachine) Renewals() *RenewalScheduler       { return sm.renewals }
func (sm *StateMachine) Eligibility() *eligibility.Validator {
	return sm.eligibility
}

// CreateDraftInput is what a technician fills in to register a request.
type CreateDraftInput struct {
	BeneficiarioID      uuid.UUID
	SolicitanteID       *uuid.UUID
	TipoBeneficio       string
	UnidadeID           uuid.UUID
	TecnicoID           *uuid.UUID
	ValorCentavos       int64
	RenovacaoAutomatica bool
	Contato             domain.Contato
	Dados               domain.TypeSpecificData
}

// CreateDraft registers a new request in rascunho with a fresh protocol number.
func (sm *StateMachine) CreateDraft(ctx context.Context, in CreateDraftInput, actor domain.Actor) (domain.Request, error) {
	if !actor.Role.CanMutateRequests() {
		return domain.Request{}, domain.Unauthorized("role cannot register requests")
	}
	tipo, err := domain.ParseTipoBeneficio(in.TipoBeneficio)
	if err != nil {
		return domain.Request{}, apperr.Validation("unknown benefit type").WithDetails([]domain.FieldError{
			{Field: "tipo_beneficio", Rule: "oneof", Message: "unknown benefit type " + in.TipoBeneficio},
		})
	}
	bt, ok := sm.catalog.Lookup(tipo)
	if !ok {
		return domain.Request{}, apperr.Internal("benefit catalog has no entry for " + string(tipo))
	}
	if in.Dados.Tipo == "" {
		in.Dados.Tipo = tipo
	}
	if !in.Dados.Matches(tipo) {
		return domain.Request{}, apperr.Validation("payload does not match the benefit type").WithDetails([]domain.FieldError{
			{Field: "tipo", Rule: "discriminator", Message: "dados must carry exactly the " + string(tipo) + " payload"},
		})
	}
	contato, err := normalizeContato(in.Contato)
	if err != nil {
		return domain.Request{}, err
	}

	now := sm.now()
	tecnico := actor.ID
	if in.TecnicoID != nil {
		tecnico = *in.TecnicoID
	}
	valor := in.ValorCentavos
	if valor == 0 {
		valor = bt.ValorPadraoCentavos
	}

	req := domain.Request{
		ID:                  uuid.New(),
		BeneficiarioID:      in.BeneficiarioID,
		SolicitanteID:       in.SolicitanteID,
		TipoBeneficio:       tipo,
		UnidadeID:           in.UnidadeID,
		TecnicoID:           tecnico,
		Status:              domain.StatusRascunho,
		RenovacaoAutomatica: in.RenovacaoAutomatica,
		ValorCentavos:       valor,
		Contato:             contato,
		Dados:               in.Dados.Clone(),
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = sm.store.RunInTx(ctx, func(ctx context.Context) error {
		protocolo, err := sm.store.NextProtocol(ctx, now)
		if err != nil {
			return err
		}
		req.Protocolo = protocolo
		return sm.store.CreateRequest(ctx, req)
	})
	if err != nil {
		return domain.Request{}, err
	}

	sm.log.WithContext(ctx).Info("request registered", "solicitacao_id", req.ID, "protocolo", req.Protocolo, "tipo", tipo)
	sm.notifier.Notify(ctx, events.SolicitacaoCreated{
		BaseEvent:     events.NewBaseEvent(),
		SolicitacaoID: req.ID,
		Protocolo:     req.Protocolo,
		TipoBeneficio: string(tipo),
		UnidadeID:     req.UnidadeID,
	})
	return req, nil
}

// EditDraftInput replaces the editable parts of a draft. Nil fields are kept.
type EditDraftInput struct {
	ValorCentavos       *int64
	RenovacaoAutomatica *bool
	Contato             *domain.Contato
	Dados               *domain.TypeSpecificData
}

// EditDraft changes a request still in rascunho, such as a pre-populated renewal.
func (sm *StateMachine) EditDraft(ctx context.Context, requestID uuid.UUID, expectedVersion int, in EditDraftInput, actor domain.Actor) (domain.Request, error) {
	if !actor.Role.CanMutateRequests() {
		return domain.Request{}, domain.Unauthorized("role cannot edit requests")
	}

	req, err := sm.store.LoadRequest(ctx, requestID)
	if err != nil {
		return domain.Request{}, err
	}
	if req.Status != domain.StatusRascunho {
		return domain.Request{}, apperr.Conflict("only drafts can be edited").WithCode(domain.CodeInvalidTransition)
	}
	if req.Version != expectedVersion {
		return domain.Request{}, domain.ConcurrentModification("solicitacao", req.ID, expectedVersion)
	}

	if in.Dados != nil {
		dados := in.Dados.Clone()
		if dados.Tipo == "" {
			dados.Tipo = req.TipoBeneficio
		}
		if !dados.Matches(req.TipoBeneficio) {
			return domain.Request{}, apperr.Validation("payload does not match the benefit type")
		}
		req.Dados = dados
	}
	if in.ValorCentavos != nil {
		req.ValorCentavos = *in.ValorCentavos
	}
	if in.RenovacaoAutomatica != nil {
		req.RenovacaoAutomatica = *in.RenovacaoAutomatica
	}
	if in.Contato != nil {
		contato, err := normalizeContato(*in.Contato)
		if err != nil {
			return domain.Request{}, err
		}
		req.Contato = contato
	}
	req.UpdatedAt = sm.now()

	if err := sm.store.SaveRequest(ctx, req, expectedVersion); err != nil {
		return domain.Request{}, err
	}
	req.Version = expectedVersion + 1
	return req, nil
}

// Submit moves a draft to aberta after the eligibility check.
func (sm *StateMachine) Submit(ctx context.Context, requestID uuid.UUID, actor domain.Actor, observation string) error {
	return sm.Transition(ctx, requestID, domain.StatusAberta, actor, observation)
}

// Transition applies one gated, allow-listed status change.
func (sm *StateMachine) Transition(ctx context.Context, requestID uuid.UUID, target domain.Status, actor domain.Actor, observation string) error {
	_, err := sm.transition(ctx, requestID, nil, target, actor, domain.MotivoTransicao, observation)
	return err
}

// TransitionVersion is Transition guarded by the version the caller last read.
func (sm *StateMachine) TransitionVersion(ctx context.Context, requestID uuid.UUID, expectedVersion int, target domain.Status, actor domain.Actor, observation string) error {
	_, err := sm.transition(ctx, requestID, &expectedVersion, target, actor, domain.MotivoTransicao, observation)
	return err
}

// TransitionWithRetry re-reads the request and retries when another writer won the version race.
func (sm *StateMachine) TransitionWithRetry(ctx context.Context, requestID uuid.UUID, target domain.Status, actor domain.Actor, observation string) error {
	return retry.OnConflict(ctx, sm.maxRetries, func(ctx context.Context) error {
		return sm.Transition(ctx, requestID, target, actor, observation)
	})
}

func (sm *StateMachine) transition(ctx context.Context, requestID uuid.UUID, expectedVersion *int, target domain.Status, actor domain.Actor, reason domain.HistoryReason, observation string) (domain.Request, error) {
	if !actor.Role.CanMutateRequests() {
		return domain.Request{}, domain.Unauthorized("role cannot change request status")
	}
	if !target.IsKnown() {
		sm.log.WithContext(ctx).SchemaViolation("solicitacao", "status", string(target))
		return domain.Request{}, domain.SchemaViolation("solicitacao", "status", string(target))
	}

	started := time.Now()
	var (
		req     domain.Request
		entries []domain.StatusHistory
	)
	err := sm.store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = sm.store.LoadRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if expectedVersion != nil && req.Version != *expectedVersion {
			return domain.ConcurrentModification("solicitacao", req.ID, *expectedVersion)
		}
		if req.Status.IsTerminal() || !domain.CanTransition(req.Status, target) {
			return domain.InvalidTransition(req.Status, target)
		}
		if err := sm.checkGates(ctx, req, target); err != nil {
			return err
		}

		entry, err := sm.commitStep(ctx, &req, target, actor, reason, observation)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		sm.recordRefusal(ctx, requestID, target, err)
		return domain.Request{}, err
	}

	sm.metrics.ObserveTransitionLatency(time.Since(started))
	sm.publish(ctx, req, entries)
	if target == domain.StatusConcluida && req.RenovacaoAutomatica {
		sm.handOffRenewal(ctx, req.ID)
	}
	return req, nil
}

// Force walks the request to target along the shortest allow-listed path without
// running any gate. Each step is recorded with reason determinacao_judicial.
func (sm *StateMachine) Force(ctx context.Context, requestID uuid.UUID, target domain.Status, actor domain.Actor, observation string) (domain.Request, error) {
	var (
		req     domain.Request
		entries []domain.StatusHistory
	)
	err := sm.store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = sm.store.LoadRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status.IsTerminal() {
			return domain.InvalidTransition(req.Status, target)
		}
		path := domain.PathTo(req.Status, target)
		if path == nil {
			return domain.InvalidTransition(req.Status, target)
		}

		for _, step := range path {
			entry, err := sm.commitStep(ctx, &req, step, actor, domain.MotivoDeterminacaoJudicial, observation)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return domain.Request{}, err
	}

	sm.publish(ctx, req, entries)
	return req, nil
}

// commitStep advances req by one step, persists it with its history row and runs the
// entry effects of the new status. req carries the new version on success.
func (sm *StateMachine) commitStep(ctx context.Context, req *domain.Request, to domain.Status, actor domain.Actor, reason domain.HistoryReason, observation string) (domain.StatusHistory, error) {
	expected := req.Version
	entry, err := req.Advance(to, actor, reason, strings.TrimSpace(observation), sm.now())
	if err != nil {
		return domain.StatusHistory{}, err
	}
	if err := sm.store.SaveRequest(ctx, *req, expected); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			sm.metrics.IncrementConflict("solicitacao")
		}
		return domain.StatusHistory{}, err
	}
	req.Version = expected + 1

	if err := sm.store.AppendHistory(ctx, entry); err != nil {
		return domain.StatusHistory{}, err
	}
	if to == domain.StatusLiberada {
		if err := sm.createPayment(ctx, *req); err != nil {
			return domain.StatusHistory{}, err
		}
	}
	return entry, nil
}

func (sm *StateMachine) checkGates(ctx context.Context, req domain.Request, target domain.Status) error {
	if req.Status == domain.StatusRascunho && target == domain.StatusAberta {
		if err := sm.eligibility.Check(req); err != nil {
			return err
		}
	}

	if domain.RequiresPendencyClearance(req.Status, target) {
		blocking, err := sm.pendencies.Blocking(ctx, req.ID)
		if err != nil {
			return err
		}
		if len(blocking) > 0 {
			return domain.Blocked(domain.BlockingIDs(blocking))
		}
	}

	if target == domain.StatusAprovada {
		return sm.checkApprovals(ctx, req)
	}
	return nil
}

func (sm *StateMachine) checkApprovals(ctx context.Context, req domain.Request) error {
	active, err := sm.store.ActiveDeterminacao(ctx, req.ID)
	if err != nil {
		return err
	}
	if active != nil && active.GrantsBenefit() {
		return nil
	}

	summary, err := sm.approvals.Aggregate(ctx, req.ID)
	if err != nil {
		return err
	}
	if summary.Status != domain.AprovacaoAprovada {
		return domain.ApprovalIncomplete(summary.Outstanding)
	}
	if summary.Linked > 0 {
		return nil
	}

	required, err := sm.approvalRequired(ctx, req)
	if err != nil {
		return err
	}
	if required {
		return domain.ApprovalIncomplete(nil)
	}
	return nil
}

// approvalRequired reports whether the benefit's action applies to req's value.
// An action named by the catalog but not configured in the store does not apply.
func (sm *StateMachine) approvalRequired(ctx context.Context, req domain.Request) (bool, error) {
	bt, ok := sm.catalog.Lookup(req.TipoBeneficio)
	if !ok || bt.AcaoAprovacao == "" {
		return false, nil
	}
	action, err := sm.store.LoadApprovalAction(ctx, bt.AcaoAprovacao)
	if errors.Is(err, domain.ErrNotFound) {
		sm.log.WithContext(ctx).Warn("approval action not configured", "acao", bt.AcaoAprovacao, "tipo", bt.Codigo)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return action.AppliesTo(req.ValorCentavos), nil
}

func (sm *StateMachine) createPayment(ctx context.Context, req domain.Request) error {
	bt, ok := sm.catalog.Lookup(req.TipoBeneficio)
	if !ok {
		return apperr.Internal("benefit catalog has no entry for " + string(req.TipoBeneficio))
	}
	at := sm.now()
	if req.DataLiberacao != nil {
		at = *req.DataLiberacao
	}
	plan, err := domain.PlanPayment(req, bt, at)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "cannot plan payment", err)
	}
	if err := sm.store.CreatePayment(ctx, plan); err != nil && !errors.Is(err, ports.ErrPaymentExists) {
		return err
	}
	return nil
}

func (sm *StateMachine) publish(ctx context.Context, req domain.Request, entries []domain.StatusHistory) {
	version := req.Version - len(entries)
	for _, entry := range entries {
		version++
		sm.metrics.IncrementTransition(string(entry.StatusAnterior), string(entry.StatusNovo), string(entry.Motivo))
		sm.log.WithContext(ctx).StatusTransition(req.ID.String(), string(entry.StatusAnterior), string(entry.StatusNovo), string(entry.Motivo), version)
		sm.notifier.Notify(ctx, events.SolicitacaoStatusChanged{
			BaseEvent:      events.NewBaseEvent(),
			SolicitacaoID:  req.ID,
			Protocolo:      req.Protocolo,
			TipoBeneficio:  string(req.TipoBeneficio),
			StatusAnterior: string(entry.StatusAnterior),
			StatusNovo:     string(entry.StatusNovo),
			Motivo:         string(entry.Motivo),
			Observacao:     entry.Observacao,
			UsuarioID:      entry.UsuarioID,
			Version:        version,
			ContatoEmail:   req.Contato.Email,
			ContatoFone:    req.Contato.Telefone,
		})
		if entry.StatusNovo == domain.StatusLiberada {
			sm.publishPayment(ctx, req.ID)
		}
	}
}

func (sm *StateMachine) publishPayment(ctx context.Context, requestID uuid.UUID) {
	plan, err := sm.store.PaymentByRequest(ctx, requestID)
	if err != nil || plan == nil {
		if err != nil {
			sm.log.WithContext(ctx).Warn("payment plan lookup failed", "solicitacao_id", requestID, "error", err)
		}
		return
	}
	sm.notifier.Notify(ctx, events.PagamentoCreated{
		BaseEvent:          events.NewBaseEvent(),
		PagamentoID:        plan.ID,
		SolicitacaoID:      plan.SolicitacaoID,
		Periodicidade:      string(plan.Periodicidade),
		ValorTotalCentavos: plan.ValorTotalCentavos,
		QuantidadeParcelas: plan.QuantidadeParcelas,
	})
}

func (sm *StateMachine) recordRefusal(ctx context.Context, requestID uuid.UUID, target domain.Status, err error) {
	appErr, ok := apperr.As(err)
	if !ok || appErr.Code == "" {
		return
	}
	sm.metrics.IncrementRefusal(appErr.Code)
	if errors.Is(err, domain.ErrSchemaViolation) {
		sm.log.WithContext(ctx).Error("request halted on unknown persisted value", "solicitacao_id", requestID, "error", err)
		return
	}
	sm.log.WithContext(ctx).Debug("transition refused", "solicitacao_id", requestID, "target", target, "code", appErr.Code)
}

// handOffRenewal queues the renewal evaluation, or runs it inline without a queue.
// Failures are logged; the periodic sweep picks the request up again.
func (sm *StateMachine) handOffRenewal(ctx context.Context, requestID uuid.UUID) {
	if sm.enqueuer != nil {
		if err := sm.enqueuer.EnqueueRenewal(ctx, requestID); err != nil {
			sm.log.WithContext(ctx).Error("failed to enqueue renewal", "solicitacao_id", requestID, "error", err)
		}
		return
	}
	if _, err := sm.renewals.Renew(ctx, requestID); err != nil {
		sm.log.WithContext(ctx).Error("renewal evaluation failed", "solicitacao_id", requestID, "error", err)
	}
}

// Get loads one request.
func (sm *StateMachine) Get(ctx context.Context, requestID uuid.UUID) (domain.Request, error) {
	return sm.store.LoadRequest(ctx, requestID)
}

// History returns the audit trail of the request.
func (sm *StateMachine) History(ctx context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error) {
	if _, err := sm.store.LoadRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return sm.store.ListHistory(ctx, requestID)
}

// Payment returns the payment plan of a released request, or nil before release.
func (sm *StateMachine) Payment(ctx context.Context, requestID uuid.UUID) (*domain.Pagamento, error) {
	return sm.store.PaymentByRequest(ctx, requestID)
}

// RequestApprovalFor opens the sign-off configured for the request's benefit type.
func (sm *StateMachine) RequestApprovalFor(ctx context.Context, requestID uuid.UUID, actor domain.Actor) (domain.RequestApproval, error) {
	if !actor.Role.CanMutateRequests() {
		return domain.RequestApproval{}, domain.Unauthorized("role cannot open approvals")
	}
	req, err := sm.store.LoadRequest(ctx, requestID)
	if err != nil {
		return domain.RequestApproval{}, err
	}
	if req.Status.IsTerminal() {
		return domain.RequestApproval{}, domain.TerminalRequest(req.ID, req.Status)
	}
	bt, ok := sm.catalog.Lookup(req.TipoBeneficio)
	if !ok || bt.AcaoAprovacao == "" {
		return domain.RequestApproval{}, apperr.Validation("benefit " + string(req.TipoBeneficio) + " has no approval action")
	}
	return sm.approvals.Instantiate(ctx, req, bt.AcaoAprovacao)
}

// RecordDecision records an approver decision. When the decision concludes the
// aggregate, a request in em_analise follows it to aprovada or indeferida.
func (sm *StateMachine) RecordDecision(ctx context.Context, approvalID uuid.UUID, actor domain.Actor, decision domain.Decisao, justificativa string, anexos ...string) (domain.AggregateStatus, error) {
	status, err := sm.approvals.RecordDecision(ctx, approvalID, actor.ID, decision, justificativa, anexos...)
	if err != nil {
		return "", err
	}
	if !status.IsTerminal() {
		return status, nil
	}

	approval, err := sm.approvals.Get(ctx, approvalID)
	if err != nil {
		return status, err
	}
	req, err := sm.store.LoadRequest(ctx, approval.SolicitacaoID)
	if err != nil {
		return status, err
	}
	if req.Status != domain.StatusEmAnalise {
		return status, nil
	}

	target := domain.StatusAprovada
	if status == domain.AprovacaoRejeitada {
		target = domain.StatusIndeferida
	}
	mover := actor
	if !mover.Role.CanMutateRequests() {
		mover = domain.SystemActor()
	}

	err = retry.OnConflict(ctx, sm.maxRetries, func(ctx context.Context) error {
		_, err := sm.transition(ctx, req.ID, nil, target, mover, domain.MotivoAprovacaoConcluida, justificativa)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrBlocked), errors.Is(err, domain.ErrApprovalIncomplete), errors.Is(err, domain.ErrInvalidTransition):
		sm.log.WithContext(ctx).Warn("approval concluded but request kept its status",
			"solicitacao_id", req.ID, "aprovacao_id", approvalID, "target", target, "error", err)
	default:
		return status, err
	}
	return status, nil
}

func normalizeContato(c domain.Contato) (domain.Contato, error) {
	c.Email = strings.TrimSpace(c.Email)
	raw := strings.TrimSpace(c.Telefone)
	if raw == "" {
		c.Telefone = ""
		return c, nil
	}
	if !phone.IsValid(raw) {
		return domain.Contato{}, apperr.Validation("invalid phone number").WithDetails([]domain.FieldError{
			{Field: "contato.telefone", Rule: "e164", Message: "phone number is not valid"},
		})
	}
	c.Telefone = phone.NormalizeE164(raw)
	return c, nil
}
