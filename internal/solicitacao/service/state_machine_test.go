package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"beneficios_backend/internal/events"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/judicial"
	"beneficios_backend/internal/solicitacao/repository/memory"
	"beneficios_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var clock = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) named(name string) []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []events.Event
	for _, e := range n.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type recordingEnqueuer struct {
	ids []uuid.UUID
}

func (e *recordingEnqueuer) EnqueueRenewal(_ context.Context, id uuid.UUID) error {
	e.ids = append(e.ids, id)
	return nil
}

// flakyStore loses the version race on the first failures SaveRequest calls.
type flakyStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) SaveRequest(ctx context.Context, req domain.Request, expectedVersion int) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return domain.ConcurrentModification("solicitacao", req.ID, expectedVersion)
	}
	f.mu.Unlock()
	return f.Store.SaveRequest(ctx, req, expectedVersion)
}

func mustActor(t *testing.T, role string) domain.Actor {
	t.Helper()
	r, err := domain.ParseRole(role)
	require.NoError(t, err)
	return domain.Actor{ID: uuid.New(), Role: r}
}

type StateMachineSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	notifier *recordingNotifier
	sm       *StateMachine
	tecnico  domain.Actor
	coord    domain.Actor
	gestor   domain.Actor
	unidade  uuid.UUID
}

func (s *StateMachineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.notifier = &recordingNotifier{}
	s.sm = New(s.store, domain.DefaultCatalog(), Config{
		Notifier:   s.notifier,
		Now:        func() time.Time { return clock },
		MaxRetries: 3,
	})
	s.tecnico = mustActor(s.T(), "tecnico")
	s.coord = mustActor(s.T(), "coordenador")
	s.gestor = mustActor(s.T(), "gestor")
	s.unidade = uuid.New()
}

func (s *StateMachineSuite) cestaDraft() domain.Request {
	req, err := s.sm.CreateDraft(s.ctx, CreateDraftInput{
		BeneficiarioID: uuid.New(),
		TipoBeneficio:  "cesta_basica",
		UnidadeID:      s.unidade,
		Contato:        domain.Contato{Email: "maria@example.org", Telefone: "(84) 99876-5432"},
		Dados: domain.TypeSpecificData{CestaBasica: &domain.DadosCestaBasica{
			QuantidadeFamilia: 4, TipoEntrega: "domicilio",
		}},
	}, s.tecnico)
	s.Require().NoError(err)
	return req
}

func (s *StateMachineSuite) aluguelDraft(renova bool) domain.Request {
	req, err := s.sm.CreateDraft(s.ctx, CreateDraftInput{
		BeneficiarioID:      uuid.New(),
		TipoBeneficio:       "aluguel_social",
		UnidadeID:           s.unidade,
		ValorCentavos:       60000,
		RenovacaoAutomatica: renova,
		Dados: domain.TypeSpecificData{AluguelSocial: &domain.DadosAluguelSocial{
			Motivo: "desabrigo por enchente", ValorAluguelCentavos: 60000,
		}},
	}, s.tecnico)
	s.Require().NoError(err)
	return req
}

func (s *StateMachineSuite) walk(id uuid.UUID, statuses ...domain.Status) {
	for _, st := range statuses {
		s.Require().NoError(s.sm.Transition(s.ctx, id, st, s.tecnico, ""), "transition to %s", st)
	}
}

func (s *StateMachineSuite) seedAluguelApproval() {
	s.store.AddApprovalAction(domain.ApprovalAction{
		ID:              uuid.New(),
		Codigo:          "deferimento_aluguel_social",
		Estrategia:      domain.EstrategiaSequencial,
		MinAprovadores:  2,
		PerfisElegiveis: []domain.RoleKind{domain.RoleCoordenador, domain.RoleGestor},
	},
		domain.ConfigApprover{UsuarioID: s.coord.ID, Perfil: domain.RoleCoordenador, Ordem: 1},
		domain.ConfigApprover{UsuarioID: s.gestor.ID, Perfil: domain.RoleGestor, Ordem: 2},
	)
}

func (s *StateMachineSuite) TestCreateDraft() {
	req := s.cestaDraft()

	s.Equal(domain.StatusRascunho, req.Status)
	s.Equal("SOL-2026-000001", req.Protocolo)
	s.Equal(1, req.Version)
	s.Equal(s.tecnico.ID, req.TecnicoID)
	s.Equal(int64(15000), req.ValorCentavos, "catalog default value")
	s.Equal("+5584998765432", req.Contato.Telefone)
	s.Len(s.notifier.named("solicitacao.created"), 1)

	second := s.cestaDraft()
	s.Equal("SOL-2026-000002", second.Protocolo)
}

func (s *StateMachineSuite) TestCreateDraftRejectsMismatchedPayload() {
	_, err := s.sm.CreateDraft(s.ctx, CreateDraftInput{
		TipoBeneficio: "funeral",
		Dados:         domain.TypeSpecificData{CestaBasica: &domain.DadosCestaBasica{}},
	}, s.tecnico)
	s.True(apperr.Is(err, apperr.KindValidation))

	_, err = s.sm.CreateDraft(s.ctx, CreateDraftInput{TipoBeneficio: "bolsa"}, s.tecnico)
	s.True(apperr.Is(err, apperr.KindValidation))
}

func (s *StateMachineSuite) TestFullLifecycle() {
	req := s.cestaDraft()
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise, domain.StatusAprovada, domain.StatusLiberada, domain.StatusConcluida)

	stored, err := s.sm.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusConcluida, stored.Status)
	s.Equal(6, stored.Version, "one version bump per transition")
	s.Require().NotNil(stored.DataAprovacao)
	s.Require().NotNil(stored.DataLiberacao)
	s.Require().NotNil(stored.DataConclusao)
	s.Equal(s.tecnico.ID, *stored.LiberadorID)

	history, err := s.sm.History(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 5)
	prev := domain.StatusRascunho
	for _, h := range history {
		s.Equal(prev, h.StatusAnterior)
		s.True(domain.CanTransition(h.StatusAnterior, h.StatusNovo))
		s.Equal(domain.MotivoTransicao, h.Motivo)
		prev = h.StatusNovo
	}
	s.Len(s.notifier.named("solicitacao.status.changed"), 5)

	payment, err := s.sm.Payment(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().NotNil(payment)
	s.Equal(domain.PeriodicidadeMensal, payment.Periodicidade)
	s.Len(payment.Parcelas, 3)
	s.Len(s.notifier.named("pagamento.created"), 1)
}

func (s *StateMachineSuite) TestDirectJumpIsRefused() {
	req := s.cestaDraft()

	err := s.sm.Transition(s.ctx, req.ID, domain.StatusLiberada, s.tecnico, "")
	s.ErrorIs(err, domain.ErrInvalidTransition)

	stored, err := s.sm.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusRascunho, stored.Status)
	s.Equal(1, stored.Version)
	history, _ := s.sm.History(s.ctx, req.ID)
	s.Empty(history)
}

func (s *StateMachineSuite) TestUnknownTargetIsSchemaViolation() {
	req := s.cestaDraft()
	err := s.sm.Transition(s.ctx, req.ID, domain.Status("deferida"), s.tecnico, "")
	s.ErrorIs(err, domain.ErrSchemaViolation)
}

func (s *StateMachineSuite) TestSubmitRunsEligibility() {
	req, err := s.sm.CreateDraft(s.ctx, CreateDraftInput{
		BeneficiarioID: uuid.New(),
		TipoBeneficio:  "funeral",
		UnidadeID:      s.unidade,
		Dados:          domain.TypeSpecificData{Funeral: &domain.DadosFuneral{NomeFalecido: "João"}},
	}, s.tecnico)
	s.Require().NoError(err)

	err = s.sm.Submit(s.ctx, req.ID, s.tecnico, "")
	s.Require().ErrorIs(err, domain.ErrIneligible)
	appErr, ok := apperr.As(err)
	s.Require().True(ok)
	violations, ok := appErr.Details.([]domain.FieldError)
	s.Require().True(ok)
	s.Len(violations, 2, "data_obito and certidao_obito reported together")
}

func (s *StateMachineSuite) TestOpenPendencyBlocksLeavingAnalysis() {
	req := s.cestaDraft()
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)

	pendencyID, err := s.sm.Pendencies().Open(s.ctx, req.ID, "comprovante de renda", s.tecnico)
	s.Require().NoError(err)

	err = s.sm.Transition(s.ctx, req.ID, domain.StatusAprovada, s.tecnico, "")
	s.Require().ErrorIs(err, domain.ErrBlocked)
	appErr, _ := apperr.As(err)
	s.Equal(map[string]any{"pendencias": []uuid.UUID{pendencyID}}, appErr.Details)

	s.Require().NoError(s.sm.Transition(s.ctx, req.ID, domain.StatusPendente, s.tecnico, "aguardando comprovante"))
	s.ErrorIs(s.sm.Transition(s.ctx, req.ID, domain.StatusEmAnalise, s.tecnico, ""), domain.ErrBlocked)

	s.Require().NoError(s.sm.Pendencies().Resolve(s.ctx, pendencyID, s.tecnico, "entregue"))
	s.Require().NoError(s.sm.Pendencies().Resolve(s.ctx, pendencyID, s.tecnico, "entregue"))
	s.walk(req.ID, domain.StatusEmAnalise, domain.StatusAprovada)
}

func (s *StateMachineSuite) TestCancelIgnoresPendencies() {
	req := s.cestaDraft()
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)
	_, err := s.sm.Pendencies().Open(s.ctx, req.ID, "visita", s.tecnico)
	s.Require().NoError(err)

	s.NoError(s.sm.Transition(s.ctx, req.ID, domain.StatusCancelada, s.tecnico, "desistência"))
	s.ErrorIs(s.sm.Transition(s.ctx, req.ID, domain.StatusArquivada, s.tecnico, ""), domain.ErrInvalidTransition)
}

func (s *StateMachineSuite) TestApprovalGateAndAutoTransition() {
	s.seedAluguelApproval()
	req := s.aluguelDraft(false)
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)

	err := s.sm.Transition(s.ctx, req.ID, domain.StatusAprovada, s.coord, "")
	s.ErrorIs(err, domain.ErrApprovalIncomplete, "catalog action applies but was never opened")

	approval, err := s.sm.RequestApprovalFor(s.ctx, req.ID, s.tecnico)
	s.Require().NoError(err)
	s.Require().Len(approval.Aprovadores, 2)

	s.ErrorIs(s.sm.Transition(s.ctx, req.ID, domain.StatusAprovada, s.coord, ""), domain.ErrApprovalIncomplete)

	_, err = s.sm.RecordDecision(s.ctx, approval.ID, s.gestor, domain.DecisaoAprovada, "")
	s.ErrorIs(err, domain.ErrOutOfOrder)

	status, err := s.sm.RecordDecision(s.ctx, approval.ID, s.coord, domain.DecisaoAprovada, "parecer favorável")
	s.Require().NoError(err)
	s.Equal(domain.AprovacaoPendente, status)

	status, err = s.sm.RecordDecision(s.ctx, approval.ID, s.gestor, domain.DecisaoAprovada, "de acordo")
	s.Require().NoError(err)
	s.Equal(domain.AprovacaoAprovada, status)

	stored, err := s.sm.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusAprovada, stored.Status)
	s.Equal(s.gestor.ID, *stored.AprovadorID)

	history, _ := s.sm.History(s.ctx, req.ID)
	s.Equal(domain.MotivoAprovacaoConcluida, history[len(history)-1].Motivo)
	s.Len(s.notifier.named("aprovacao.decision.recorded"), 2)
}

func (s *StateMachineSuite) TestRejectedApprovalDeniesRequest() {
	s.seedAluguelApproval()
	req := s.aluguelDraft(false)
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)

	approval, err := s.sm.RequestApprovalFor(s.ctx, req.ID, s.tecnico)
	s.Require().NoError(err)

	status, err := s.sm.RecordDecision(s.ctx, approval.ID, s.coord, domain.DecisaoRejeitada, "renda acima do limite")
	s.Require().NoError(err)
	s.Equal(domain.AprovacaoRejeitada, status)

	stored, _ := s.sm.Get(s.ctx, req.ID)
	s.Equal(domain.StatusIndeferida, stored.Status)
}

func (s *StateMachineSuite) TestSecondApproverRejectionDeniesRequestOnce() {
	s.seedAluguelApproval()
	req := s.aluguelDraft(false)
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)
	approval, err := s.sm.RequestApprovalFor(s.ctx, req.ID, s.tecnico)
	s.Require().NoError(err)

	before, err := s.sm.History(s.ctx, req.ID)
	s.Require().NoError(err)

	status, err := s.sm.RecordDecision(s.ctx, approval.ID, s.coord, domain.DecisaoAprovada, "parecer favorável")
	s.Require().NoError(err)
	s.Equal(domain.AprovacaoPendente, status)

	status, err = s.sm.RecordDecision(s.ctx, approval.ID, s.gestor, domain.DecisaoRejeitada, "renda acima do limite")
	s.Require().NoError(err)
	s.Equal(domain.AprovacaoRejeitada, status)

	stored, _ := s.sm.Get(s.ctx, req.ID)
	s.Equal(domain.StatusIndeferida, stored.Status)

	after, err := s.sm.History(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().Len(after, len(before)+1)
	last := after[len(after)-1]
	s.Equal(domain.StatusEmAnalise, last.StatusAnterior)
	s.Equal(domain.StatusIndeferida, last.StatusNovo)
	s.Equal(domain.MotivoAprovacaoConcluida, last.Motivo)
}

func (s *StateMachineSuite) TestReopenedApprovalAfterBlockedRejection() {
	s.seedAluguelApproval()
	req := s.aluguelDraft(false)
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)
	first, err := s.sm.RequestApprovalFor(s.ctx, req.ID, s.tecnico)
	s.Require().NoError(err)
	pendencyID, err := s.sm.Pendencies().Open(s.ctx, req.ID, "comprovante de renda", s.tecnico)
	s.Require().NoError(err)

	_, err = s.sm.RecordDecision(s.ctx, first.ID, s.coord, domain.DecisaoRejeitada, "documento ilegível")
	s.Require().NoError(err)
	stored, _ := s.sm.Get(s.ctx, req.ID)
	s.Equal(domain.StatusEmAnalise, stored.Status, "the open pendency keeps the request in analysis")

	s.Require().NoError(s.sm.Pendencies().Resolve(s.ctx, pendencyID, s.tecnico, "comprovante reenviado"))
	second, err := s.sm.RequestApprovalFor(s.ctx, req.ID, s.tecnico)
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)

	_, err = s.sm.RecordDecision(s.ctx, second.ID, s.coord, domain.DecisaoAprovada, "")
	s.Require().NoError(err)
	status, err := s.sm.RecordDecision(s.ctx, second.ID, s.gestor, domain.DecisaoAprovada, "")
	s.Require().NoError(err)
	s.Equal(domain.AprovacaoAprovada, status)

	stored, _ = s.sm.Get(s.ctx, req.ID)
	s.Equal(domain.StatusAprovada, stored.Status)
}

func (s *StateMachineSuite) TestConcludedApprovalWaitsForPendencies() {
	s.seedAluguelApproval()
	req := s.aluguelDraft(false)
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)
	approval, err := s.sm.RequestApprovalFor(s.ctx, req.ID, s.tecnico)
	s.Require().NoError(err)
	_, err = s.sm.Pendencies().Open(s.ctx, req.ID, "laudo", s.tecnico)
	s.Require().NoError(err)

	_, err = s.sm.RecordDecision(s.ctx, approval.ID, s.coord, domain.DecisaoAprovada, "")
	s.Require().NoError(err)
	status, err := s.sm.RecordDecision(s.ctx, approval.ID, s.gestor, domain.DecisaoAprovada, "")
	s.Require().NoError(err, "decision is recorded even though the request cannot move")
	s.Equal(domain.AprovacaoAprovada, status)

	stored, _ := s.sm.Get(s.ctx, req.ID)
	s.Equal(domain.StatusEmAnalise, stored.Status)
}

func (s *StateMachineSuite) TestJudicialConcessaoBypassesGates() {
	s.seedAluguelApproval()
	req := s.aluguelDraft(false)
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)
	_, err := s.sm.RequestApprovalFor(s.ctx, req.ID, s.tecnico)
	s.Require().NoError(err)
	_, err = s.sm.Pendencies().Open(s.ctx, req.ID, "documentação", s.tecnico)
	s.Require().NoError(err)

	status, err := s.sm.Judicial().Apply(s.ctx, req.ID, judicial.Input{
		Tipo: "concessao", NumeroProcesso: "0800001-11.2026.8.20.0001", Orgao: "Vara da Fazenda",
	}, s.coord)
	s.Require().NoError(err)
	s.Equal(domain.StatusLiberada, status)

	history, err := s.sm.History(s.ctx, req.ID)
	s.Require().NoError(err)
	forced := history[len(history)-2:]
	s.Equal(domain.StatusAprovada, forced[0].StatusNovo)
	s.Equal(domain.StatusLiberada, forced[1].StatusNovo)
	for _, h := range forced {
		s.Equal(domain.MotivoDeterminacaoJudicial, h.Motivo)
	}

	approvals, err := s.sm.Approvals().List(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().Len(approvals, 1)
	s.True(approvals[0].Dispensada)

	payment, err := s.sm.Payment(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().NotNil(payment)
	s.Len(payment.Parcelas, 6)
}

func (s *StateMachineSuite) TestAlteracaoKeepsStatusAndGates() {
	s.seedAluguelApproval()
	req := s.aluguelDraft(false)
	s.walk(req.ID, domain.StatusAberta, domain.StatusEmAnalise)

	_, err := s.sm.Judicial().Apply(s.ctx, req.ID, judicial.Input{Tipo: "alteracao", NumeroProcesso: "1"}, s.coord)
	s.Require().NoError(err)
	s.ErrorIs(s.sm.Transition(s.ctx, req.ID, domain.StatusAprovada, s.coord, ""), domain.ErrApprovalIncomplete)

	history, _ := s.sm.History(s.ctx, req.ID)
	s.Len(history, 2, "alteracao does not transition")
}

func (s *StateMachineSuite) TestSuspensaoCancelsFromAnyOpenStatus() {
	req := s.cestaDraft()
	status, err := s.sm.Judicial().Apply(s.ctx, req.ID, judicial.Input{Tipo: "suspensao", NumeroProcesso: "9"}, s.coord)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelada, status)
}

func (s *StateMachineSuite) TestStaleVersionIsRejected() {
	req := s.cestaDraft()
	s.walk(req.ID, domain.StatusAberta)

	err := s.sm.TransitionVersion(s.ctx, req.ID, 1, domain.StatusEmAnalise, s.tecnico, "")
	s.ErrorIs(err, domain.ErrConcurrentModification)
	s.NoError(s.sm.TransitionVersion(s.ctx, req.ID, 2, domain.StatusEmAnalise, s.tecnico, ""))
}

func (s *StateMachineSuite) TestAuditorIsReadOnly() {
	req := s.cestaDraft()
	auditor := mustActor(s.T(), "auditor")

	s.ErrorIs(s.sm.Submit(s.ctx, req.ID, auditor, ""), domain.ErrUnauthorized)
	_, err := s.sm.CreateDraft(s.ctx, CreateDraftInput{TipoBeneficio: "cesta_basica"}, auditor)
	s.ErrorIs(err, domain.ErrUnauthorized)

	_, err = s.sm.Get(s.ctx, req.ID)
	s.NoError(err)
}

func (s *StateMachineSuite) TestEditDraft() {
	req := s.cestaDraft()
	valor := int64(20000)

	edited, err := s.sm.EditDraft(s.ctx, req.ID, 1, EditDraftInput{ValorCentavos: &valor}, s.tecnico)
	s.Require().NoError(err)
	s.Equal(valor, edited.ValorCentavos)
	s.Equal(2, edited.Version)

	_, err = s.sm.EditDraft(s.ctx, req.ID, 1, EditDraftInput{ValorCentavos: &valor}, s.tecnico)
	s.ErrorIs(err, domain.ErrConcurrentModification)

	s.walk(req.ID, domain.StatusAberta)
	_, err = s.sm.EditDraft(s.ctx, req.ID, 3, EditDraftInput{ValorCentavos: &valor}, s.tecnico)
	s.True(apperr.Is(err, apperr.KindConflict))
}

func TestStateMachineSuite(t *testing.T) {
	suite.Run(t, new(StateMachineSuite))
}

func TestTransitionWithRetryRecoversFromConflicts(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.New()}
	sm := New(store, domain.DefaultCatalog(), Config{MaxRetries: 3})
	tecnico := mustActor(t, "tecnico")

	req, err := sm.CreateDraft(ctx, CreateDraftInput{
		BeneficiarioID: uuid.New(),
		TipoBeneficio:  "natalidade",
		Dados:          domain.TypeSpecificData{Natalidade: &domain.DadosNatalidade{DataProvavelParto: &clock}},
	}, tecnico)
	require.NoError(t, err)

	store.failures = 2
	require.NoError(t, sm.TransitionWithRetry(ctx, req.ID, domain.StatusAberta, tecnico, ""))

	stored, err := sm.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAberta, stored.Status)
	assert.Equal(t, 2, stored.Version)
	history, _ := sm.History(ctx, req.ID)
	assert.Len(t, history, 1, "failed attempts leave no history")

	store.failures = 5
	err = sm.TransitionWithRetry(ctx, req.ID, domain.StatusEmAnalise, tecnico, "")
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestConcurrentTransitionsSerialiseOnVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sm := New(store, domain.DefaultCatalog(), Config{})
	tecnico := mustActor(t, "tecnico")

	req, err := sm.CreateDraft(ctx, CreateDraftInput{
		BeneficiarioID: uuid.New(),
		TipoBeneficio:  "cesta_basica",
		Dados:          domain.TypeSpecificData{CestaBasica: &domain.DadosCestaBasica{QuantidadeFamilia: 2, TipoEntrega: "presencial"}},
	}, tecnico)
	require.NoError(t, err)
	require.NoError(t, sm.Submit(ctx, req.ID, tecnico, ""))

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = sm.Transition(ctx, req.ID, domain.StatusEmAnalise, tecnico, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	history, _ := sm.History(ctx, req.ID)
	assert.Len(t, history, 2)
}

func TestActiveConcessaoSatisfiesApprovalGate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.AddApprovalAction(domain.ApprovalAction{ID: uuid.New(), Codigo: "deferimento_aluguel_social", Estrategia: domain.EstrategiaParalela, MinAprovadores: 1},
		domain.ConfigApprover{UsuarioID: uuid.New(), Perfil: domain.RoleGestor, Ordem: 1, Obrigatorio: true})
	sm := New(store, domain.DefaultCatalog(), Config{})
	coord := mustActor(t, "coordenador")

	req := domain.Request{
		ID:            uuid.New(),
		TipoBeneficio: domain.BeneficioAluguelSocial,
		Status:        domain.StatusEmAnalise,
		TecnicoID:     uuid.New(),
		ValorCentavos: 60000,
		Version:       1,
	}
	require.NoError(t, store.CreateRequest(ctx, req))
	require.ErrorIs(t, sm.Transition(ctx, req.ID, domain.StatusAprovada, coord, ""), domain.ErrApprovalIncomplete)

	require.NoError(t, store.SaveDeterminacao(ctx, domain.Determinacao{
		ID: uuid.New(), SolicitacaoID: req.ID, Tipo: domain.DeterminacaoConcessao, NumeroProcesso: "77", Ativa: true,
	}))
	assert.NoError(t, sm.Transition(ctx, req.ID, domain.StatusAprovada, coord, ""))
}
