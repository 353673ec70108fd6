package aprovacao

import (
	"context"
	"sync"
	"testing"
	"time"

	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	coord   *Coordinator
	request domain.Request
	action  domain.ApprovalAction
	first   uuid.UUID
	second  uuid.UUID
}

func newFixture(t *testing.T, strategy domain.Estrategia, threshold int) fixture {
	t.Helper()
	f := fixture{
		ctx:    context.Background(),
		store:  memory.New(),
		first:  uuid.New(),
		second: uuid.New(),
	}
	f.coord = New(f.store, Config{MaxRetries: 5})

	unit := uuid.New()
	f.request = domain.Request{
		ID:            uuid.New(),
		TipoBeneficio: domain.BeneficioAluguelSocial,
		Status:        domain.StatusEmAnalise,
		UnidadeID:     unit,
		TecnicoID:     uuid.New(),
		ValorCentavos: 60000,
		Version:       1,
	}
	require.NoError(t, f.store.CreateRequest(f.ctx, f.request))

	f.action = domain.ApprovalAction{
		ID:              uuid.New(),
		Codigo:          "deferimento_aluguel_social",
		Estrategia:      strategy,
		MinAprovadores:  2,
		LimiteRejeicoes: threshold,
		PerfisElegiveis: []domain.RoleKind{domain.RoleCoordenador, domain.RoleGestor},
	}
	f.store.AddApprovalAction(f.action,
		domain.ConfigApprover{UsuarioID: f.first, Perfil: domain.RoleCoordenador, Ordem: 1, Obrigatorio: true},
		domain.ConfigApprover{UsuarioID: f.second, Perfil: domain.RoleGestor, Ordem: 2, Obrigatorio: true},
	)
	return f
}

func TestInstantiateIsReusedWhileLive(t *testing.T) {
	f := newFixture(t, domain.EstrategiaSequencial, 1)

	a, err := f.coord.Instantiate(f.ctx, f.request, f.action.Codigo)
	require.NoError(t, err)
	require.Len(t, a.Aprovadores, 2)

	again, err := f.coord.Instantiate(f.ctx, f.request, f.action.Codigo)
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)

	_, err = f.coord.Instantiate(f.ctx, f.request, "acao_inexistente")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordDecisionSequential(t *testing.T) {
	f := newFixture(t, domain.EstrategiaSequencial, 1)
	a, err := f.coord.Instantiate(f.ctx, f.request, f.action.Codigo)
	require.NoError(t, err)

	_, err = f.coord.RecordDecision(f.ctx, a.ID, f.second, domain.DecisaoAprovada, "")
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)

	status, err := f.coord.RecordDecision(f.ctx, a.ID, f.first, domain.DecisaoAprovada, "ok", "parecer.pdf")
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoPendente, status)

	summary, err := f.coord.Aggregate(f.ctx, f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoPendente, summary.Status)
	assert.Equal(t, []uuid.UUID{a.ID}, summary.Outstanding)

	status, err = f.coord.RecordDecision(f.ctx, a.ID, f.second, domain.DecisaoAprovada, "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoAprovada, status)

	stored, err := f.coord.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Version)
	assert.Equal(t, []string{"parecer.pdf"}, stored.Aprovadores[0].Anexos)

	_, err = f.coord.RecordDecision(f.ctx, a.ID, f.second, domain.DecisaoRejeitada, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
}

func TestRecordDecisionUnassigned(t *testing.T) {
	f := newFixture(t, domain.EstrategiaParalela, 1)
	a, err := f.coord.Instantiate(f.ctx, f.request, f.action.Codigo)
	require.NoError(t, err)

	_, err = f.coord.RecordDecision(f.ctx, a.ID, uuid.New(), domain.DecisaoAprovada, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestConcurrentParallelDecisionsAreNotLost(t *testing.T) {
	f := newFixture(t, domain.EstrategiaParalela, 1)
	a, err := f.coord.Instantiate(f.ctx, f.request, f.action.Codigo)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, approver := range []uuid.UUID{f.first, f.second} {
		wg.Add(1)
		go func(i int, approver uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.coord.RecordDecision(f.ctx, a.ID, approver, domain.DecisaoAprovada, "")
		}(i, approver)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	stored, err := f.coord.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoAprovada, stored.Status)
	for _, ap := range stored.Aprovadores {
		assert.Equal(t, domain.DecisaoAprovada, ap.Decisao)
	}
}

func TestDispenseKeepsRecords(t *testing.T) {
	f := newFixture(t, domain.EstrategiaParalela, 1)
	a, err := f.coord.Instantiate(f.ctx, f.request, f.action.Codigo)
	require.NoError(t, err)

	n, err := f.coord.Dispense(f.ctx, f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := f.coord.List(f.ctx, f.request.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Dispensada)

	summary, err := f.coord.Aggregate(f.ctx, f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Linked)
	assert.Equal(t, domain.AprovacaoAprovada, summary.Status)

	_, err = f.coord.RecordDecision(f.ctx, a.ID, f.first, domain.DecisaoAprovada, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
}

func TestRejectedApprovalIsReplacedOnInstantiate(t *testing.T) {
	f := newFixture(t, domain.EstrategiaParalela, 1)
	f.coord.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	a, err := f.coord.Instantiate(f.ctx, f.request, f.action.Codigo)
	require.NoError(t, err)

	status, err := f.coord.RecordDecision(f.ctx, a.ID, f.first, domain.DecisaoRejeitada, "renda incompatível")
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoRejeitada, status)

	f.coord.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }
	fresh, err := f.coord.Instantiate(f.ctx, f.request, f.action.Codigo)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, fresh.ID)

	status, err = f.coord.RecordDecision(f.ctx, fresh.ID, f.first, domain.DecisaoAprovada, "")
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoPendente, status)
	status, err = f.coord.RecordDecision(f.ctx, fresh.ID, f.second, domain.DecisaoAprovada, "")
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoAprovada, status)

	old, err := f.coord.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, old.Dispensada)
	assert.Equal(t, domain.AprovacaoRejeitada, old.Status)

	summary, err := f.coord.Aggregate(f.ctx, f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoAprovada, summary.Status)
	assert.Equal(t, 1, summary.Linked)
	assert.Empty(t, summary.Outstanding)
}

func TestSequentialOrderStartingAtZero(t *testing.T) {
	f := newFixture(t, domain.EstrategiaSequencial, 1)
	action := domain.ApprovalAction{
		ID:              uuid.New(),
		Codigo:          "deferimento_ordem_zero",
		Estrategia:      domain.EstrategiaSequencial,
		MinAprovadores:  2,
		PerfisElegiveis: []domain.RoleKind{domain.RoleCoordenador, domain.RoleGestor},
	}
	f.store.AddApprovalAction(action,
		domain.ConfigApprover{UsuarioID: f.first, Perfil: domain.RoleCoordenador, Ordem: 0},
		domain.ConfigApprover{UsuarioID: f.second, Perfil: domain.RoleGestor, Ordem: 1},
	)
	a, err := f.coord.Instantiate(f.ctx, f.request, action.Codigo)
	require.NoError(t, err)

	_, err = f.coord.RecordDecision(f.ctx, a.ID, f.second, domain.DecisaoAprovada, "")
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)

	_, err = f.coord.RecordDecision(f.ctx, a.ID, f.first, domain.DecisaoAprovada, "")
	require.NoError(t, err)
	status, err := f.coord.RecordDecision(f.ctx, a.ID, f.second, domain.DecisaoAprovada, "")
	require.NoError(t, err)
	assert.Equal(t, domain.AprovacaoAprovada, status)
}
