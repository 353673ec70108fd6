package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvalWith(strategy Estrategia, threshold int, approvers ...AssignedApprover) RequestApproval {
	for i := range approvers {
		approvers[i].Decisao = DecisaoPendente
	}
	return RequestApproval{
		ID:              uuid.New(),
		Estrategia:      strategy,
		MinAprovadores:  1,
		LimiteRejeicoes: threshold,
		Status:          AprovacaoPendente,
		Aprovadores:     approvers,
		Version:         1,
	}
}

func TestSequentialOrderGating(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	a := approvalWith(EstrategiaSequencial, 1,
		AssignedApprover{UsuarioID: first, Ordem: 1},
		AssignedApprover{UsuarioID: second, Ordem: 2},
	)
	now := time.Now()

	err := a.Decide(second, DecisaoAprovada, "", nil, now)
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, DecisaoPendente, a.Aprovadores[1].Decisao)

	require.NoError(t, a.Decide(first, DecisaoAprovada, "ok", nil, now))
	assert.Equal(t, AprovacaoPendente, a.Status)

	require.NoError(t, a.Decide(second, DecisaoAprovada, "ok", []string{"parecer.pdf"}, now))
	assert.Equal(t, AprovacaoAprovada, a.Status)
	assert.Equal(t, []string{"parecer.pdf"}, a.Aprovadores[1].Anexos)
}

func TestSequentialOrderGatingFromZero(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	a := approvalWith(EstrategiaSequencial, 1,
		AssignedApprover{UsuarioID: first, Ordem: 0},
		AssignedApprover{UsuarioID: second, Ordem: 1},
	)

	err := a.Decide(second, DecisaoAprovada, "", nil, time.Now())
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, DecisaoPendente, a.Aprovadores[1].Decisao)

	require.NoError(t, a.Decide(first, DecisaoAprovada, "", nil, time.Now()))
	require.NoError(t, a.Decide(second, DecisaoAprovada, "", nil, time.Now()))
	assert.Equal(t, AprovacaoAprovada, a.Status)
}

func TestSequentialRejectionConcludes(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	a := approvalWith(EstrategiaSequencial, 3,
		AssignedApprover{UsuarioID: first, Ordem: 1},
		AssignedApprover{UsuarioID: second, Ordem: 2},
	)

	require.NoError(t, a.Decide(first, DecisaoAprovada, "", nil, time.Now()))
	require.NoError(t, a.Decide(second, DecisaoRejeitada, "renda acima do limite", nil, time.Now()))
	assert.Equal(t, AprovacaoRejeitada, a.Status)
	assert.Equal(t, 1, a.Threshold())
}

func TestSameOrderFormsOneStage(t *testing.T) {
	a1, a2, b := uuid.New(), uuid.New(), uuid.New()
	a := approvalWith(EstrategiaSequencial, 1,
		AssignedApprover{UsuarioID: a1, Ordem: 1},
		AssignedApprover{UsuarioID: a2, Ordem: 1},
		AssignedApprover{UsuarioID: b, Ordem: 2},
	)

	require.NoError(t, a.Decide(a2, DecisaoAprovada, "", nil, time.Now()))
	assert.ErrorIs(t, a.Decide(b, DecisaoAprovada, "", nil, time.Now()), ErrOutOfOrder)
	require.NoError(t, a.Decide(a1, DecisaoAprovada, "", nil, time.Now()))
	require.NoError(t, a.Decide(b, DecisaoAprovada, "", nil, time.Now()))
	assert.Equal(t, AprovacaoAprovada, a.Status)
}

func TestParallelRejectionThreshold(t *testing.T) {
	x, y, z := uuid.New(), uuid.New(), uuid.New()

	t.Run("default threshold rejects on first required rejection", func(t *testing.T) {
		a := approvalWith(EstrategiaParalela, 0,
			AssignedApprover{UsuarioID: x, Ordem: 1, Obrigatorio: true},
			AssignedApprover{UsuarioID: y, Ordem: 1, Obrigatorio: true},
		)
		require.NoError(t, a.Decide(y, DecisaoRejeitada, "", nil, time.Now()))
		assert.Equal(t, AprovacaoRejeitada, a.Status)
	})

	t.Run("minority rejection tolerated below threshold", func(t *testing.T) {
		a := approvalWith(EstrategiaParalela, 2,
			AssignedApprover{UsuarioID: x, Ordem: 1, Obrigatorio: true},
			AssignedApprover{UsuarioID: y, Ordem: 2, Obrigatorio: true},
			AssignedApprover{UsuarioID: z, Ordem: 3, Obrigatorio: true},
		)
		require.NoError(t, a.Decide(z, DecisaoRejeitada, "", nil, time.Now()))
		assert.Equal(t, AprovacaoPendente, a.Status)
		require.NoError(t, a.Decide(x, DecisaoAprovada, "", nil, time.Now()))
		assert.Equal(t, AprovacaoPendente, a.Status)
		require.NoError(t, a.Decide(y, DecisaoAprovada, "", nil, time.Now()))
		assert.Equal(t, AprovacaoAprovada, a.Status)
	})

	t.Run("threshold reached rejects", func(t *testing.T) {
		a := approvalWith(EstrategiaParalela, 2,
			AssignedApprover{UsuarioID: x, Ordem: 1, Obrigatorio: true},
			AssignedApprover{UsuarioID: y, Ordem: 1, Obrigatorio: true},
			AssignedApprover{UsuarioID: z, Ordem: 1, Obrigatorio: true},
		)
		require.NoError(t, a.Decide(x, DecisaoRejeitada, "", nil, time.Now()))
		require.NoError(t, a.Decide(y, DecisaoRejeitada, "", nil, time.Now()))
		assert.Equal(t, AprovacaoRejeitada, a.Status)
		assert.ErrorIs(t, a.Decide(z, DecisaoAprovada, "", nil, time.Now()), ErrAlreadyDecided)
	})

	t.Run("optional rejection does not conclude", func(t *testing.T) {
		a := approvalWith(EstrategiaParalela, 1,
			AssignedApprover{UsuarioID: x, Ordem: 1, Obrigatorio: true},
			AssignedApprover{UsuarioID: y, Ordem: 1, Obrigatorio: false},
		)
		require.NoError(t, a.Decide(y, DecisaoRejeitada, "", nil, time.Now()))
		assert.Equal(t, AprovacaoPendente, a.Status)
		require.NoError(t, a.Decide(x, DecisaoAprovada, "", nil, time.Now()))
		assert.Equal(t, AprovacaoAprovada, a.Status)
	})
}

func TestDecideErrors(t *testing.T) {
	x := uuid.New()
	a := approvalWith(EstrategiaParalela, 1, AssignedApprover{UsuarioID: x, Ordem: 1, Obrigatorio: true})

	assert.ErrorIs(t, a.Decide(uuid.New(), DecisaoAprovada, "", nil, time.Now()), ErrUnauthorized)
	assert.Error(t, a.Decide(x, DecisaoPendente, "", nil, time.Now()))

	require.NoError(t, a.Decide(x, DecisaoAprovada, "", nil, time.Now()))
	assert.ErrorIs(t, a.Decide(x, DecisaoRejeitada, "", nil, time.Now()), ErrAlreadyDecided)
}

func TestDispensedApprovalRefusesDecisions(t *testing.T) {
	x := uuid.New()
	a := approvalWith(EstrategiaParalela, 1, AssignedApprover{UsuarioID: x, Ordem: 1, Obrigatorio: true})
	a.Dispensada = true

	assert.ErrorIs(t, a.Decide(x, DecisaoAprovada, "", nil, time.Now()), ErrAlreadyDecided)
}

func TestNewRequestApprovalFiltersCandidates(t *testing.T) {
	unit := uuid.New()
	otherUnit := uuid.New()
	tecnico := uuid.New()
	minValue := int64(10000)

	action := ApprovalAction{
		ID:                  uuid.New(),
		Codigo:              "deferimento_aluguel_social",
		Estrategia:          EstrategiaSequencial,
		MinAprovadores:      2,
		PerfisElegiveis:     []RoleKind{RoleCoordenador, RoleGestor},
		MesmaUnidade:        true,
		ValorMinimoCentavos: &minValue,
	}
	req := Request{ID: uuid.New(), UnidadeID: unit, TecnicoID: tecnico, ValorCentavos: 60000}

	gestor := uuid.New()
	coord := uuid.New()
	candidates := []ConfigApprover{
		{UsuarioID: gestor, Perfil: RoleGestor, UnidadeID: &unit, Ordem: 2},
		{UsuarioID: coord, Perfil: RoleCoordenador, UnidadeID: &unit, Ordem: 1},
		{UsuarioID: uuid.New(), Perfil: RoleTecnico, UnidadeID: &unit, Ordem: 1},
		{UsuarioID: uuid.New(), Perfil: RoleCoordenador, UnidadeID: &otherUnit, Ordem: 1},
		{UsuarioID: tecnico, Perfil: RoleCoordenador, UnidadeID: &unit, Ordem: 1},
	}

	assert.True(t, action.AppliesTo(req.ValorCentavos))
	assert.False(t, action.AppliesTo(5000))

	a, err := NewRequestApproval(action, req, candidates, time.Now())
	require.NoError(t, err)
	require.Len(t, a.Aprovadores, 2)
	assert.Equal(t, coord, a.Aprovadores[0].UsuarioID)
	assert.Equal(t, gestor, a.Aprovadores[1].UsuarioID)
	assert.True(t, a.Aprovadores[0].Obrigatorio)
	assert.Equal(t, AprovacaoPendente, a.Status)

	_, err = NewRequestApproval(action, req, candidates[:1], time.Now())
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	x := uuid.New()
	a := approvalWith(EstrategiaParalela, 1, AssignedApprover{UsuarioID: x, Ordem: 1, Obrigatorio: true})
	clone := a.Clone()
	require.NoError(t, clone.Decide(x, DecisaoAprovada, "", []string{"a"}, time.Now()))

	assert.Equal(t, DecisaoPendente, a.Aprovadores[0].Decisao)
	assert.Equal(t, AprovacaoPendente, a.Status)
}
