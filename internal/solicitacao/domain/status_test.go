package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusRascunho, StatusAberta, true},
		{StatusAberta, StatusEmAnalise, true},
		{StatusEmAnalise, StatusPendente, true},
		{StatusEmAnalise, StatusAprovada, true},
		{StatusEmAnalise, StatusIndeferida, true},
		{StatusPendente, StatusEmAnalise, true},
		{StatusAprovada, StatusLiberada, true},
		{StatusLiberada, StatusEmProcessamento, true},
		{StatusLiberada, StatusConcluida, true},
		{StatusRascunho, StatusLiberada, false},
		{StatusRascunho, StatusEmAnalise, false},
		{StatusAberta, StatusAprovada, false},
		{StatusPendente, StatusAprovada, false},
		{StatusConcluida, StatusCancelada, false},
		{StatusIndeferida, StatusEmAnalise, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for s := range knownStatuses {
		if s.IsTerminal() {
			assert.Empty(t, AllowedTargets(s), "terminal %s must not have exits", s)
		} else {
			assert.NotEmpty(t, AllowedTargets(s), "non-terminal %s must have exits", s)
		}
	}
}

func TestEveryTargetIsKnown(t *testing.T) {
	for from, targets := range transitions {
		assert.True(t, from.IsKnown())
		for _, to := range targets {
			assert.True(t, to.IsKnown(), "%s -> %s", from, to)
		}
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	_, err := ParseStatus("deferida")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaViolation))

	s, err := ParseStatus("em_analise")
	require.NoError(t, err)
	assert.Equal(t, StatusEmAnalise, s)
}

func TestRequiresPendencyClearance(t *testing.T) {
	assert.True(t, RequiresPendencyClearance(StatusEmAnalise, StatusAprovada))
	assert.True(t, RequiresPendencyClearance(StatusEmAnalise, StatusIndeferida))
	assert.True(t, RequiresPendencyClearance(StatusPendente, StatusEmAnalise))
	assert.False(t, RequiresPendencyClearance(StatusEmAnalise, StatusPendente))
	assert.False(t, RequiresPendencyClearance(StatusEmAnalise, StatusCancelada))
	assert.False(t, RequiresPendencyClearance(StatusAprovada, StatusLiberada))
}

func TestPathTo(t *testing.T) {
	assert.Equal(t, []Status{StatusAprovada, StatusLiberada}, PathTo(StatusEmAnalise, StatusLiberada))
	assert.Equal(t, []Status{StatusEmAnalise, StatusAprovada, StatusLiberada}, PathTo(StatusPendente, StatusLiberada))
	assert.Equal(t, []Status{StatusAberta, StatusEmAnalise, StatusAprovada, StatusLiberada}, PathTo(StatusRascunho, StatusLiberada))
	assert.Equal(t, []Status{StatusCancelada}, PathTo(StatusLiberada, StatusCancelada))
	assert.Equal(t, []Status{}, PathTo(StatusLiberada, StatusLiberada))
	assert.Nil(t, PathTo(StatusEmProcessamento, StatusLiberada))
	assert.Nil(t, PathTo(StatusConcluida, StatusArquivada))

	for _, from := range []Status{StatusRascunho, StatusAberta, StatusPendente, StatusAguardandoDocumentos} {
		prev := from
		for _, step := range PathTo(from, StatusLiberada) {
			require.True(t, CanTransition(prev, step), "%s -> %s", prev, step)
			prev = step
		}
	}
}

func TestAdvanceStampsStages(t *testing.T) {
	approver := Actor{ID: uuid.New(), Role: Role{kind: RoleCoordenador}}
	req := Request{ID: uuid.New(), Status: StatusEmAnalise}
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	entry, err := req.Advance(StatusAprovada, approver, MotivoTransicao, "ok", at)
	require.NoError(t, err)
	assert.Equal(t, StatusEmAnalise, entry.StatusAnterior)
	assert.Equal(t, StatusAprovada, entry.StatusNovo)
	require.NotNil(t, req.DataAprovacao)
	assert.Equal(t, approver.ID, *req.AprovadorID)
	assert.Nil(t, req.DataLiberacao)
	assert.True(t, req.Reached(StatusAprovada))
	assert.False(t, req.Reached(StatusLiberada))

	_, err = req.Advance(StatusConcluida, approver, MotivoTransicao, "", at)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusAprovada, req.Status)
}

func TestAdvanceFromTerminalFails(t *testing.T) {
	req := Request{ID: uuid.New(), Status: StatusCancelada}
	_, err := req.Advance(StatusAberta, SystemActor(), MotivoTransicao, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
