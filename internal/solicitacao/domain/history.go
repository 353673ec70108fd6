package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryReason classifies a StatusHistory row.
type HistoryReason string

const (
	// MotivoTransicao is a regular gated transition.
	MotivoTransicao HistoryReason = "transicao"
	// MotivoDeterminacaoJudicial is a step forced by a court determination.
	MotivoDeterminacaoJudicial HistoryReason = "determinacao_judicial"
	// MotivoAprovacaoConcluida is a transition triggered by an approval aggregate.
	MotivoAprovacaoConcluida HistoryReason = "aprovacao_concluida"
	// MotivoRenovacaoEncerrada marks a concluded request that will not be renewed again.
	// Status does not change on this row.
	MotivoRenovacaoEncerrada HistoryReason = "renovacao_encerrada"
)

func ParseHistoryReason(value string) (HistoryReason, error) {
	switch HistoryReason(value) {
	case MotivoTransicao, MotivoDeterminacaoJudicial, MotivoAprovacaoConcluida, MotivoRenovacaoEncerrada:
		return HistoryReason(value), nil
	default:
		return "", SchemaViolation("historico_status_solicitacao", "motivo", value)
	}
}

// StatusHistory is one append-only audit row.
type StatusHistory struct {
	ID             uuid.UUID
	SolicitacaoID  uuid.UUID
	StatusAnterior Status
	StatusNovo     Status
	UsuarioID      *uuid.UUID
	Motivo         HistoryReason
	Observacao     string
	CreatedAt      time.Time
}

// RenewalExhaustedEntry records that r reached its renewal limit.
func RenewalExhaustedEntry(r Request, observation string, at time.Time) StatusHistory {
	return StatusHistory{
		ID:             uuid.New(),
		SolicitacaoID:  r.ID,
		StatusAnterior: r.Status,
		StatusNovo:     r.Status,
		Motivo:         MotivoRenovacaoEncerrada,
		Observacao:     observation,
		CreatedAt:      at,
	}
}
