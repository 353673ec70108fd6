package domain

import (
	"time"

	"github.com/google/uuid"
)

// TipoDeterminacao is the directive of a court determination.
type TipoDeterminacao string

const (
	DeterminacaoConcessao    TipoDeterminacao = "concessao"
	DeterminacaoSuspensao    TipoDeterminacao = "suspensao"
	DeterminacaoCancelamento TipoDeterminacao = "cancelamento"
	DeterminacaoAlteracao    TipoDeterminacao = "alteracao"
)

func ParseTipoDeterminacao(value string) (TipoDeterminacao, error) {
	switch TipoDeterminacao(value) {
	case DeterminacaoConcessao, DeterminacaoSuspensao, DeterminacaoCancelamento, DeterminacaoAlteracao:
		return TipoDeterminacao(value), nil
	default:
		return "", SchemaViolation("determinacao_judicial", "tipo", value)
	}
}

// TargetStatus is the status the directive forces. alteracao keeps current.
func (t TipoDeterminacao) TargetStatus(current Status) Status {
	switch t {
	case DeterminacaoConcessao:
		return StatusLiberada
	case DeterminacaoSuspensao:
		return StatusCancelada
	case DeterminacaoCancelamento:
		return StatusArquivada
	default:
		return current
	}
}

// Determinacao is a court order linked to a Request.
type Determinacao struct {
	ID               uuid.UUID
	SolicitacaoID    uuid.UUID
	Tipo             TipoDeterminacao
	NumeroProcesso   string
	Orgao            string
	Descricao        string
	DataDeterminacao time.Time
	Ativa            bool
	CreatedAt        time.Time
}

// GrantsBenefit reports whether d is an active concessao.
func (d Determinacao) GrantsBenefit() bool {
	return d.Ativa && d.Tipo == DeterminacaoConcessao
}
