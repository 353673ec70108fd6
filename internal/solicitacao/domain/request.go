package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contato is how the beneficiary is reached for notifications.
type Contato struct {
	Email    string `json:"email,omitempty"`
	Telefone string `json:"telefone,omitempty"`
}

// Request is a citizen's application for one benefit (solicitação).
type Request struct {
	ID                     uuid.UUID
	Protocolo              string
	BeneficiarioID         uuid.UUID
	SolicitanteID          *uuid.UUID
	TipoBeneficio          TipoBeneficio
	UnidadeID              uuid.UUID
	TecnicoID              uuid.UUID
	Status                 Status
	AprovadorID            *uuid.UUID
	DataAprovacao          *time.Time
	LiberadorID            *uuid.UUID
	DataLiberacao          *time.Time
	DataConclusao          *time.Time
	DeterminacaoJudicial   bool
	DeterminacaoJudicialID *uuid.UUID
	RenovacaoAutomatica    bool
	ContadorRenovacoes     int
	DataProximaRenovacao   *time.Time
	SolicitacaoOriginalID  *uuid.UUID
	ValorCentavos          int64
	Contato                Contato
	Dados                  TypeSpecificData
	Version                int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// advance moves r to the target status and stamps the stage bookkeeping.
// Callers have already checked the allow-list and gates.
func (r *Request) advance(to Status, actor Actor, at time.Time) {
	r.Status = to
	r.UpdatedAt = at

	switch to {
	case StatusAprovada:
		r.AprovadorID = actor.HistoryUserID()
		r.DataAprovacao = &at
	case StatusLiberada:
		r.LiberadorID = actor.HistoryUserID()
		r.DataLiberacao = &at
	case StatusConcluida:
		r.DataConclusao = &at
	}
}

// Advance applies one allow-listed step and returns the history row describing it.
func (r *Request) Advance(to Status, actor Actor, reason HistoryReason, observation string, at time.Time) (StatusHistory, error) {
	if r.Status.IsTerminal() || !CanTransition(r.Status, to) {
		return StatusHistory{}, InvalidTransition(r.Status, to)
	}

	entry := StatusHistory{
		ID:             uuid.New(),
		SolicitacaoID:  r.ID,
		StatusAnterior: r.Status,
		StatusNovo:     to,
		UsuarioID:      actor.HistoryUserID(),
		Motivo:         reason,
		Observacao:     observation,
		CreatedAt:      at,
	}
	r.advance(to, actor, at)
	return entry, nil
}

// Reached reports whether r has passed through stage s at some point of its
// forward lifecycle, judged from the stage timestamps.
func (r Request) Reached(s Status) bool {
	switch s {
	case StatusAprovada:
		return r.DataAprovacao != nil
	case StatusLiberada:
		return r.DataLiberacao != nil
	case StatusConcluida:
		return r.DataConclusao != nil
	default:
		return r.Status == s
	}
}

// RenewalBase is the date a renewal period is counted from.
func (r Request) RenewalBase() time.Time {
	switch {
	case r.DataLiberacao != nil:
		return *r.DataLiberacao
	case r.DataConclusao != nil:
		return *r.DataConclusao
	default:
		return r.UpdatedAt
	}
}
