// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"beneficios_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Solicitacao Domain Events
// =============================================================================

// SolicitacaoStatusChanged is published after every committed status transition.
type SolicitacaoStatusChanged struct {
	BaseEvent
	SolicitacaoID  uuid.UUID  `json:"solicitacaoId"`
	Protocolo      string     `json:"protocolo"`
	TipoBeneficio  string     `json:"tipoBeneficio"`
	StatusAnterior string     `json:"statusAnterior"`
	StatusNovo     string     `json:"statusNovo"`
	Motivo         string     `json:"motivo"`
	Observacao     string     `json:"observacao,omitempty"`
	UsuarioID      *uuid.UUID `json:"usuarioId,omitempty"`
	Version        int        `json:"version"`
	ContatoEmail   string     `json:"contatoEmail,omitempty"`
	ContatoFone    string     `json:"contatoFone,omitempty"`
}

func (e SolicitacaoStatusChanged) EventName() string { return "solicitacao.status.changed" }

// SolicitacaoCreated is published when a draft request is registered.
type SolicitacaoCreated struct {
	BaseEvent
	SolicitacaoID         uuid.UUID  `json:"solicitacaoId"`
	Protocolo             string     `json:"protocolo"`
	TipoBeneficio         string     `json:"tipoBeneficio"`
	UnidadeID             uuid.UUID  `json:"unidadeId"`
	SolicitacaoOriginalID *uuid.UUID `json:"solicitacaoOriginalId,omitempty"`
}

func (e SolicitacaoCreated) EventName() string { return "solicitacao.created" }

// SolicitacaoRenewed is published when a renewal child request is created.
type SolicitacaoRenewed struct {
	BaseEvent
	SolicitacaoID        uuid.UUID  `json:"solicitacaoId"`
	RenovacaoID          uuid.UUID  `json:"renovacaoId"`
	ProtocoloOriginal    string     `json:"protocoloOriginal"`
	Protocolo            string     `json:"protocolo"`
	ContadorRenovacoes   int        `json:"contadorRenovacoes"`
	DataProximaRenovacao *time.Time `json:"dataProximaRenovacao,omitempty"`
	ContatoEmail         string     `json:"contatoEmail,omitempty"`
}

func (e SolicitacaoRenewed) EventName() string { return "solicitacao.renewed" }

// =============================================================================
// Pendencia Domain Events
// =============================================================================

// PendenciaOpened is published when a blocking issue is raised against a request.
type PendenciaOpened struct {
	BaseEvent
	PendenciaID   uuid.UUID `json:"pendenciaId"`
	SolicitacaoID uuid.UUID `json:"solicitacaoId"`
	Protocolo     string    `json:"protocolo"`
	Descricao     string    `json:"descricao"`
	RegistradoPor uuid.UUID `json:"registradoPor"`
	ContatoEmail  string    `json:"contatoEmail,omitempty"`
}

func (e PendenciaOpened) EventName() string { return "pendencia.opened" }

// PendenciaResolved is published when a pendency is resolved or cancelled.
type PendenciaResolved struct {
	BaseEvent
	PendenciaID   uuid.UUID `json:"pendenciaId"`
	SolicitacaoID uuid.UUID `json:"solicitacaoId"`
	Status        string    `json:"status"`
}

func (e PendenciaResolved) EventName() string { return "pendencia.resolved" }

// =============================================================================
// Aprovacao Domain Events
// =============================================================================

// AprovacaoDecisionRecorded is published after each individual approver decision.
type AprovacaoDecisionRecorded struct {
	BaseEvent
	AprovacaoID   uuid.UUID `json:"aprovacaoId"`
	SolicitacaoID uuid.UUID `json:"solicitacaoId"`
	AprovadorID   uuid.UUID `json:"aprovadorId"`
	Decisao       string    `json:"decisao"`
	StatusGeral   string    `json:"statusGeral"`
}

func (e AprovacaoDecisionRecorded) EventName() string { return "aprovacao.decision.recorded" }

// =============================================================================
// Judicial Domain Events
// =============================================================================

// DeterminacaoJudicialApplied is published after a court determination is registered.
type DeterminacaoJudicialApplied struct {
	BaseEvent
	DeterminacaoID uuid.UUID `json:"determinacaoId"`
	SolicitacaoID  uuid.UUID `json:"solicitacaoId"`
	Tipo           string    `json:"tipo"`
	NumeroProcesso string    `json:"numeroProcesso"`
	StatusFinal    string    `json:"statusFinal"`
}

func (e DeterminacaoJudicialApplied) EventName() string { return "judicial.determinacao.applied" }

// SolicitacaoRenewalExhausted is published once when a request reaches its renewal limit.
type SolicitacaoRenewalExhausted struct {
	BaseEvent
	SolicitacaoID      uuid.UUID `json:"solicitacaoId"`
	Protocolo          string    `json:"protocolo"`
	ContadorRenovacoes int       `json:"contadorRenovacoes"`
	MaxRenovacoes      int       `json:"maxRenovacoes"`
}

func (e SolicitacaoRenewalExhausted) EventName() string { return "solicitacao.renewal.exhausted" }

// =============================================================================
// Pagamento Domain Events
// =============================================================================

// PagamentoCreated is published when a released request gets its payment plan.
type PagamentoCreated struct {
	BaseEvent
	PagamentoID        uuid.UUID `json:"pagamentoId"`
	SolicitacaoID      uuid.UUID `json:"solicitacaoId"`
	Periodicidade      string    `json:"periodicidade"`
	ValorTotalCentavos int64     `json:"valorTotalCentavos"`
	QuantidadeParcelas int       `json:"quantidadeParcelas"`
}

func (e PagamentoCreated) EventName() string { return "pagamento.created" }
