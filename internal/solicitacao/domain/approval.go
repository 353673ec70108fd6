package domain

import (
	"fmt"
	"sort"
	"time"

	"beneficios_backend/platform/apperr"

	"github.com/google/uuid"
)

type Estrategia string

const (
	EstrategiaSequencial Estrategia = "sequencial"
	EstrategiaParalela   Estrategia = "paralela"
)

func ParseEstrategia(value string) (Estrategia, error) {
	switch Estrategia(value) {
	case EstrategiaSequencial, EstrategiaParalela:
		return Estrategia(value), nil
	default:
		return "", SchemaViolation("acao_aprovacao", "estrategia", value)
	}
}

// Decisao is an individual approver's decision.
type Decisao string

const (
	DecisaoPendente  Decisao = "pendente"
	DecisaoAprovada  Decisao = "aprovada"
	DecisaoRejeitada Decisao = "rejeitada"
)

func ParseDecisao(value string) (Decisao, error) {
	switch Decisao(value) {
	case DecisaoPendente, DecisaoAprovada, DecisaoRejeitada:
		return Decisao(value), nil
	default:
		return "", SchemaViolation("solicitacao_aprovador", "decisao", value)
	}
}

// AggregateStatus is the derived outcome of a RequestApproval.
type AggregateStatus string

const (
	AprovacaoPendente  AggregateStatus = "pendente"
	AprovacaoAprovada  AggregateStatus = "aprovada"
	AprovacaoRejeitada AggregateStatus = "rejeitada"
)

func ParseAggregateStatus(value string) (AggregateStatus, error) {
	switch AggregateStatus(value) {
	case AprovacaoPendente, AprovacaoAprovada, AprovacaoRejeitada:
		return AggregateStatus(value), nil
	default:
		return "", SchemaViolation("solicitacao_aprovacao", "status", value)
	}
}

// IsTerminal reports whether the aggregate can no longer change.
func (s AggregateStatus) IsTerminal() bool { return s != AprovacaoPendente }

// ApprovalAction is the template describing who signs off on a critical action.
type ApprovalAction struct {
	ID                  uuid.UUID
	Codigo              string
	Nome                string
	Estrategia          Estrategia
	MinAprovadores      int
	LimiteRejeicoes     int
	PerfisElegiveis     []RoleKind
	MesmaUnidade        bool
	ValorMinimoCentavos *int64
}

// AppliesTo reports whether the action's value threshold covers valor.
func (a ApprovalAction) AppliesTo(valor int64) bool {
	return a.ValorMinimoCentavos == nil || valor >= *a.ValorMinimoCentavos
}

func (a ApprovalAction) acceptsRole(kind RoleKind) bool {
	if len(a.PerfisElegiveis) == 0 {
		return true
	}
	for _, k := range a.PerfisElegiveis {
		if k == kind {
			return true
		}
	}
	return false
}

// ConfigApprover is one template entry of an ApprovalAction.
type ConfigApprover struct {
	ID          uuid.UUID
	AcaoID      uuid.UUID
	UsuarioID   uuid.UUID
	Perfil      RoleKind
	UnidadeID   *uuid.UUID
	Ordem       int
	Obrigatorio bool
}

// AssignedApprover is an approver bound to one RequestApproval.
type AssignedApprover struct {
	UsuarioID     uuid.UUID
	Ordem         int
	Obrigatorio   bool
	Decisao       Decisao
	Justificativa string
	Anexos        []string
	DataDecisao   *time.Time
}

// RequestApproval is the per-request instantiation of an ApprovalAction.
type RequestApproval struct {
	ID              uuid.UUID
	SolicitacaoID   uuid.UUID
	AcaoID          uuid.UUID
	Estrategia      Estrategia
	MinAprovadores  int
	LimiteRejeicoes int
	Status          AggregateStatus
	Dispensada      bool
	Aprovadores     []AssignedApprover
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewRequestApproval resolves the template candidates against the action criteria.
// The request's own technician is never assigned as its approver.
func NewRequestApproval(action ApprovalAction, req Request, candidates []ConfigApprover, at time.Time) (RequestApproval, error) {
	var assigned []AssignedApprover
	seen := make(map[uuid.UUID]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.UsuarioID] || c.UsuarioID == req.TecnicoID || !action.acceptsRole(c.Perfil) {
			continue
		}
		if action.MesmaUnidade && (c.UnidadeID == nil || *c.UnidadeID != req.UnidadeID) {
			continue
		}
		seen[c.UsuarioID] = true
		assigned = append(assigned, AssignedApprover{
			UsuarioID:   c.UsuarioID,
			Ordem:       c.Ordem,
			Obrigatorio: c.Obrigatorio || action.Estrategia == EstrategiaSequencial,
			Decisao:     DecisaoPendente,
		})
	}
	sort.SliceStable(assigned, func(i, j int) bool { return assigned[i].Ordem < assigned[j].Ordem })

	minimum := max(action.MinAprovadores, 1)
	if len(assigned) < minimum {
		return RequestApproval{}, apperr.Validation(fmt.Sprintf("action %s needs %d eligible approvers, found %d", action.Codigo, minimum, len(assigned))).
			WithDetails(map[string]any{"acao": action.Codigo, "elegiveis": len(assigned)})
	}

	return RequestApproval{
		ID:              uuid.New(),
		SolicitacaoID:   req.ID,
		AcaoID:          action.ID,
		Estrategia:      action.Estrategia,
		MinAprovadores:  action.MinAprovadores,
		LimiteRejeicoes: action.LimiteRejeicoes,
		Status:          AprovacaoPendente,
		Aprovadores:     assigned,
		Version:         1,
		CreatedAt:       at,
		UpdatedAt:       at,
	}, nil
}

// Threshold is the number of required rejections that conclude the aggregate as rejected.
func (a RequestApproval) Threshold() int {
	if a.Estrategia == EstrategiaSequencial || a.LimiteRejeicoes < 1 {
		return 1
	}
	return a.LimiteRejeicoes
}

func (a RequestApproval) required(ap AssignedApprover) bool {
	return ap.Obrigatorio || a.Estrategia == EstrategiaSequencial
}

// Evaluate derives the aggregate from the individual decisions.
func (a RequestApproval) Evaluate() AggregateStatus {
	var requiredTotal, requiredDecided, rejections, approvals, decided int
	for _, ap := range a.Aprovadores {
		if ap.Decisao != DecisaoPendente {
			decided++
		}
		if ap.Decisao == DecisaoAprovada {
			approvals++
		}
		if !a.required(ap) {
			continue
		}
		requiredTotal++
		if ap.Decisao != DecisaoPendente {
			requiredDecided++
		}
		if ap.Decisao == DecisaoRejeitada {
			rejections++
		}
	}

	if rejections >= a.Threshold() {
		return AprovacaoRejeitada
	}
	if requiredDecided == requiredTotal && approvals >= max(a.MinAprovadores, 1) {
		return AprovacaoAprovada
	}
	if decided == len(a.Aprovadores) {
		return AprovacaoRejeitada
	}
	return AprovacaoPendente
}

// Assigned reports whether userID is one of the approvers.
func (a RequestApproval) Assigned(userID uuid.UUID) bool {
	return a.indexOf(userID) >= 0
}

func (a RequestApproval) indexOf(userID uuid.UUID) int {
	for i, ap := range a.Aprovadores {
		if ap.UsuarioID == userID {
			return i
		}
	}
	return -1
}

// firstUnapprovedOrderBefore returns the lowest order below order whose approvers have
// not all approved. ok is false when every earlier stage is complete.
func (a RequestApproval) firstUnapprovedOrderBefore(order int) (lowest int, ok bool) {
	for _, ap := range a.Aprovadores {
		if ap.Ordem >= order || ap.Decisao == DecisaoAprovada {
			continue
		}
		if !ok || ap.Ordem < lowest {
			lowest, ok = ap.Ordem, true
		}
	}
	return lowest, ok
}

// Decide records one approver's decision and recomputes the aggregate.
func (a *RequestApproval) Decide(approverID uuid.UUID, decision Decisao, justificativa string, anexos []string, at time.Time) error {
	if decision != DecisaoAprovada && decision != DecisaoRejeitada {
		return apperr.Validation("decision must be aprovada or rejeitada")
	}

	idx := a.indexOf(approverID)
	if idx < 0 {
		return Unauthorized("user is not an assigned approver of this approval")
	}
	if a.Dispensada || a.Status.IsTerminal() {
		return AlreadyDecided("approval is already concluded")
	}

	ap := &a.Aprovadores[idx]
	if ap.Decisao != DecisaoPendente {
		return AlreadyDecided("approver has already decided")
	}
	if a.Estrategia == EstrategiaSequencial {
		if waiting, ok := a.firstUnapprovedOrderBefore(ap.Ordem); ok {
			return OutOfOrder(ap.Ordem, waiting)
		}
	}

	ap.Decisao = decision
	ap.Justificativa = justificativa
	ap.Anexos = append([]string(nil), anexos...)
	ap.DataDecisao = &at
	a.UpdatedAt = at
	a.Status = a.Evaluate()
	return nil
}

// Clone returns a deep copy so a failed optimistic save never leaks partial state.
func (a RequestApproval) Clone() RequestApproval {
	out := a
	out.Aprovadores = make([]AssignedApprover, len(a.Aprovadores))
	for i, ap := range a.Aprovadores {
		ap.Anexos = append([]string(nil), ap.Anexos...)
		ap.DataDecisao = cloneTime(ap.DataDecisao)
		out.Aprovadores[i] = ap
	}
	return out
}
