// Package transport holds the JSON shapes of the request workflow API.
package transport

import (
	"encoding/json"
	"time"

	"beneficios_backend/internal/solicitacao/aprovacao"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/service"

	"github.com/google/uuid"
)

// ContatoRequest is the beneficiary contact used for notifications.
type ContatoRequest struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Telefone string `json:"telefone,omitempty" validate:"omitempty,max=32"`
}

// CreateSolicitacaoRequest is the request body for registering a draft.
type CreateSolicitacaoRequest struct {
	BeneficiarioID      uuid.UUID       `json:"beneficiarioId" validate:"required"`
	SolicitanteID       *uuid.UUID      `json:"solicitanteId,omitempty"`
	TipoBeneficio       string          `json:"tipoBeneficio" validate:"required,oneof=natalidade aluguel_social funeral cesta_basica"`
	UnidadeID           *uuid.UUID      `json:"unidadeId,omitempty"`
	TecnicoID           *uuid.UUID      `json:"tecnicoId,omitempty"`
	ValorCentavos       int64           `json:"valorCentavos" validate:"gte=0"`
	RenovacaoAutomatica bool            `json:"renovacaoAutomatica"`
	Contato             ContatoRequest  `json:"contato"`
	Dados               json.RawMessage `json:"dados" validate:"required"`
}

// UpdateSolicitacaoRequest edits a draft. Version is the version the caller read.
type UpdateSolicitacaoRequest struct {
	Version             int             `json:"version" validate:"required,min=1"`
	ValorCentavos       *int64          `json:"valorCentavos,omitempty" validate:"omitempty,gte=0"`
	RenovacaoAutomatica *bool           `json:"renovacaoAutomatica,omitempty"`
	Contato             *ContatoRequest `json:"contato,omitempty"`
	Dados               json.RawMessage `json:"dados,omitempty"`
}

// TransitionRequest asks for one status change. A zero Version skips the
// optimistic check and retries on conflict instead.
type TransitionRequest struct {
	Status     string `json:"status" validate:"required"`
	Observacao string `json:"observacao,omitempty" validate:"max=2000"`
	Version    int    `json:"version,omitempty" validate:"gte=0"`
}

// SubmitRequest moves a draft to aberta.
type SubmitRequest struct {
	Observacao string `json:"observacao,omitempty" validate:"max=2000"`
}

// CreatePendenciaRequest raises a pendency.
type CreatePendenciaRequest struct {
	Descricao string `json:"descricao" validate:"required,min=3,max=2000"`
}

// ClosePendenciaRequest resolves or cancels a pendency.
type ClosePendenciaRequest struct {
	Observacao string `json:"observacao,omitempty" validate:"max=2000"`
}

// DecisionRequest records an approver decision.
type DecisionRequest struct {
	Decisao       string   `json:"decisao" validate:"required,oneof=aprovada rejeitada"`
	Justificativa string   `json:"justificativa,omitempty" validate:"max=2000"`
	Anexos        []string `json:"anexos,omitempty" validate:"max=10,dive,max=500"`
}

// DeterminacaoRequest registers a court determination.
type DeterminacaoRequest struct {
	Tipo             string    `json:"tipo" validate:"required,oneof=concessao suspensao cancelamento alteracao"`
	NumeroProcesso   string    `json:"numeroProcesso" validate:"required,max=64"`
	Orgao            string    `json:"orgao,omitempty" validate:"max=200"`
	Descricao        string    `json:"descricao,omitempty" validate:"max=4000"`
	DataDeterminacao time.Time `json:"dataDeterminacao"`
}

// SolicitacaoResponse is the public view of a request.
type SolicitacaoResponse struct {
	ID                    uuid.UUID       `json:"id"`
	Protocolo             string          `json:"protocolo"`
	BeneficiarioID        uuid.UUID       `json:"beneficiarioId"`
	SolicitanteID         *uuid.UUID      `json:"solicitanteId,omitempty"`
	TipoBeneficio         string          `json:"tipoBeneficio"`
	UnidadeID             uuid.UUID       `json:"unidadeId"`
	TecnicoID             uuid.UUID       `json:"tecnicoId"`
	Status                string          `json:"status"`
	AprovadorID           *uuid.UUID      `json:"aprovadorId,omitempty"`
	DataAprovacao         *time.Time      `json:"dataAprovacao,omitempty"`
	LiberadorID           *uuid.UUID      `json:"liberadorId,omitempty"`
	DataLiberacao         *time.Time      `json:"dataLiberacao,omitempty"`
	DataConclusao         *time.Time      `json:"dataConclusao,omitempty"`
	DeterminacaoJudicial  bool            `json:"determinacaoJudicial"`
	RenovacaoAutomatica   bool            `json:"renovacaoAutomatica"`
	ContadorRenovacoes    int             `json:"contadorRenovacoes"`
	DataProximaRenovacao  *time.Time      `json:"dataProximaRenovacao,omitempty"`
	SolicitacaoOriginalID *uuid.UUID      `json:"solicitacaoOriginalId,omitempty"`
	ValorCentavos         int64           `json:"valorCentavos"`
	Contato               ContatoRequest  `json:"contato"`
	Dados                 json.RawMessage `json:"dados,omitempty"`
	Version               int             `json:"version"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

func ToSolicitacaoResponse(r domain.Request) SolicitacaoResponse {
	dados, _ := r.Dados.MarshalVariant()
	return SolicitacaoResponse{
		ID:                    r.ID,
		Protocolo:             r.Protocolo,
		BeneficiarioID:        r.BeneficiarioID,
		SolicitanteID:         r.SolicitanteID,
		TipoBeneficio:         string(r.TipoBeneficio),
		UnidadeID:             r.UnidadeID,
		TecnicoID:             r.TecnicoID,
		Status:                string(r.Status),
		AprovadorID:           r.AprovadorID,
		DataAprovacao:         r.DataAprovacao,
		LiberadorID:           r.LiberadorID,
		DataLiberacao:         r.DataLiberacao,
		DataConclusao:         r.DataConclusao,
		DeterminacaoJudicial:  r.DeterminacaoJudicial,
		RenovacaoAutomatica:   r.RenovacaoAutomatica,
		ContadorRenovacoes:    r.ContadorRenovacoes,
		DataProximaRenovacao:  r.DataProximaRenovacao,
		SolicitacaoOriginalID: r.SolicitacaoOriginalID,
		ValorCentavos:         r.ValorCentavos,
		Contato:               ContatoRequest{Email: r.Contato.Email, Telefone: r.Contato.Telefone},
		Dados:                 dados,
		Version:               r.Version,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

// HistoricoResponse is one status history row.
type HistoricoResponse struct {
	ID             uuid.UUID  `json:"id"`
	StatusAnterior string     `json:"statusAnterior"`
	StatusNovo     string     `json:"statusNovo"`
	UsuarioID      *uuid.UUID `json:"usuarioId,omitempty"`
	Motivo         string     `json:"motivo"`
	Observacao     string     `json:"observacao,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func ToHistoricoResponse(entries []domain.StatusHistory) []HistoricoResponse {
	out := make([]HistoricoResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, HistoricoResponse{
			ID:             h.ID,
			StatusAnterior: string(h.StatusAnterior),
			StatusNovo:     string(h.StatusNovo),
			UsuarioID:      h.UsuarioID,
			Motivo:         string(h.Motivo),
			Observacao:     h.Observacao,
			CreatedAt:      h.CreatedAt,
		})
	}
	return out
}

// PendenciaResponse is the public view of a pendency.
type PendenciaResponse struct {
	ID                  uuid.UUID  `json:"id"`
	SolicitacaoID       uuid.UUID  `json:"solicitacaoId"`
	Descricao           string     `json:"descricao"`
	Status              string     `json:"status"`
	RegistradoPor       uuid.UUID  `json:"registradoPor"`
	ResolvidoPor        *uuid.UUID `json:"resolvidoPor,omitempty"`
	DataResolucao       *time.Time `json:"dataResolucao,omitempty"`
	ObservacaoResolucao string     `json:"observacaoResolucao,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

func ToPendenciaResponses(items []domain.Pendency) []PendenciaResponse {
	out := make([]PendenciaResponse, 0, len(items))
	for _, p := range items {
		out = append(out, PendenciaResponse{
			ID:                  p.ID,
			SolicitacaoID:       p.SolicitacaoID,
			Descricao:           p.Descricao,
			Status:              string(p.Status),
			RegistradoPor:       p.RegistradoPor,
			ResolvidoPor:        p.ResolvidoPor,
			DataResolucao:       p.DataResolucao,
			ObservacaoResolucao: p.ObservacaoResolucao,
			CreatedAt:           p.CreatedAt,
		})
	}
	return out
}

// AprovadorResponse is one assigned approver and its decision.
type AprovadorResponse struct {
	UsuarioID     uuid.UUID  `json:"usuarioId"`
	Ordem         int        `json:"ordem"`
	Obrigatorio   bool       `json:"obrigatorio"`
	Decisao       string     `json:"decisao"`
	Justificativa string     `json:"justificativa,omitempty"`
	Anexos        []string   `json:"anexos,omitempty"`
	DataDecisao   *time.Time `json:"dataDecisao,omitempty"`
}

// AprovacaoResponse is the public view of a request approval.
type AprovacaoResponse struct {
	ID              uuid.UUID           `json:"id"`
	SolicitacaoID   uuid.UUID           `json:"solicitacaoId"`
	Estrategia      string              `json:"estrategia"`
	MinAprovadores  int                 `json:"minAprovadores"`
	LimiteRejeicoes int                 `json:"limiteRejeicoes"`
	Status          string              `json:"status"`
	Dispensada      bool                `json:"dispensada"`
	Aprovadores     []AprovadorResponse `json:"aprovadores"`
}

func ToAprovacaoResponse(a domain.RequestApproval) AprovacaoResponse {
	approvers := make([]AprovadorResponse, 0, len(a.Aprovadores))
	for _, ap := range a.Aprovadores {
		approvers = append(approvers, AprovadorResponse{
			UsuarioID:     ap.UsuarioID,
			Ordem:         ap.Ordem,
			Obrigatorio:   ap.Obrigatorio,
			Decisao:       string(ap.Decisao),
			Justificativa: ap.Justificativa,
			Anexos:        ap.Anexos,
			DataDecisao:   ap.DataDecisao,
		})
	}
	return AprovacaoResponse{
		ID:              a.ID,
		SolicitacaoID:   a.SolicitacaoID,
		Estrategia:      string(a.Estrategia),
		MinAprovadores:  a.MinAprovadores,
		LimiteRejeicoes: a.LimiteRejeicoes,
		Status:          string(a.Status),
		Dispensada:      a.Dispensada,
		Aprovadores:     approvers,
	}
}

// AprovacoesResponse lists the approvals of a request with their overall outcome.
type AprovacoesResponse struct {
	Status     string              `json:"status"`
	Pendentes  []uuid.UUID         `json:"pendentes,omitempty"`
	Aprovacoes []AprovacaoResponse `json:"aprovacoes"`
}

func ToAprovacoesResponse(summary aprovacao.Summary, approvals []domain.RequestApproval) AprovacoesResponse {
	items := make([]AprovacaoResponse, 0, len(approvals))
	for _, a := range approvals {
		items = append(items, ToAprovacaoResponse(a))
	}
	return AprovacoesResponse{
		Status:     string(summary.Status),
		Pendentes:  summary.Outstanding,
		Aprovacoes: items,
	}
}

// DecisionResponse reports the approval outcome after a decision.
type DecisionResponse struct {
	StatusAprovacao string `json:"statusAprovacao"`
}

// DeterminacaoResponse is the public view of a court determination.
type DeterminacaoResponse struct {
	ID               uuid.UUID `json:"id"`
	Tipo             string    `json:"tipo"`
	NumeroProcesso   string    `json:"numeroProcesso"`
	Orgao            string    `json:"orgao,omitempty"`
	Descricao        string    `json:"descricao,omitempty"`
	DataDeterminacao time.Time `json:"dataDeterminacao"`
	Ativa            bool      `json:"ativa"`
}

func ToDeterminacaoResponse(d domain.Determinacao) DeterminacaoResponse {
	return DeterminacaoResponse{
		ID:               d.ID,
		Tipo:             string(d.Tipo),
		NumeroProcesso:   d.NumeroProcesso,
		Orgao:            d.Orgao,
		Descricao:        d.Descricao,
		DataDeterminacao: d.DataDeterminacao,
		Ativa:            d.Ativa,
	}
}

// JudicialResultResponse reports the status reached after a determination.
type JudicialResultResponse struct {
	Status string `json:"status"`
}

// ParcelaResponse is one installment.
type ParcelaResponse struct {
	Numero         int        `json:"numero"`
	ValorCentavos  int64      `json:"valorCentavos"`
	DataVencimento time.Time  `json:"dataVencimento"`
	Status         string     `json:"status"`
	DataPagamento  *time.Time `json:"dataPagamento,omitempty"`
}

// PagamentoResponse is the payment plan of a released request.
type PagamentoResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Periodicidade      string            `json:"periodicidade"`
	ValorTotalCentavos int64             `json:"valorTotalCentavos"`
	QuantidadeParcelas int               `json:"quantidadeParcelas"`
	Parcelas           []ParcelaResponse `json:"parcelas"`
}

func ToPagamentoResponse(p domain.Pagamento) PagamentoResponse {
	parcelas := make([]ParcelaResponse, 0, len(p.Parcelas))
	for _, parcela := range p.Parcelas {
		parcelas = append(parcelas, ParcelaResponse{
			Numero:         parcela.Numero,
			ValorCentavos:  parcela.ValorCentavos,
			DataVencimento: parcela.DataVencimento,
			Status:         string(parcela.Status),
			DataPagamento:  parcela.DataPagamento,
		})
	}
	return PagamentoResponse{
		ID:                 p.ID,
		Periodicidade:      string(p.Periodicidade),
		ValorTotalCentavos: p.ValorTotalCentavos,
		QuantidadeParcelas: p.QuantidadeParcelas,
		Parcelas:           parcelas,
	}
}

// RenovacaoResponse reports the outcome of a renewal evaluation.
type RenovacaoResponse struct {
	Resultado          string               `json:"resultado"`
	Renovacao          *SolicitacaoResponse `json:"renovacao,omitempty"`
	ContadorRenovacoes int                  `json:"contadorRenovacoes,omitempty"`
	MaxRenovacoes      int                  `json:"maxRenovacoes,omitempty"`
}

func ToRenewalResponse(r service.RenewalResult) RenovacaoResponse {
	out := RenovacaoResponse{
		Resultado:          string(r.Outcome),
		ContadorRenovacoes: r.Renewals,
		MaxRenovacoes:      r.Limit,
	}
	if r.Child != nil {
		child := ToSolicitacaoResponse(*r.Child)
		out.Renovacao = &child
	}
	return out
}

// IDResponse carries the id of a created resource.
type IDResponse struct {
	ID uuid.UUID `json:"id"`
}
