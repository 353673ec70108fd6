package handler

import (
	"context"
	"net/http"

	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/judicial"
	"beneficios_backend/internal/solicitacao/service"
	"beneficios_backend/internal/solicitacao/transport"
	"beneficios_backend/platform/apperr"
	"beneficios_backend/platform/httpkit"
	"beneficios_backend/platform/sanitize"
	"beneficios_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for the request workflow
type Handler struct {
	svc *service.StateMachine
	val *validator.Validator
}

// New creates a new solicitacao handler
func New(svc *service.StateMachine, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the workflow routes on the protected group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sol := rg.Group("/solicitacoes")
	sol.POST("", h.Create)
	sol.GET("/:id", h.GetByID)
	sol.PATCH("/:id", h.UpdateDraft)
	sol.POST("/:id/submeter", h.Submit)
	sol.PATCH("/:id/status", h.Transition)
	sol.GET("/:id/historico", h.History)
	sol.GET("/:id/pendencias", h.ListPendencies)
	sol.POST("/:id/pendencias", h.OpenPendency)
	sol.GET("/:id/aprovacoes", h.ListApprovals)
	sol.POST("/:id/aprovacoes", h.OpenApproval)
	sol.GET("/:id/determinacao", h.ActiveDetermination)
	sol.POST("/:id/determinacoes", h.ApplyDetermination)
	sol.GET("/:id/pagamento", h.Payment)
	sol.POST("/:id/renovacao", h.Renew)

	pend := rg.Group("/pendencias")
	pend.POST("/:id/iniciar", h.StartPendencyResolution)
	pend.POST("/:id/resolver", h.ResolvePendency)
	pend.POST("/:id/cancelar", h.CancelPendency)

	apr := rg.Group("/aprovacoes")
	apr.GET("/:id", h.GetApproval)
	apr.POST("/:id/decisao", h.Decide)
}

// actorFrom builds the engine actor from the authenticated identity.
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return domain.Actor{}, false
	}
	role, err := domain.ResolveRole(identity.Roles())
	if err != nil {
		httpkit.Error(c, http.StatusForbidden, "Forbidden", nil)
		return domain.Actor{}, false
	}
	return domain.Actor{ID: identity.UserID(), Role: role, UnidadeID: identity.UnidadeID()}, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// bind decodes and validates a JSON body.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	violations, err := h.val.Violations(req)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	if len(violations) > 0 {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, violations)
		return false
	}
	return true
}

// Create handles POST /api/v1/solicitacoes
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateSolicitacaoRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var unidadeID uuid.UUID
	switch {
	case req.UnidadeID != nil:
		unidadeID = *req.UnidadeID
	case actor.UnidadeID != nil:
		unidadeID = *actor.UnidadeID
	default:
		httpkit.HandleError(c, apperr.BadRequest("unidadeId is required"))
		return
	}

	dados, err := domain.UnmarshalTypeSpecificData(req.TipoBeneficio, req.Dados)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "dados: "+err.Error())
		return
	}

	created, err := h.svc.CreateDraft(c.Request.Context(), service.CreateDraftInput{
		BeneficiarioID:      req.BeneficiarioID,
		SolicitanteID:       req.SolicitanteID,
		TipoBeneficio:       req.TipoBeneficio,
		UnidadeID:           unidadeID,
		TecnicoID:           req.TecnicoID,
		ValorCentavos:       req.ValorCentavos,
		RenovacaoAutomatica: req.RenovacaoAutomatica,
		Contato:             domain.Contato{Email: req.Contato.Email, Telefone: req.Contato.Telefone},
		Dados:               dados,
	}, actor)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToSolicitacaoResponse(created))
}

// GetByID handles GET /api/v1/solicitacoes/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	req, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSolicitacaoResponse(req))
}

// UpdateDraft handles PATCH /api/v1/solicitacoes/:id
func (h *Handler) UpdateDraft(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateSolicitacaoRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	in := service.EditDraftInput{
		ValorCentavos:       req.ValorCentavos,
		RenovacaoAutomatica: req.RenovacaoAutomatica,
	}
	if req.Contato != nil {
		in.Contato = &domain.Contato{Email: req.Contato.Email, Telefone: req.Contato.Telefone}
	}
	if len(req.Dados) > 0 {
		current, err := h.svc.Get(c.Request.Context(), id)
		if httpkit.HandleError(c, err) {
			return
		}
		dados, err := domain.UnmarshalTypeSpecificData(string(current.TipoBeneficio), req.Dados)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "dados: "+err.Error())
			return
		}
		in.Dados = &dados
	}

	updated, err := h.svc.EditDraft(c.Request.Context(), id, req.Version, in, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSolicitacaoResponse(updated))
}

// Submit handles POST /api/v1/solicitacoes/:id/submeter
func (h *Handler) Submit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.SubmitRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Submit(c.Request.Context(), id, actor, sanitize.Text(req.Observacao))) {
		return
	}
	h.respondWithRequest(c, id)
}

// Transition handles PATCH /api/v1/solicitacoes/:id/status
func (h *Handler) Transition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bind(c, &req) {
		return
	}
	target := domain.Status(req.Status)
	if !target.IsKnown() {
		httpkit.HandleError(c, apperr.BadRequest("unknown status").WithDetails(map[string]any{"status": req.Status}))
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	observacao := sanitize.Text(req.Observacao)
	var err error
	if req.Version > 0 {
		err = h.svc.TransitionVersion(ctx, id, req.Version, target, actor, observacao)
	} else {
		err = h.svc.TransitionWithRetry(ctx, id, target, actor, observacao)
	}
	if httpkit.HandleError(c, err) {
		return
	}
	h.respondWithRequest(c, id)
}

func (h *Handler) respondWithRequest(c *gin.Context, id uuid.UUID) {
	req, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSolicitacaoResponse(req))
}

// History handles GET /api/v1/solicitacoes/:id/historico
func (h *Handler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	entries, err := h.svc.History(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToHistoricoResponse(entries))
}

// ListPendencies handles GET /api/v1/solicitacoes/:id/pendencias
func (h *Handler) ListPendencies(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	items, err := h.svc.Pendencies().ListByRequest(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPendenciaResponses(items))
}

// OpenPendency handles POST /api/v1/solicitacoes/:id/pendencias
func (h *Handler) OpenPendency(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.CreatePendenciaRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	descricao := sanitize.Text(req.Descricao)
	if descricao == "" {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "descricao is empty")
		return
	}
	pendencyID, err := h.svc.Pendencies().Open(c.Request.Context(), id, descricao, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.IDResponse{ID: pendencyID})
}

// StartPendencyResolution handles POST /api/v1/pendencias/:id/iniciar
func (h *Handler) StartPendencyResolution(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Pendencies().StartResolution(c.Request.Context(), id, actor)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ResolvePendency handles POST /api/v1/pendencias/:id/resolver
func (h *Handler) ResolvePendency(c *gin.Context) {
	h.closePendency(c, h.svc.Pendencies().Resolve)
}

// CancelPendency handles POST /api/v1/pendencias/:id/cancelar
func (h *Handler) CancelPendency(c *gin.Context) {
	h.closePendency(c, h.svc.Pendencies().Cancel)
}

type closeFunc func(ctx context.Context, pendencyID uuid.UUID, actor domain.Actor, note string) error

func (h *Handler) closePendency(c *gin.Context, closeFn closeFunc) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ClosePendenciaRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, closeFn(c.Request.Context(), id, actor, sanitize.Text(req.Observacao))) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ListApprovals handles GET /api/v1/solicitacoes/:id/aprovacoes
func (h *Handler) ListApprovals(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	ctx := c.Request.Context()
	approvals, err := h.svc.Approvals().List(ctx, id)
	if httpkit.HandleError(c, err) {
		return
	}
	summary, err := h.svc.Approvals().Aggregate(ctx, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAprovacoesResponse(summary, approvals))
}

// OpenApproval handles POST /api/v1/solicitacoes/:id/aprovacoes
func (h *Handler) OpenApproval(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	approval, err := h.svc.RequestApprovalFor(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToAprovacaoResponse(approval))
}

// GetApproval handles GET /api/v1/aprovacoes/:id
func (h *Handler) GetApproval(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	approval, err := h.svc.Approvals().Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAprovacaoResponse(approval))
}

// Decide handles POST /api/v1/aprovacoes/:id/decisao
func (h *Handler) Decide(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.DecisionRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	status, err := h.svc.RecordDecision(c.Request.Context(), id, actor, domain.Decisao(req.Decisao), sanitize.Text(req.Justificativa), sanitize.Strings(req.Anexos)...)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.DecisionResponse{StatusAprovacao: string(status)})
}

// ActiveDetermination handles GET /api/v1/solicitacoes/:id/determinacao
func (h *Handler) ActiveDetermination(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	active, err := h.svc.Judicial().Active(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	if active == nil {
		httpkit.Error(c, http.StatusNotFound, "no active determination", nil)
		return
	}
	httpkit.OK(c, transport.ToDeterminacaoResponse(*active))
}

// ApplyDetermination handles POST /api/v1/solicitacoes/:id/determinacoes
func (h *Handler) ApplyDetermination(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.DeterminacaoRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	status, err := h.svc.Judicial().Apply(c.Request.Context(), id, judicial.Input{
		Tipo:             req.Tipo,
		NumeroProcesso:   sanitize.Text(req.NumeroProcesso),
		Orgao:            sanitize.Text(req.Orgao),
		Descricao:        sanitize.Text(req.Descricao),
		DataDeterminacao: req.DataDeterminacao,
	}, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.JudicialResultResponse{Status: string(status)})
}

// Payment handles GET /api/v1/solicitacoes/:id/pagamento
func (h *Handler) Payment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, ok := actorFrom(c); !ok {
		return
	}

	payment, err := h.svc.Payment(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	if payment == nil {
		httpkit.Error(c, http.StatusNotFound, "payment not found", nil)
		return
	}
	httpkit.OK(c, transport.ToPagamentoResponse(*payment))
}

// Renew handles POST /api/v1/solicitacoes/:id/renovacao
func (h *Handler) Renew(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if !actor.Role.CanMutateRequests() {
		httpkit.HandleError(c, domain.Unauthorized("role cannot trigger renewals"))
		return
	}

	result, err := h.svc.Renewals().Renew(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRenewalResponse(result))
}
