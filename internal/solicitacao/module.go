// Package solicitacao provides the benefit request workflow module.
package solicitacao

import (
	apphttp "beneficios_backend/internal/http"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/handler"
	"beneficios_backend/internal/solicitacao/ports"
	"beneficios_backend/internal/solicitacao/service"
	"beneficios_backend/platform/validator"
)

// Module represents the solicitacao domain module
type Module struct {
	handler *handler.Handler
	Service *service.StateMachine
}

// NewModule creates a new solicitacao module with all dependencies wired
func NewModule(store ports.Store, catalog *domain.Catalog, val *validator.Validator, cfg service.Config) *Module {
	svc := service.New(store, catalog, cfg)
	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "solicitacao"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
