package domain

import (
	"time"

	"github.com/google/uuid"
)

type PendencyStatus string

const (
	PendenciaAberta      PendencyStatus = "aberta"
	PendenciaEmResolucao PendencyStatus = "em_resolucao"
	PendenciaResolvida   PendencyStatus = "resolvida"
	PendenciaCancelada   PendencyStatus = "cancelada"
)

func ParsePendencyStatus(value string) (PendencyStatus, error) {
	switch PendencyStatus(value) {
	case PendenciaAberta, PendenciaEmResolucao, PendenciaResolvida, PendenciaCancelada:
		return PendencyStatus(value), nil
	default:
		return "", SchemaViolation("pendencia", "status", value)
	}
}

// Pendency is a blocking issue raised against one Request.
type Pendency struct {
	ID                  uuid.UUID
	SolicitacaoID       uuid.UUID
	Descricao           string
	Status              PendencyStatus
	RegistradoPor       uuid.UUID
	ResolvidoPor        *uuid.UUID
	DataResolucao       *time.Time
	ObservacaoResolucao string
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsBlocking reports whether p still holds its request back.
func (p Pendency) IsBlocking() bool {
	return p.Status == PendenciaAberta || p.Status == PendenciaEmResolucao
}

// BlockingIDs returns the IDs of the blocking pendencies in ps.
func BlockingIDs(ps []Pendency) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range ps {
		if p.IsBlocking() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
