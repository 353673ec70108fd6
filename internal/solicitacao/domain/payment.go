package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ParcelaStatus string

const (
	ParcelaPendente  ParcelaStatus = "pendente"
	ParcelaPaga      ParcelaStatus = "paga"
	ParcelaCancelada ParcelaStatus = "cancelada"
)

func ParseParcelaStatus(value string) (ParcelaStatus, error) {
	switch ParcelaStatus(value) {
	case ParcelaPendente, ParcelaPaga, ParcelaCancelada:
		return ParcelaStatus(value), nil
	default:
		return "", SchemaViolation("parcela_pagamento", "status", value)
	}
}

// Pagamento is the payment plan of a released Request.
type Pagamento struct {
	ID                 uuid.UUID
	SolicitacaoID      uuid.UUID
	Periodicidade      Periodicidade
	ValorTotalCentavos int64
	QuantidadeParcelas int
	Parcelas           []Parcela
	CreatedAt          time.Time
}

// Parcela is one installment. Installments evolve independently once created.
type Parcela struct {
	ID             uuid.UUID
	PagamentoID    uuid.UUID
	Numero         int
	ValorCentavos  int64
	DataVencimento time.Time
	Status         ParcelaStatus
	DataPagamento  *time.Time
}

// PlanPayment builds the installments for req according to bt's periodicity.
// unico yields one installment of the request value; mensal yields N monthly
// installments of the request value, N being the rent period when informed.
func PlanPayment(req Request, bt BenefitType, releasedAt time.Time) (Pagamento, error) {
	valor := req.ValorCentavos
	if valor <= 0 {
		valor = bt.ValorPadraoCentavos
	}
	if valor <= 0 {
		return Pagamento{}, fmt.Errorf("solicitacao %s has no payable value", req.ID)
	}

	count := 1
	if bt.Periodicidade == PeriodicidadeMensal {
		count = bt.QuantidadeParcelas
		if req.Dados.AluguelSocial != nil && req.Dados.AluguelSocial.PeriodoMeses > 0 {
			count = req.Dados.AluguelSocial.PeriodoMeses
		}
	}

	firstDue := time.Date(releasedAt.Year(), releasedAt.Month(), releasedAt.Day(), 0, 0, 0, 0, time.UTC)
	p := Pagamento{
		ID:                 uuid.New(),
		SolicitacaoID:      req.ID,
		Periodicidade:      bt.Periodicidade,
		ValorTotalCentavos: valor * int64(count),
		QuantidadeParcelas: count,
		CreatedAt:          releasedAt,
	}
	p.Parcelas = make([]Parcela, count)
	for i := range count {
		p.Parcelas[i] = Parcela{
			ID:             uuid.New(),
			PagamentoID:    p.ID,
			Numero:         i + 1,
			ValorCentavos:  valor,
			DataVencimento: firstDue.AddDate(0, i, 0),
			Status:         ParcelaPendente,
		}
	}
	return p, nil
}
