package repository

import (
	"context"
	"errors"
	"fmt"

	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) CreatePayment(ctx context.Context, p domain.Pagamento) error {
	return r.RunInTx(ctx, func(ctx context.Context) error {
		_, err := r.q(ctx).Exec(ctx, `
			INSERT INTO pagamento (id, solicitacao_id, periodicidade, valor_total_centavos, quantidade_parcelas, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.SolicitacaoID, string(p.Periodicidade), p.ValorTotalCentavos, p.QuantidadeParcelas, p.CreatedAt,
		)
		if isUniqueViolation(err, "") {
			return ports.ErrPaymentExists
		}
		if err != nil {
			return fmt.Errorf("insert pagamento: %w", err)
		}

		rows := make([][]any, 0, len(p.Parcelas))
		for _, parcela := range p.Parcelas {
			rows = append(rows, []any{
				parcela.ID, p.ID, parcela.Numero, parcela.ValorCentavos, parcela.DataVencimento,
				string(parcela.Status), parcela.DataPagamento,
			})
		}
		tx := ctx.Value(txKey{}).(pgx.Tx)
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"parcela_pagamento"},
			[]string{"id", "pagamento_id", "numero", "valor_centavos", "data_vencimento", "status", "data_pagamento"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("insert parcela_pagamento: %w", err)
		}
		return nil
	})
}

func (r *Repository) PaymentByRequest(ctx context.Context, requestID uuid.UUID) (*domain.Pagamento, error) {
	var (
		p             domain.Pagamento
		periodicidade string
	)
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, solicitacao_id, periodicidade, valor_total_centavos, quantidade_parcelas, created_at
		FROM pagamento WHERE solicitacao_id = $1`, requestID,
	).Scan(&p.ID, &p.SolicitacaoID, &periodicidade, &p.ValorTotalCentavos, &p.QuantidadeParcelas, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pagamento: %w", err)
	}
	if p.Periodicidade, err = domain.ParsePeriodicidade(periodicidade); err != nil {
		return nil, err
	}

	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, pagamento_id, numero, valor_centavos, data_vencimento, status, data_pagamento
		FROM parcela_pagamento WHERE pagamento_id = $1 ORDER BY numero`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list parcela_pagamento: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			parcela domain.Parcela
			status  string
		)
		if err := rows.Scan(&parcela.ID, &parcela.PagamentoID, &parcela.Numero, &parcela.ValorCentavos,
			&parcela.DataVencimento, &status, &parcela.DataPagamento); err != nil {
			return nil, fmt.Errorf("scan parcela_pagamento: %w", err)
		}
		if parcela.Status, err = domain.ParseParcelaStatus(status); err != nil {
			return nil, err
		}
		p.Parcelas = append(p.Parcelas, parcela)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}
