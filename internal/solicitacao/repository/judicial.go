package repository

import (
	"context"
	"errors"
	"fmt"

	"beneficios_backend/internal/solicitacao/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) SaveDeterminacao(ctx context.Context, d domain.Determinacao) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO determinacao_judicial
			(id, solicitacao_id, tipo, numero_processo, orgao, descricao, data_determinacao, ativa, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			numero_processo = EXCLUDED.numero_processo,
			orgao = EXCLUDED.orgao,
			descricao = EXCLUDED.descricao,
			ativa = EXCLUDED.ativa`,
		d.ID, d.SolicitacaoID, string(d.Tipo), d.NumeroProcesso, d.Orgao, d.Descricao,
		d.DataDeterminacao, d.Ativa, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert determinacao_judicial: %w", err)
	}
	return nil
}

func (r *Repository) ActiveDeterminacao(ctx context.Context, requestID uuid.UUID) (*domain.Determinacao, error) {
	var (
		d    domain.Determinacao
		tipo string
	)
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, solicitacao_id, tipo, numero_processo, orgao, descricao, data_determinacao, ativa, created_at
		FROM determinacao_judicial
		WHERE solicitacao_id = $1 AND ativa
		ORDER BY data_determinacao DESC, created_at DESC
		LIMIT 1`, requestID,
	).Scan(&d.ID, &d.SolicitacaoID, &tipo, &d.NumeroProcesso, &d.Orgao, &d.Descricao, &d.DataDeterminacao, &d.Ativa, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load determinacao_judicial: %w", err)
	}
	if d.Tipo, err = domain.ParseTipoDeterminacao(tipo); err != nil {
		return nil, err
	}
	return &d, nil
}
