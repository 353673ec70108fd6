package repository

import (
	"context"
	"errors"
	"fmt"

	"beneficios_backend/internal/solicitacao/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const pendencyColumns = `id, solicitacao_id, descricao, status, registrado_por, resolvido_por,
	data_resolucao, observacao_resolucao, version, created_at, updated_at`

func scanPendency(row pgx.Row) (domain.Pendency, error) {
	var (
		p          domain.Pendency
		status     string
		observacao *string
	)
	err := row.Scan(&p.ID, &p.SolicitacaoID, &p.Descricao, &status, &p.RegistradoPor, &p.ResolvidoPor,
		&p.DataResolucao, &observacao, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Pendency{}, err
	}
	if p.Status, err = domain.ParsePendencyStatus(status); err != nil {
		return domain.Pendency{}, err
	}
	p.ObservacaoResolucao = derefString(observacao)
	return p, nil
}

func (r *Repository) CreatePendency(ctx context.Context, p domain.Pendency) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO pendencia (`+pendencyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.SolicitacaoID, p.Descricao, string(p.Status), p.RegistradoPor, p.ResolvidoPor,
		p.DataResolucao, nullableString(p.ObservacaoResolucao), p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pendencia: %w", err)
	}
	return nil
}

func (r *Repository) LoadPendency(ctx context.Context, id uuid.UUID) (domain.Pendency, error) {
	p, err := scanPendency(r.q(ctx).QueryRow(ctx, `SELECT `+pendencyColumns+` FROM pendencia WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Pendency{}, domain.NotFound("pendencia", id)
	}
	if err != nil {
		return domain.Pendency{}, fmt.Errorf("load pendencia: %w", err)
	}
	return p, nil
}

func (r *Repository) SavePendency(ctx context.Context, p domain.Pendency, expectedVersion int) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE pendencia SET
			status = $3, resolvido_por = $4, data_resolucao = $5, observacao_resolucao = $6,
			version = version + 1, updated_at = $7
		WHERE id = $1 AND version = $2`,
		p.ID, expectedVersion, string(p.Status), p.ResolvidoPor, p.DataResolucao,
		nullableString(p.ObservacaoResolucao), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update pendencia: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "pendencia", p.ID, expectedVersion)
	}
	return nil
}

func (r *Repository) ListPendenciesByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Pendency, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT `+pendencyColumns+` FROM pendencia WHERE solicitacao_id = $1 ORDER BY created_at, id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list pendencias: %w", err)
	}
	defer rows.Close()

	var out []domain.Pendency
	for rows.Next() {
		p, err := scanPendency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pendencia: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
