package repository

import (
	"context"
	"errors"
	"fmt"

	"beneficios_backend/internal/solicitacao/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) LoadApprovalAction(ctx context.Context, code string) (domain.ApprovalAction, error) {
	var (
		a          domain.ApprovalAction
		estrategia string
		perfis     []string
	)
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, codigo, nome, estrategia, min_aprovadores, limite_rejeicoes, perfis_elegiveis,
			mesma_unidade, valor_minimo_centavos
		FROM acao_aprovacao WHERE codigo = $1`, code,
	).Scan(&a.ID, &a.Codigo, &a.Nome, &estrategia, &a.MinAprovadores, &a.LimiteRejeicoes, &perfis,
		&a.MesmaUnidade, &a.ValorMinimoCentavos)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ApprovalAction{}, domain.NotFoundByKey("acao_aprovacao", code)
	}
	if err != nil {
		return domain.ApprovalAction{}, fmt.Errorf("load acao_aprovacao: %w", err)
	}

	if a.Estrategia, err = domain.ParseEstrategia(estrategia); err != nil {
		return domain.ApprovalAction{}, err
	}
	for _, p := range perfis {
		kind, err := parseRoleKind("acao_aprovacao", p)
		if err != nil {
			return domain.ApprovalAction{}, err
		}
		a.PerfisElegiveis = append(a.PerfisElegiveis, kind)
	}
	return a, nil
}

func parseRoleKind(entity, value string) (domain.RoleKind, error) {
	role, err := domain.ParseRole(value)
	if err != nil {
		return "", domain.SchemaViolation(entity, "perfil", value)
	}
	return role.Kind(), nil
}

func (r *Repository) ListConfigApprovers(ctx context.Context, actionID uuid.UUID) ([]domain.ConfigApprover, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, acao_id, usuario_id, perfil, unidade_id, ordem, obrigatorio
		FROM configuracao_aprovador WHERE acao_id = $1 ORDER BY ordem, id`, actionID)
	if err != nil {
		return nil, fmt.Errorf("list configuracao_aprovador: %w", err)
	}
	defer rows.Close()

	var out []domain.ConfigApprover
	for rows.Next() {
		var (
			c      domain.ConfigApprover
			perfil string
		)
		if err := rows.Scan(&c.ID, &c.AcaoID, &c.UsuarioID, &perfil, &c.UnidadeID, &c.Ordem, &c.Obrigatorio); err != nil {
			return nil, fmt.Errorf("scan configuracao_aprovador: %w", err)
		}
		if c.Perfil, err = parseRoleKind("configuracao_aprovador", perfil); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CreateApproval(ctx context.Context, a domain.RequestApproval) error {
	return r.RunInTx(ctx, func(ctx context.Context) error {
		_, err := r.q(ctx).Exec(ctx, `
			INSERT INTO solicitacao_aprovacao
				(id, solicitacao_id, acao_id, estrategia, min_aprovadores, limite_rejeicoes, status,
				 dispensada, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			a.ID, a.SolicitacaoID, a.AcaoID, string(a.Estrategia), a.MinAprovadores, a.LimiteRejeicoes,
			string(a.Status), a.Dispensada, a.Version, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert solicitacao_aprovacao: %w", err)
		}

		batch := &pgx.Batch{}
		for _, ap := range a.Aprovadores {
			batch.Queue(`
				INSERT INTO solicitacao_aprovador
					(aprovacao_id, usuario_id, ordem, obrigatorio, decisao, justificativa, anexos, data_decisao)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				a.ID, ap.UsuarioID, ap.Ordem, ap.Obrigatorio, string(ap.Decisao), ap.Justificativa,
				nonNilStrings(ap.Anexos), ap.DataDecisao,
			)
		}
		return r.sendBatch(ctx, batch, "insert solicitacao_aprovador")
	})
}

func (r *Repository) LoadApproval(ctx context.Context, id uuid.UUID) (domain.RequestApproval, error) {
	approvals, err := r.queryApprovals(ctx, `WHERE id = $1`, id)
	if err != nil {
		return domain.RequestApproval{}, err
	}
	if len(approvals) == 0 {
		return domain.RequestApproval{}, domain.NotFound("solicitacao_aprovacao", id)
	}
	return approvals[0], nil
}

func (r *Repository) ListApprovalsByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.RequestApproval, error) {
	return r.queryApprovals(ctx, `WHERE solicitacao_id = $1`, requestID)
}

func (r *Repository) SaveApproval(ctx context.Context, a domain.RequestApproval, expectedVersion int) error {
	return r.RunInTx(ctx, func(ctx context.Context) error {
		tag, err := r.q(ctx).Exec(ctx, `
			UPDATE solicitacao_aprovacao SET
				status = $3, dispensada = $4, version = version + 1, updated_at = $5
			WHERE id = $1 AND version = $2`,
			a.ID, expectedVersion, string(a.Status), a.Dispensada, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update solicitacao_aprovacao: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrStale(ctx, "solicitacao_aprovacao", a.ID, expectedVersion)
		}

		batch := &pgx.Batch{}
		for _, ap := range a.Aprovadores {
			batch.Queue(`
				UPDATE solicitacao_aprovador SET
					decisao = $3, justificativa = $4, anexos = $5, data_decisao = $6
				WHERE aprovacao_id = $1 AND usuario_id = $2`,
				a.ID, ap.UsuarioID, string(ap.Decisao), ap.Justificativa, nonNilStrings(ap.Anexos), ap.DataDecisao,
			)
		}
		return r.sendBatch(ctx, batch, "update solicitacao_aprovador")
	})
}

func (r *Repository) queryApprovals(ctx context.Context, where string, args ...any) ([]domain.RequestApproval, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, solicitacao_id, acao_id, estrategia, min_aprovadores, limite_rejeicoes, status,
			dispensada, version, created_at, updated_at
		FROM solicitacao_aprovacao `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query solicitacao_aprovacao: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.RequestApproval
		index = make(map[uuid.UUID]int)
		ids   []uuid.UUID
	)
	for rows.Next() {
		var (
			a                  domain.RequestApproval
			estrategia, status string
		)
		if err := rows.Scan(&a.ID, &a.SolicitacaoID, &a.AcaoID, &estrategia, &a.MinAprovadores, &a.LimiteRejeicoes,
			&status, &a.Dispensada, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan solicitacao_aprovacao: %w", err)
		}
		if a.Estrategia, err = domain.ParseEstrategia(estrategia); err != nil {
			return nil, err
		}
		if a.Status, err = domain.ParseAggregateStatus(status); err != nil {
			return nil, err
		}
		index[a.ID] = len(out)
		ids = append(ids, a.ID)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := r.attachApprovers(ctx, ids, func(approvalID uuid.UUID, ap domain.AssignedApprover) {
		i := index[approvalID]
		out[i].Aprovadores = append(out[i].Aprovadores, ap)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) attachApprovers(ctx context.Context, approvalIDs []uuid.UUID, attach func(uuid.UUID, domain.AssignedApprover)) error {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT aprovacao_id, usuario_id, ordem, obrigatorio, decisao, justificativa, anexos, data_decisao
		FROM solicitacao_aprovador
		WHERE aprovacao_id = ANY($1)
		ORDER BY ordem, id`, approvalIDs)
	if err != nil {
		return fmt.Errorf("query solicitacao_aprovador: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			approvalID uuid.UUID
			ap         domain.AssignedApprover
			decisao    string
		)
		if err := rows.Scan(&approvalID, &ap.UsuarioID, &ap.Ordem, &ap.Obrigatorio, &decisao, &ap.Justificativa,
			&ap.Anexos, &ap.DataDecisao); err != nil {
			return fmt.Errorf("scan solicitacao_aprovador: %w", err)
		}
		if ap.Decisao, err = domain.ParseDecisao(decisao); err != nil {
			return err
		}
		attach(approvalID, ap)
	}
	return rows.Err()
}

func (r *Repository) sendBatch(ctx context.Context, batch *pgx.Batch, op string) error {
	if batch.Len() == 0 {
		return nil
	}
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return fmt.Errorf("%s: batch outside transaction", op)
	}
	results := tx.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return results.Close()
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
