package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, protocolo, beneficiario_id, solicitante_id, tipo_beneficio, unidade_id, tecnico_id,
	status, aprovador_id, data_aprovacao, liberador_id, data_liberacao, data_conclusao,
	determinacao_judicial, determinacao_judicial_id, renovacao_automatica, contador_renovacoes,
	data_proxima_renovacao, solicitacao_original_id, valor_centavos, contato_email, contato_telefone,
	dados_tipo, dados, version, created_at, updated_at`

func scanRequest(row pgx.Row) (domain.Request, error) {
	var (
		req                     domain.Request
		tipo, status, dadosTipo string
		email, telefone         *string
		dados                   []byte
	)
	err := row.Scan(
		&req.ID, &req.Protocolo, &req.BeneficiarioID, &req.SolicitanteID, &tipo, &req.UnidadeID, &req.TecnicoID,
		&status, &req.AprovadorID, &req.DataAprovacao, &req.LiberadorID, &req.DataLiberacao, &req.DataConclusao,
		&req.DeterminacaoJudicial, &req.DeterminacaoJudicialID, &req.RenovacaoAutomatica, &req.ContadorRenovacoes,
		&req.DataProximaRenovacao, &req.SolicitacaoOriginalID, &req.ValorCentavos, &email, &telefone,
		&dadosTipo, &dados, &req.Version, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return domain.Request{}, err
	}

	if req.TipoBeneficio, err = domain.ParseTipoBeneficio(tipo); err != nil {
		return domain.Request{}, err
	}
	if req.Status, err = domain.ParseStatus(status); err != nil {
		return domain.Request{}, err
	}
	if req.Dados, err = domain.UnmarshalTypeSpecificData(dadosTipo, dados); err != nil {
		return domain.Request{}, err
	}
	req.Contato = domain.Contato{Email: derefString(email), Telefone: derefString(telefone)}
	return req, nil
}

func (r *Repository) CreateRequest(ctx context.Context, req domain.Request) error {
	dados, err := req.Dados.MarshalVariant()
	if err != nil {
		return fmt.Errorf("encode dados: %w", err)
	}

	_, err = r.q(ctx).Exec(ctx, `
		INSERT INTO solicitacao (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27)`,
		req.ID, req.Protocolo, req.BeneficiarioID, req.SolicitanteID, string(req.TipoBeneficio), req.UnidadeID, req.TecnicoID,
		string(req.Status), req.AprovadorID, req.DataAprovacao, req.LiberadorID, req.DataLiberacao, req.DataConclusao,
		req.DeterminacaoJudicial, req.DeterminacaoJudicialID, req.RenovacaoAutomatica, req.ContadorRenovacoes,
		req.DataProximaRenovacao, req.SolicitacaoOriginalID, req.ValorCentavos,
		nullableString(req.Contato.Email), nullableString(req.Contato.Telefone),
		string(req.TipoBeneficio), dados, req.Version, req.CreatedAt, req.UpdatedAt,
	)
	if isUniqueViolation(err, "solicitacao_original_unique") {
		return ports.ErrRenewalExists
	}
	if err != nil {
		return fmt.Errorf("insert solicitacao: %w", err)
	}
	return nil
}

func (r *Repository) LoadRequest(ctx context.Context, id uuid.UUID) (domain.Request, error) {
	req, err := scanRequest(r.q(ctx).QueryRow(ctx, `SELECT `+requestColumns+` FROM solicitacao WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Request{}, domain.NotFound("solicitacao", id)
	}
	if err != nil {
		return domain.Request{}, fmt.Errorf("load solicitacao: %w", err)
	}
	return req, nil
}

func (r *Repository) SaveRequest(ctx context.Context, req domain.Request, expectedVersion int) error {
	dados, err := req.Dados.MarshalVariant()
	if err != nil {
		return fmt.Errorf("encode dados: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE solicitacao SET
			status = $3, aprovador_id = $4, data_aprovacao = $5, liberador_id = $6, data_liberacao = $7,
			data_conclusao = $8, determinacao_judicial = $9, determinacao_judicial_id = $10,
			renovacao_automatica = $11, contador_renovacoes = $12, data_proxima_renovacao = $13,
			valor_centavos = $14, contato_email = $15, contato_telefone = $16, dados = $17,
			version = version + 1, updated_at = $18
		WHERE id = $1 AND version = $2`,
		req.ID, expectedVersion,
		string(req.Status), req.AprovadorID, req.DataAprovacao, req.LiberadorID, req.DataLiberacao,
		req.DataConclusao, req.DeterminacaoJudicial, req.DeterminacaoJudicialID,
		req.RenovacaoAutomatica, req.ContadorRenovacoes, req.DataProximaRenovacao,
		req.ValorCentavos, nullableString(req.Contato.Email), nullableString(req.Contato.Telefone), dados,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update solicitacao: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "solicitacao", req.ID, expectedVersion)
	}
	return nil
}

// missingOrStale tells a vanished row apart from a lost version race.
func (r *Repository) missingOrStale(ctx context.Context, table string, id uuid.UUID, expectedVersion int) error {
	var exists bool
	if err := r.q(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	if !exists {
		return domain.NotFound(table, id)
	}
	return domain.ConcurrentModification(table, id, expectedVersion)
}

// NextProtocol draws the next number of the year's protocol sequence.
func (r *Repository) NextProtocol(ctx context.Context, at time.Time) (string, error) {
	var seq int64
	if err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO solicitacao_protocolo_contador (ano, seq) VALUES ($1, 1)
		ON CONFLICT (ano) DO UPDATE SET seq = solicitacao_protocolo_contador.seq + 1
		RETURNING seq`, at.UTC().Year()).Scan(&seq); err != nil {
		return "", fmt.Errorf("next protocol: %w", err)
	}
	return formatProtocol(at, seq), nil
}

func (r *Repository) FindRenewalOf(ctx context.Context, parentID uuid.UUID) (*domain.Request, error) {
	req, err := scanRequest(r.q(ctx).QueryRow(ctx,
		`SELECT `+requestColumns+` FROM solicitacao WHERE solicitacao_original_id = $1`, parentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find renewal: %w", err)
	}
	return &req, nil
}

func (r *Repository) ListRenewalCandidates(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT s.id FROM solicitacao s
		WHERE s.status = 'concluida' AND s.renovacao_automatica
			AND NOT EXISTS (SELECT 1 FROM solicitacao c WHERE c.solicitacao_original_id = s.id)
			AND NOT EXISTS (
				SELECT 1 FROM historico_status_solicitacao h
				WHERE h.solicitacao_id = s.id AND h.motivo = $1
			)
		ORDER BY COALESCE(s.data_liberacao, s.data_conclusao, s.updated_at)
		LIMIT NULLIF($2::int, 0)`,
		string(domain.MotivoRenovacaoEncerrada), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list renewal candidates: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan renewal candidates: %w", err)
	}
	return ids, nil
}

func (r *Repository) AppendHistory(ctx context.Context, entry domain.StatusHistory) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO historico_status_solicitacao
			(id, solicitacao_id, status_anterior, status_novo, usuario_id, motivo, observacao, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.SolicitacaoID, string(entry.StatusAnterior), string(entry.StatusNovo),
		entry.UsuarioID, string(entry.Motivo), entry.Observacao, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *Repository) ListHistory(ctx context.Context, requestID uuid.UUID) ([]domain.StatusHistory, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, solicitacao_id, status_anterior, status_novo, usuario_id, motivo, observacao, created_at
		FROM historico_status_solicitacao
		WHERE solicitacao_id = $1
		ORDER BY seq`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusHistory
	for rows.Next() {
		var (
			h                domain.StatusHistory
			from, to, motivo string
		)
		if err := rows.Scan(&h.ID, &h.SolicitacaoID, &from, &to, &h.UsuarioID, &motivo, &h.Observacao, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if h.StatusAnterior, err = domain.ParseStatus(from); err != nil {
			return nil, err
		}
		if h.StatusNovo, err = domain.ParseStatus(to); err != nil {
			return nil, err
		}
		if h.Motivo, err = domain.ParseHistoryReason(motivo); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
