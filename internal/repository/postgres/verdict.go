package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jainn/internal/domain"
	"jainn/internal/domain/models/chat"
	"jainn/internal/domain/repositories"
)

// PostgresVerdictRepository implements the VerdictRepository interface
type PostgresVerdictRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewVerdictRepository creates a new PostgresVerdictRepository
func NewVerdictRepository(config *RepositoryConfig) repositories.VerdictRepository {
	return &PostgresVerdictRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// SaveVerdict records the arbiter's judgment for a turn. A verdict that
// races a duplicate evaluation keeps the first row.
func (r *PostgresVerdictRepository) SaveVerdict(ctx context.Context, v *chat.RefereeVerdict) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (turn_id, status, verdict, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (turn_id) DO NOTHING
	`, r.tables.Verdicts)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, v.TurnID, v.Status, v.Verdict, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("save verdict: %w", err)
	}

	return nil
}

// GetVerdict retrieves the verdict for a turn, if one arrived
func (r *PostgresVerdictRepository) GetVerdict(ctx context.Context, turnID string) (*chat.RefereeVerdict, error) {
	query := fmt.Sprintf(`
		SELECT turn_id, status, verdict, created_at
		FROM %s
		WHERE turn_id = $1
	`, r.tables.Verdicts)

	var v chat.RefereeVerdict
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, turnID).Scan(&v.TurnID, &v.Status, &v.Verdict, &v.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("verdict for turn %s: %w", turnID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get verdict: %w", err)
	}

	return &v, nil
}
