package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jainn/internal/domain"
	"jainn/internal/domain/models"
	"jainn/internal/domain/repositories"
)

// PostgresProfileRepository implements the ProfileRepository interface
type PostgresProfileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewProfileRepository creates a new PostgresProfileRepository
func NewProfileRepository(config *RepositoryConfig) repositories.ProfileRepository {
	return &PostgresProfileRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// GetProfile retrieves a user's profile row
func (r *PostgresProfileRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := fmt.Sprintf(`
		SELECT id, email, tier, tokens_used, images_generated, theme_color, display_name, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Profiles)

	var p models.Profile
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.Email, &p.Tier, &p.TokensUsed, &p.ImagesGenerated,
		&p.ThemeColor, &p.DisplayName, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("profile %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &p, nil
}

// UpsertProfile creates or updates a profile row
func (r *PostgresProfileRepository) UpsertProfile(ctx context.Context, p *models.Profile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, tier, tokens_used, images_generated, theme_color, display_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			tier = EXCLUDED.tier,
			tokens_used = EXCLUDED.tokens_used,
			images_generated = EXCLUDED.images_generated,
			theme_color = EXCLUDED.theme_color,
			display_name = EXCLUDED.display_name,
			updated_at = NOW()
		RETURNING updated_at
	`, r.tables.Profiles)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		p.ID, p.Email, p.Tier, p.TokensUsed, p.ImagesGenerated, p.ThemeColor, p.DisplayName,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}
