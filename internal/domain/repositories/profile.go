package repositories

import (
	"context"

	"jainn/internal/domain/models"
)

// ProfileRepository is the account/tier store. The orchestration core
// only reads Tier from it; counter increments are owned upstream.
type ProfileRepository interface {
	// GetProfile retrieves a profile by user ID. Returns
	// domain.ErrNotFound if no row exists.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)

	// UpsertProfile inserts or updates a profile, refreshing its
	// UpdatedAt in place.
	UpsertProfile(ctx context.Context, p *models.Profile) error
}
