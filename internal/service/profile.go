package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"jainn/internal/domain"
	"jainn/internal/domain/models"
	"jainn/internal/domain/repositories"
)

// ProfileService manages user profile rows. Guests have no profile and
// every read for one answers with a synthetic guest-tier value.
type ProfileService struct {
	profiles repositories.ProfileRepository
	logger   *slog.Logger
}

// NewProfileService creates a profile service.
func NewProfileService(profiles repositories.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: logger}
}

// GetProfile returns the user's profile. Users without a row yet get a
// default free-tier profile rather than a not-found error.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if models.IsGuestID(userID) {
		return &models.Profile{ID: userID, Tier: models.TierGuest}, nil
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &models.Profile{ID: userID, Tier: models.TierFree}, nil
		}
		return nil, err
	}

	return profile, nil
}

// UpdateProfileRequest carries the fields a user may change themselves.
// Tier is deliberately absent: tier changes come from billing, not from
// this endpoint.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	ThemeColor  *string `json:"theme_color,omitempty"`
}

// UpdateProfile applies the user-editable fields and persists the row.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.Profile, error) {
	if models.IsGuestID(userID) {
		return nil, &domain.ForbiddenError{Message: "guest sessions have no stored profile"}
	}

	if err := validation.ValidateStruct(req,
		validation.Field(&req.DisplayName, validation.Length(0, 100)),
		validation.Field(&req.ThemeColor, validation.Length(0, 32)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		profile.DisplayName = req.DisplayName
	}
	if req.ThemeColor != nil {
		profile.ThemeColor = *req.ThemeColor
	}

	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", userID)
	return profile, nil
}
