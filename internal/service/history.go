package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"jainn/internal/config"
	"jainn/internal/domain"
	"jainn/internal/domain/models/chat"
	"jainn/internal/domain/repositories"
)

// HistoryService exposes conversation history operations to the
// delivery layer. It routes every call through the resolver, so guests
// and authenticated users transparently hit different stores.
type HistoryService struct {
	histories repositories.HistoryResolver
	verdicts  repositories.VerdictRepository
	logger    *slog.Logger
}

// NewHistoryService creates a history service.
func NewHistoryService(histories repositories.HistoryResolver, verdicts repositories.VerdictRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{histories: histories, verdicts: verdicts, logger: logger}
}

// ListChats returns the user's sessions, most recently updated first.
func (s *HistoryService) ListChats(ctx context.Context, userID string) ([]chat.Chat, error) {
	return s.histories.HistoryFor(userID).ListChats(ctx, userID)
}

// GetChat returns one session with its full turn history.
func (s *HistoryService) GetChat(ctx context.Context, chatID, userID string) (*chat.Chat, error) {
	return s.histories.HistoryFor(userID).GetChat(ctx, chatID, userID)
}

// RenameChat updates a session title.
func (s *HistoryService) RenameChat(ctx context.Context, chatID, userID, title string) error {
	if err := validation.Validate(title,
		validation.Required,
		validation.Length(1, config.MaxChatTitleLength),
	); err != nil {
		return fmt.Errorf("%w: title %v", domain.ErrValidation, err)
	}

	return s.histories.HistoryFor(userID).RenameChat(ctx, chatID, userID, title)
}

// DeleteChat removes a session and its turns.
func (s *HistoryService) DeleteChat(ctx context.Context, chatID, userID string) error {
	err := s.histories.HistoryFor(userID).DeleteChat(ctx, chatID, userID)
	if err != nil {
		return err
	}

	s.logger.Info("chat deleted", "chat_id", chatID, "user_id", userID)
	return nil
}

// GetVerdict returns the referee's judgment for a turn, if it arrived.
func (s *HistoryService) GetVerdict(ctx context.Context, turnID string) (*chat.RefereeVerdict, error) {
	return s.verdicts.GetVerdict(ctx, turnID)
}
