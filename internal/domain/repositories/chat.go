package repositories

import (
	"context"

	"jainn/internal/domain/models/chat"
)

// ChatHistoryRepository persists conversation sessions and their turns.
// Two implementations exist: a Postgres-backed store for authenticated
// users and a file-backed local store for guests. The services above are
// indifferent to which one they receive.
type ChatHistoryRepository interface {
	// CreateChat creates a new session.
	CreateChat(ctx context.Context, c *chat.Chat) error

	// GetChat retrieves one session with its turns, newest last.
	GetChat(ctx context.Context, chatID, userID string) (*chat.Chat, error)

	// ListChats retrieves all of a user's sessions, most recently
	// updated first, without turns.
	ListChats(ctx context.Context, userID string) ([]chat.Chat, error)

	// SaveTurn appends a turn to a session and bumps its updated time.
	SaveTurn(ctx context.Context, userID string, turn *chat.Turn) error

	// SelectWinner records the winning model for a multi turn. The
	// first selection wins: if a winner is already recorded the call is
	// a no-op and returns the turn unchanged.
	SelectWinner(ctx context.Context, userID, turnID string, model chat.ModelIdentity) (*chat.Turn, error)

	// RenameChat updates a session title.
	RenameChat(ctx context.Context, chatID, userID, title string) error

	// DeleteChat removes a session and its turns.
	DeleteChat(ctx context.Context, chatID, userID string) error
}

// VerdictRepository stores referee verdicts keyed by turn.
type VerdictRepository interface {
	// SaveVerdict records the arbiter's judgment for a turn.
	SaveVerdict(ctx context.Context, v *chat.RefereeVerdict) error

	// GetVerdict retrieves the verdict for a turn, if one arrived.
	GetVerdict(ctx context.Context, turnID string) (*chat.RefereeVerdict, error)
}
