package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jainn/internal/domain"
	"jainn/internal/domain/models/chat"
	"jainn/internal/domain/repositories"
)

// PostgresChatHistoryRepository implements the ChatHistoryRepository
// interface for authenticated users.
type PostgresChatHistoryRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	tm     repositories.TransactionManager
	logger *slog.Logger
}

// NewChatHistoryRepository creates a new PostgresChatHistoryRepository
func NewChatHistoryRepository(config *RepositoryConfig, tm repositories.TransactionManager) repositories.ChatHistoryRepository {
	return &PostgresChatHistoryRepository{
		pool:   config.Pool,
		tables: config.Tables,
		tm:     tm,
		logger: config.Logger,
	}
}

// CreateChat creates a new session row
func (r *PostgresChatHistoryRepository) CreateChat(ctx context.Context, c *chat.Chat) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, title, mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.Chats)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, c.ID, c.UserID, c.Title, c.Mode, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("chat %s: %w", c.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create chat: %w", err)
	}

	return nil
}

// GetChat retrieves one session with its turns, oldest first
func (r *PostgresChatHistoryRepository) GetChat(ctx context.Context, chatID, userID string) (*chat.Chat, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, mode, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Chats)

	var c chat.Chat
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, chatID, userID).Scan(
		&c.ID, &c.UserID, &c.Title, &c.Mode, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}

	turns, err := r.loadTurns(ctx, chatID)
	if err != nil {
		return nil, err
	}
	c.Turns = turns

	return &c, nil
}

// ListChats retrieves a user's sessions, most recently updated first,
// without turns
func (r *PostgresChatHistoryRepository) ListChats(ctx context.Context, userID string) ([]chat.Chat, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, mode, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Chats)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []chat.Chat
	for rows.Next() {
		var c chat.Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Mode, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}

	return chats, nil
}

// SaveTurn appends a turn and bumps the session's updated time atomically
func (r *PostgresChatHistoryRepository) SaveTurn(ctx context.Context, userID string, turn *chat.Turn) error {
	resultJSON, aggregateJSON, err := encodeTurnPayloads(turn)
	if err != nil {
		return err
	}

	return r.tm.ExecTx(ctx, func(txCtx context.Context) error {
		executor := GetExecutor(txCtx, r.pool)

		insert := fmt.Sprintf(`
			INSERT INTO %s (id, chat_id, kind, content, result, aggregate, selected_model, image_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, r.tables.Turns)

		_, err := executor.Exec(txCtx, insert,
			turn.ID, turn.ChatID, turn.Kind, turn.Content,
			resultJSON, aggregateJSON, turn.SelectedWinner, turn.ImageURL, turn.CreatedAt,
		)
		if err != nil {
			if IsPgForeignKeyError(err) {
				return fmt.Errorf("chat %s: %w", turn.ChatID, domain.ErrNotFound)
			}
			return fmt.Errorf("save turn: %w", err)
		}

		touch := fmt.Sprintf(`
			UPDATE %s SET updated_at = $1 WHERE id = $2 AND user_id = $3
		`, r.tables.Chats)

		tag, err := executor.Exec(txCtx, touch, turn.CreatedAt, turn.ChatID, userID)
		if err != nil {
			return fmt.Errorf("touch chat: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("chat %s: %w", turn.ChatID, domain.ErrNotFound)
		}

		return nil
	})
}

// SelectWinner records the winning model for a multi turn. The WHERE
// clause enforces first-selection-wins at the database: a turn with a
// winner already set matches zero rows and the stored value survives.
func (r *PostgresChatHistoryRepository) SelectWinner(ctx context.Context, userID, turnID string, model chat.ModelIdentity) (*chat.Turn, error) {
	update := fmt.Sprintf(`
		UPDATE %s t
		SET selected_model = $1
		FROM %s c
		WHERE t.chat_id = c.id
		  AND c.user_id = $2
		  AND t.id = $3
		  AND t.kind = 'multi'
		  AND t.selected_model IS NULL
	`, r.tables.Turns, r.tables.Chats)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, update, model, userID, turnID)
	if err != nil {
		return nil, fmt.Errorf("select winner: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug("winner selection was a no-op", "turn_id", turnID)
	}

	return r.getTurn(ctx, userID, turnID)
}

// RenameChat updates a session title
func (r *PostgresChatHistoryRepository) RenameChat(ctx context.Context, chatID, userID, title string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET title = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3
	`, r.tables.Chats)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, title, chatID, userID)
	if err != nil {
		return fmt.Errorf("rename chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}

	return nil
}

// DeleteChat removes a session and its turns (turns cascade on chat_id)
func (r *PostgresChatHistoryRepository) DeleteChat(ctx context.Context, chatID, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1 AND user_id = $2
	`, r.tables.Chats)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, chatID, userID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}

	return nil
}

// getTurn loads a single turn, checking ownership through the chats row
func (r *PostgresChatHistoryRepository) getTurn(ctx context.Context, userID, turnID string) (*chat.Turn, error) {
	query := fmt.Sprintf(`
		SELECT t.id, t.chat_id, t.kind, t.content, t.result, t.aggregate, t.selected_model, t.image_url, t.created_at
		FROM %s t
		JOIN %s c ON t.chat_id = c.id
		WHERE t.id = $1 AND c.user_id = $2
	`, r.tables.Turns, r.tables.Chats)

	executor := GetExecutor(ctx, r.pool)
	turn, err := scanTurn(executor.QueryRow(ctx, query, turnID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("turn %s: %w", turnID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get turn: %w", err)
	}

	return turn, nil
}

// loadTurns loads all turns of a chat, oldest first
func (r *PostgresChatHistoryRepository) loadTurns(ctx context.Context, chatID string) ([]chat.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, chat_id, kind, content, result, aggregate, selected_model, image_url, created_at
		FROM %s
		WHERE chat_id = $1
		ORDER BY created_at ASC
	`, r.tables.Turns)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, *turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}

// scanTurn reads one turns row, decoding the JSONB payloads
func scanTurn(row pgx.Row) (*chat.Turn, error) {
	var (
		turn          chat.Turn
		resultJSON    []byte
		aggregateJSON []byte
	)

	err := row.Scan(
		&turn.ID, &turn.ChatID, &turn.Kind, &turn.Content,
		&resultJSON, &aggregateJSON, &turn.SelectedWinner, &turn.ImageURL, &turn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(resultJSON) > 0 {
		turn.Result = &chat.AgentResult{}
		if err := json.Unmarshal(resultJSON, turn.Result); err != nil {
			return nil, fmt.Errorf("decode result payload: %w", err)
		}
	}
	if len(aggregateJSON) > 0 {
		turn.Aggregate = &chat.AggregateResponse{}
		if err := json.Unmarshal(aggregateJSON, turn.Aggregate); err != nil {
			return nil, fmt.Errorf("decode aggregate payload: %w", err)
		}
	}

	return &turn, nil
}

// encodeTurnPayloads marshals the variant payloads for JSONB columns.
// Absent payloads insert as NULL.
func encodeTurnPayloads(turn *chat.Turn) ([]byte, []byte, error) {
	var resultJSON, aggregateJSON []byte

	if turn.Result != nil {
		b, err := json.Marshal(turn.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("encode result payload: %w", err)
		}
		resultJSON = b
	}
	if turn.Aggregate != nil {
		b, err := json.Marshal(turn.Aggregate)
		if err != nil {
			return nil, nil, fmt.Errorf("encode aggregate payload: %w", err)
		}
		aggregateJSON = b
	}

	return resultJSON, aggregateJSON, nil
}
