package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"jainn/internal/domain"
	"jainn/internal/domain/models/chat"
	"jainn/internal/domain/repositories"
)

// LocalChatHistoryRepository is a file-backed ChatHistoryRepository for
// guest users. Each guest gets one JSON file under the store directory;
// guest history never touches the database and disappears when the file
// is removed.
type LocalChatHistoryRepository struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

var _ repositories.ChatHistoryRepository = (*LocalChatHistoryRepository)(nil)

// guestFile is the on-disk layout for one guest's history.
type guestFile struct {
	Chats []chat.Chat `json:"chats"`
}

// NewChatHistoryRepository creates a local store rooted at dir, creating
// the directory if needed.
func NewChatHistoryRepository(dir string, logger *slog.Logger) (*LocalChatHistoryRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create guest store dir: %w", err)
	}
	return &LocalChatHistoryRepository{dir: dir, logger: logger}, nil
}

// CreateChat creates a new session in the guest's file
func (r *LocalChatHistoryRepository) CreateChat(ctx context.Context, c *chat.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load(c.UserID)
	if err != nil {
		return err
	}

	for _, existing := range file.Chats {
		if existing.ID == c.ID {
			return fmt.Errorf("chat %s: %w", c.ID, domain.ErrConflict)
		}
	}

	file.Chats = append(file.Chats, *c)
	return r.save(c.UserID, file)
}

// GetChat retrieves one session with its turns
func (r *LocalChatHistoryRepository) GetChat(ctx context.Context, chatID, userID string) (*chat.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load(userID)
	if err != nil {
		return nil, err
	}

	for i := range file.Chats {
		if file.Chats[i].ID == chatID {
			clone := file.Chats[i]
			clone.Turns = append([]chat.Turn(nil), file.Chats[i].Turns...)
			return &clone, nil
		}
	}

	return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
}

// ListChats retrieves the guest's sessions, most recently updated first,
// without turns
func (r *LocalChatHistoryRepository) ListChats(ctx context.Context, userID string) ([]chat.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load(userID)
	if err != nil {
		return nil, err
	}

	chats := make([]chat.Chat, 0, len(file.Chats))
	for _, c := range file.Chats {
		c.Turns = nil
		chats = append(chats, c)
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})

	return chats, nil
}

// SaveTurn appends a turn to a session and bumps its updated time
func (r *LocalChatHistoryRepository) SaveTurn(ctx context.Context, userID string, turn *chat.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load(userID)
	if err != nil {
		return err
	}

	for i := range file.Chats {
		if file.Chats[i].ID == turn.ChatID {
			file.Chats[i].Turns = append(file.Chats[i].Turns, *turn)
			file.Chats[i].UpdatedAt = time.Now()
			return r.save(userID, file)
		}
	}

	return fmt.Errorf("chat %s: %w", turn.ChatID, domain.ErrNotFound)
}

// SelectWinner records the winning model for a multi turn; the first
// selection is final
func (r *LocalChatHistoryRepository) SelectWinner(ctx context.Context, userID, turnID string, model chat.ModelIdentity) (*chat.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load(userID)
	if err != nil {
		return nil, err
	}

	for i := range file.Chats {
		for j := range file.Chats[i].Turns {
			if file.Chats[i].Turns[j].ID != turnID {
				continue
			}

			turn := &file.Chats[i].Turns[j]
			if turn.Kind == chat.TurnMulti && !turn.WinnerSelected() {
				turn.SelectedWinner = &model
				if err := r.save(userID, file); err != nil {
					return nil, err
				}
			}

			clone := file.Chats[i].Turns[j]
			return &clone, nil
		}
	}

	return nil, fmt.Errorf("turn %s: %w", turnID, domain.ErrNotFound)
}

// RenameChat updates a session title
func (r *LocalChatHistoryRepository) RenameChat(ctx context.Context, chatID, userID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load(userID)
	if err != nil {
		return err
	}

	for i := range file.Chats {
		if file.Chats[i].ID == chatID {
			file.Chats[i].Title = title
			file.Chats[i].UpdatedAt = time.Now()
			return r.save(userID, file)
		}
	}

	return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
}

// DeleteChat removes a session and its turns
func (r *LocalChatHistoryRepository) DeleteChat(ctx context.Context, chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load(userID)
	if err != nil {
		return err
	}

	for i := range file.Chats {
		if file.Chats[i].ID == chatID {
			file.Chats = append(file.Chats[:i], file.Chats[i+1:]...)
			return r.save(userID, file)
		}
	}

	return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
}

// path maps a guest ID to its file, rejecting IDs that could escape the
// store directory.
func (r *LocalChatHistoryRepository) path(userID string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, "/\\") || strings.Contains(userID, "..") {
		return "", fmt.Errorf("guest id %q: %w", userID, domain.ErrValidation)
	}
	return filepath.Join(r.dir, userID+".json"), nil
}

// load reads a guest's file; a missing file is an empty history
func (r *LocalChatHistoryRepository) load(userID string) (*guestFile, error) {
	p, err := r.path(userID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &guestFile{}, nil
		}
		return nil, fmt.Errorf("read guest history: %w", err)
	}

	var file guestFile
	if err := json.Unmarshal(data, &file); err != nil {
		// A corrupt file would lock the guest out permanently; start
		// over instead.
		r.logger.Warn("guest history corrupt, resetting", "user_id", userID, "error", err)
		return &guestFile{}, nil
	}

	return &file, nil
}

// save writes a guest's file atomically via temp file and rename
func (r *LocalChatHistoryRepository) save(userID string, file *guestFile) error {
	p, err := r.path(userID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode guest history: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write guest history: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("replace guest history: %w", err)
	}

	return nil
}
