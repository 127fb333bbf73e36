package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"jainn/internal/domain"
	"jainn/internal/domain/models"
	"jainn/internal/domain/models/chat"
	"jainn/internal/domain/repositories"
	"jainn/internal/service/policy"
)

// memHistory is an in-memory ChatHistoryRepository for pipeline tests.
type memHistory struct {
	mu    sync.Mutex
	chats map[string]*chat.Chat
}

func newMemHistory() *memHistory {
	return &memHistory{chats: make(map[string]*chat.Chat)}
}

func (m *memHistory) CreateChat(ctx context.Context, c *chat.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.chats[c.ID] = &clone
	return nil
}

func (m *memHistory) GetChat(ctx context.Context, chatID, userID string) (*chat.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}
	clone := *c
	clone.Turns = append([]chat.Turn(nil), c.Turns...)
	return &clone, nil
}

func (m *memHistory) ListChats(ctx context.Context, userID string) ([]chat.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []chat.Chat
	for _, c := range m.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memHistory) SaveTurn(ctx context.Context, userID string, turn *chat.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[turn.ChatID]
	if !ok {
		return fmt.Errorf("chat %s: %w", turn.ChatID, domain.ErrNotFound)
	}
	c.Turns = append(c.Turns, *turn)
	c.UpdatedAt = time.Now()
	return nil
}

func (m *memHistory) SelectWinner(ctx context.Context, userID, turnID string, model chat.ModelIdentity) (*chat.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chats {
		for i := range c.Turns {
			if c.Turns[i].ID == turnID {
				updated := SelectWinner(&c.Turns[i], model)
				c.Turns[i] = *updated
				clone := c.Turns[i]
				return &clone, nil
			}
		}
	}
	return nil, fmt.Errorf("turn %s: %w", turnID, domain.ErrNotFound)
}

func (m *memHistory) RenameChat(ctx context.Context, chatID, userID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}
	c.Title = title
	return nil
}

func (m *memHistory) DeleteChat(ctx context.Context, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, chatID)
	return nil
}

type memProfiles struct {
	profiles map[string]*models.Profile
}

func (m *memProfiles) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, domain.ErrNotFound)
	}
	return p, nil
}

func (m *memProfiles) UpsertProfile(ctx context.Context, p *models.Profile) error {
	m.profiles[p.ID] = p
	return nil
}

type memVerdicts struct {
	mu       sync.Mutex
	verdicts map[string]*chat.RefereeVerdict
}

func newMemVerdicts() *memVerdicts {
	return &memVerdicts{verdicts: make(map[string]*chat.RefereeVerdict)}
}

func (m *memVerdicts) SaveVerdict(ctx context.Context, v *chat.RefereeVerdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts[v.TurnID] = v
	return nil
}

func (m *memVerdicts) GetVerdict(ctx context.Context, turnID string) (*chat.RefereeVerdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.verdicts[turnID]
	if !ok {
		return nil, fmt.Errorf("verdict %s: %w", turnID, domain.ErrNotFound)
	}
	return v, nil
}

// staticResolver hands every user the same store.
type staticResolver struct {
	history repositories.ChatHistoryRepository
}

func (r *staticResolver) HistoryFor(userID string) repositories.ChatHistoryRepository {
	return r.history
}

type sendFixture struct {
	svc      *SendService
	history  *memHistory
	profiles *memProfiles
	verdicts *memVerdicts
	tasks    *TaskGroup
}

func newSendFixture(t *testing.T, provider *stubProvider, tiers map[string]models.Tier) *sendFixture {
	t.Helper()

	logger := testLogger()
	registry := NewProviderRegistry(provider)
	orchestrator := NewOrchestrator(registry, time.Second, logger)
	verdicts := newMemVerdicts()
	tasks := NewTaskGroup(logger)
	referee := NewReferee(registry, verdicts, tasks, time.Second, logger)

	history := newMemHistory()
	profiles := &memProfiles{profiles: make(map[string]*models.Profile)}
	for id, tier := range tiers {
		profiles.profiles[id] = &models.Profile{ID: id, Tier: tier}
	}

	svc := NewSendService(orchestrator, registry, referee,
		&staticResolver{history: history}, profiles, logger)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tasks.Shutdown(ctx)
	})

	return &sendFixture{svc: svc, history: history, profiles: profiles, verdicts: verdicts, tasks: tasks}
}

func happyProvider() *stubProvider {
	return &stubProvider{
		replies: map[chat.ModelIdentity]string{
			chat.ModelGemini:  "gemini says hi",
			chat.ModelLlama:   "llama says hi",
			chat.ModelMistral: "mistral says hi",
		},
	}
}

func TestSendSingleCreatesChatAndTwoTurns(t *testing.T) {
	f := newSendFixture(t, happyProvider(), map[string]models.Tier{"u1": models.TierFree})

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "u1",
		Mode:   chat.ModeSingle,
		Model:  chat.ModelGemini,
		Text:   "what is a goroutine?",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Denied != nil {
		t.Fatalf("unexpected denial: %+v", res.Denied)
	}
	if res.ChatID == "" {
		t.Fatal("expected a chat to be created")
	}

	stored, err := f.history.GetChat(context.Background(), res.ChatID, "u1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if len(stored.Turns) != 2 {
		t.Fatalf("stored %d turns, want 2 (user + response)", len(stored.Turns))
	}
	if stored.Turns[0].Kind != chat.TurnUser || stored.Turns[0].Content != "what is a goroutine?" {
		t.Errorf("first turn = %+v, want the user's prompt", stored.Turns[0])
	}
	if stored.Turns[1].Kind != chat.TurnSingle || stored.Turns[1].Content != "gemini says hi" {
		t.Errorf("second turn = %+v, want the model response", stored.Turns[1])
	}
	if stored.Title != "what is a goroutine?" {
		t.Errorf("chat title = %q, want derived from the prompt", stored.Title)
	}
}

func TestSendSingleFailureStillPersistsTurn(t *testing.T) {
	provider := happyProvider()
	provider.failures = map[chat.ModelIdentity]chat.ErrorKind{
		chat.ModelGemini: chat.ErrRateLimited,
	}
	f := newSendFixture(t, provider, map[string]models.Tier{"u1": models.TierFree})

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "u1",
		Mode:   chat.ModeSingle,
		Model:  chat.ModelGemini,
		Text:   "hello",
	})
	if err != nil {
		t.Fatalf("a backend failure must not surface as a pipeline error: %v", err)
	}

	turn := res.ResponseTurn
	if turn.Kind != chat.TurnSingle {
		t.Fatalf("kind = %q, want single", turn.Kind)
	}
	if turn.Result.Status != chat.ResultFailure {
		t.Error("response turn should carry the failure result")
	}
	if turn.Content != chat.ErrRateLimited.Message() {
		t.Errorf("content = %q, want the user-visible failure text", turn.Content)
	}
}

func TestSendMultiProducesAggregateAndVerdict(t *testing.T) {
	f := newSendFixture(t, happyProvider(), map[string]models.Tier{"pro1": models.TierPro})

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "pro1",
		Mode:   chat.ModeMulti,
		Text:   "compare TCP and UDP",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Denied != nil {
		t.Fatalf("pro tier should clear the multi gate, got %+v", res.Denied)
	}

	turn := res.ResponseTurn
	if turn.Kind != chat.TurnMulti {
		t.Fatalf("kind = %q, want multi", turn.Kind)
	}
	if got := len(turn.Aggregate.Results); got != 3 {
		t.Fatalf("aggregate has %d entries, want 3", got)
	}
	if turn.WinnerSelected() {
		t.Error("a fresh multi turn must start with no winner")
	}

	// The verdict arrives off the request path; drain the task group
	// before looking for it.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.tasks.Shutdown(ctx); err != nil {
		t.Fatalf("task group did not drain: %v", err)
	}

	v, err := f.verdicts.GetVerdict(context.Background(), turn.ID)
	if err != nil {
		t.Fatalf("expected a stored verdict: %v", err)
	}
	if v.Status != chat.VerdictComplete {
		t.Errorf("verdict status = %q, want complete", v.Status)
	}
}

func TestSendMultiDeniedForFreeTier(t *testing.T) {
	f := newSendFixture(t, happyProvider(), map[string]models.Tier{"u1": models.TierFree})

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "u1",
		Mode:   chat.ModeMulti,
		Text:   "hi",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Denied == nil {
		t.Fatal("free tier must be denied multi mode")
	}
	if res.Denied.Reason != policy.ReasonUpgradeRequired {
		t.Errorf("reason = %q, want %q", res.Denied.Reason, policy.ReasonUpgradeRequired)
	}
	if res.UserTurn != nil || res.ResponseTurn != nil {
		t.Error("a denied send must persist nothing")
	}

	chats, err := f.history.ListChats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 0 {
		t.Errorf("denied send created %d chats, want 0", len(chats))
	}
}

func TestSendGuestCapEnforced(t *testing.T) {
	f := newSendFixture(t, happyProvider(), nil)
	guest := "guest_abc123"

	var chatID string
	for i := 0; i < 10; i++ {
		res, err := f.svc.Send(context.Background(), &SendRequest{
			UserID: guest,
			ChatID: chatID,
			Mode:   chat.ModeSingle,
			Model:  chat.ModelGemini,
			Text:   fmt.Sprintf("message %d", i+1),
		})
		if err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
		if res.Denied != nil {
			t.Fatalf("send %d denied early: %+v", i+1, res.Denied)
		}
		chatID = res.ChatID
	}

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: guest,
		ChatID: chatID,
		Mode:   chat.ModeSingle,
		Model:  chat.ModelGemini,
		Text:   "message 11",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Denied == nil {
		t.Fatal("the eleventh guest prompt must be denied")
	}
	if res.Denied.Reason != policy.ReasonGuestLimitReached {
		t.Errorf("reason = %q, want %q", res.Denied.Reason, policy.ReasonGuestLimitReached)
	}
}

func TestSendGuestAllowedMultiMode(t *testing.T) {
	f := newSendFixture(t, happyProvider(), nil)

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "guest_multi1",
		Mode:   chat.ModeMulti,
		Text:   "compare yourselves",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Denied != nil {
		t.Fatalf("guests are only bounded by the message cap, got %+v", res.Denied)
	}
	if res.ResponseTurn.Kind != chat.TurnMulti {
		t.Errorf("kind = %q, want multi", res.ResponseTurn.Kind)
	}
}

func TestSendUnknownUserDefaultsToFreeTier(t *testing.T) {
	f := newSendFixture(t, happyProvider(), nil)

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "no-profile-yet",
		Mode:   chat.ModeMulti,
		Text:   "hi",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Denied == nil || res.Denied.Reason != policy.ReasonUpgradeRequired {
		t.Errorf("users without a profile row should gate as free tier, got %+v", res.Denied)
	}
}

func TestSendImageDirective(t *testing.T) {
	f := newSendFixture(t, happyProvider(), map[string]models.Tier{"u1": models.TierFree})

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "u1",
		Mode:   chat.ModeSingle,
		Model:  chat.ModelGemini,
		Text:   "/image a lighthouse at dusk",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Denied != nil {
		t.Fatalf("single+gemini should clear the image gate, got %+v", res.Denied)
	}
	if res.ResponseTurn.Kind != chat.TurnImage {
		t.Fatalf("kind = %q, want image", res.ResponseTurn.Kind)
	}
	if !strings.HasPrefix(res.ResponseTurn.ImageURL, "data:image/") {
		t.Errorf("image URL = %q, want a data URL", res.ResponseTurn.ImageURL)
	}
}

func TestSendImageDeniedOutsideGeminiSingle(t *testing.T) {
	f := newSendFixture(t, happyProvider(), map[string]models.Tier{"u1": models.TierUltra})

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "u1",
		Mode:   chat.ModeSingle,
		Model:  chat.ModelLlama,
		Text:   "/image a fox",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Denied == nil || res.Denied.Reason != policy.ReasonFeatureUnavailable {
		t.Errorf("image generation outside single+gemini must be denied, got %+v", res.Denied)
	}
}

func TestSendValidation(t *testing.T) {
	f := newSendFixture(t, happyProvider(), nil)

	tests := []struct {
		name string
		req  *SendRequest
	}{
		{"empty text", &SendRequest{UserID: "u1", Mode: chat.ModeSingle, Model: chat.ModelGemini}},
		{"missing user", &SendRequest{Mode: chat.ModeSingle, Model: chat.ModelGemini, Text: "hi"}},
		{"bad mode", &SendRequest{UserID: "u1", Mode: "turbo", Text: "hi"}},
		{"single without model", &SendRequest{UserID: "u1", Mode: chat.ModeSingle, Text: "hi"}},
		{"bad model", &SendRequest{UserID: "u1", Mode: chat.ModeSingle, Model: "gpt", Text: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want a validation error", err)
			}
		})
	}
}

func TestSelectWinnerFirstSelectionWins(t *testing.T) {
	f := newSendFixture(t, happyProvider(), map[string]models.Tier{"pro1": models.TierPro})

	res, err := f.svc.Send(context.Background(), &SendRequest{
		UserID: "pro1",
		Mode:   chat.ModeMulti,
		Text:   "pick one",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	turnID := res.ResponseTurn.ID

	first, err := f.svc.SelectWinner(context.Background(), "pro1", turnID, chat.ModelLlama)
	if err != nil {
		t.Fatalf("SelectWinner: %v", err)
	}
	if first.SelectedWinner == nil || *first.SelectedWinner != chat.ModelLlama {
		t.Fatalf("winner = %v, want llama", first.SelectedWinner)
	}

	second, err := f.svc.SelectWinner(context.Background(), "pro1", turnID, chat.ModelMistral)
	if err != nil {
		t.Fatalf("repeat SelectWinner: %v", err)
	}
	if second.SelectedWinner == nil || *second.SelectedWinner != chat.ModelLlama {
		t.Errorf("second selection changed the winner to %v; the first must stand", second.SelectedWinner)
	}
}

func TestSwitchMode(t *testing.T) {
	f := newSendFixture(t, happyProvider(), map[string]models.Tier{
		"free1": models.TierFree,
		"pro1":  models.TierPro,
	})

	d, err := f.svc.SwitchMode(context.Background(), "free1", chat.ModeMulti)
	if err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if d.Allowed {
		t.Error("free tier must not switch into multi mode")
	}

	d, err = f.svc.SwitchMode(context.Background(), "pro1", chat.ModeMulti)
	if err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if !d.Allowed {
		t.Error("pro tier must be allowed into multi mode")
	}
}
