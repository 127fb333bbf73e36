package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"jainn/internal/config"
	"jainn/internal/domain"
	"jainn/internal/domain/models"
	"jainn/internal/domain/models/chat"
	"jainn/internal/domain/repositories"
	llmSvc "jainn/internal/domain/services/llm"
	"jainn/internal/service/policy"
)

// SendRequest is one prompt submission from the client.
type SendRequest struct {
	UserID string              `json:"-"`
	ChatID string              `json:"chat_id"` // empty starts a new conversation
	Mode   chat.Mode           `json:"mode"`
	Model  chat.ModelIdentity  `json:"model"` // active slot in single mode
	Text   string              `json:"text"`
	Files  []chat.AttachedFile `json:"files,omitempty"`
}

// SendResult is the settled outcome of a send. When the policy gate
// refused the action, Denied is set and nothing was persisted.
type SendResult struct {
	Denied       *policy.Decision `json:"denied,omitempty"`
	ChatID       string           `json:"chat_id"`
	UserTurn     *chat.Turn       `json:"user_turn,omitempty"`
	ResponseTurn *chat.Turn       `json:"response_turn,omitempty"`
}

// SendService runs the full send pipeline: gate, dispatch, assembly,
// persistence and the background referee kick-off.
type SendService struct {
	orchestrator *Orchestrator
	registry     *ProviderRegistry
	referee      *Referee
	histories    repositories.HistoryResolver
	profiles     repositories.ProfileRepository
	logger       *slog.Logger
}

// NewSendService creates a send service.
func NewSendService(
	orchestrator *Orchestrator,
	registry *ProviderRegistry,
	referee *Referee,
	histories repositories.HistoryResolver,
	profiles repositories.ProfileRepository,
	logger *slog.Logger,
) *SendService {
	return &SendService{
		orchestrator: orchestrator,
		registry:     registry,
		referee:      referee,
		histories:    histories,
		profiles:     profiles,
		logger:       logger,
	}
}

// Send handles one prompt submission end to end. Policy denials come
// back as data on the result, never as errors; backend failures become
// failure turns or failed panels, never errors. The only error returns
// are validation problems and history-store failures.
func (s *SendService) Send(ctx context.Context, req *SendRequest) (*SendResult, error) {
	if err := s.validateSendRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	prompt := parsePrompt(req.Text, req.Files)
	history := s.histories.HistoryFor(req.UserID)

	tier, err := s.tierFor(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	// A fresh conversation has zero prior turns, so the gate can run
	// before anything is created; denied sends must leave no trace.
	turnCount := 0
	if req.ChatID != "" {
		existing, err := history.GetChat(ctx, req.ChatID, req.UserID)
		if err != nil {
			return nil, err
		}
		turnCount = countUserTurns(existing)
	}

	session := policy.Session{
		Tier:      tier,
		Mode:      req.Mode,
		Model:     req.Model,
		TurnCount: turnCount,
	}

	if decision := policy.CanSend(session, req.Mode); !decision.Allowed {
		return &SendResult{Denied: &decision, ChatID: req.ChatID}, nil
	}
	if prompt.ImageDirective {
		if decision := policy.CanUseImage(session); !decision.Allowed {
			return &SendResult{Denied: &decision, ChatID: req.ChatID}, nil
		}
	}

	conversation, err := s.resolveChat(ctx, history, req)
	if err != nil {
		return nil, err
	}

	userTurn := AssembleUser(conversation.ID, prompt)
	if err := history.SaveTurn(ctx, req.UserID, userTurn); err != nil {
		return nil, err
	}

	var responseTurn *chat.Turn
	switch {
	case prompt.ImageDirective:
		responseTurn = s.generateImageTurn(ctx, conversation.ID, prompt)
	case req.Mode == chat.ModeMulti:
		responseTurn = s.dispatchMultiTurn(ctx, conversation.ID, prompt)
	default:
		responseTurn = s.generateSingleTurn(ctx, conversation.ID, req.Model, prompt)
	}

	if err := history.SaveTurn(ctx, req.UserID, responseTurn); err != nil {
		return nil, err
	}

	// The referee runs detached: the result below renders regardless of
	// whether a verdict ever arrives.
	if responseTurn.Kind == chat.TurnMulti {
		s.referee.EvaluateAsync(responseTurn.ID, prompt, *responseTurn.Aggregate)
	}

	s.logger.Info("send completed",
		"chat_id", conversation.ID,
		"mode", req.Mode,
		"kind", responseTurn.Kind,
		"user_id", req.UserID,
	)

	return &SendResult{
		ChatID:       conversation.ID,
		UserTurn:     userTurn,
		ResponseTurn: responseTurn,
	}, nil
}

// SelectWinner records the winning model for a multi turn. Repeated
// selections are no-ops: the stored turn keeps its first winner.
func (s *SendService) SelectWinner(ctx context.Context, userID, turnID string, model chat.ModelIdentity) (*chat.Turn, error) {
	if !model.Valid() {
		return nil, fmt.Errorf("%w: unknown model %q", domain.ErrValidation, model)
	}

	history := s.histories.HistoryFor(userID)
	turn, err := history.SelectWinner(ctx, userID, turnID, model)
	if err != nil {
		return nil, err
	}

	s.logger.Info("winner recorded",
		"turn_id", turnID,
		"model", turn.SelectedWinner,
		"user_id", userID,
	)

	return turn, nil
}

// SwitchMode gates a mode change against the user's tier.
func (s *SendService) SwitchMode(ctx context.Context, userID string, target chat.Mode) (policy.Decision, error) {
	if !target.Valid() {
		return policy.Decision{}, fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, target)
	}

	tier, err := s.tierFor(ctx, userID)
	if err != nil {
		return policy.Decision{}, err
	}

	return policy.CanSwitchMode(policy.Session{Tier: tier}, target), nil
}

// generateSingleTurn runs the one-model path. The call settles into a
// success or failure result either way; failures render as an error
// message in the conversation rather than propagating.
func (s *SendService) generateSingleTurn(ctx context.Context, chatID string, model chat.ModelIdentity, prompt chat.Prompt) *chat.Turn {
	result := s.orchestrator.invoke(ctx, prompt, model)
	return AssembleSingle(chatID, result)
}

// dispatchMultiTurn fans the prompt out to every slot and assembles the
// settled aggregate.
func (s *SendService) dispatchMultiTurn(ctx context.Context, chatID string, prompt chat.Prompt) *chat.Turn {
	agg := s.orchestrator.Dispatch(ctx, prompt, chat.AllModels())
	return AssembleMulti(chatID, agg)
}

// generateImageTurn runs image generation. Failure degrades to a failed
// single turn carrying the user-visible message.
func (s *SendService) generateImageTurn(ctx context.Context, chatID string, prompt chat.Prompt) *chat.Turn {
	provider, err := s.registry.ImageProvider()
	if err != nil {
		return AssembleSingle(chatID, chat.AgentResult{
			Model:  chat.ModelGemini,
			Status: chat.ResultFailure,
			Error:  chat.ErrUnknown,
		})
	}

	start := time.Now()
	url, err := provider.GenerateImage(ctx, prompt.Text)
	if err != nil {
		s.logger.Warn("image generation failed",
			"chat_id", chatID,
			"error_kind", llmSvc.KindOf(err),
			"error", err,
		)
		return AssembleSingle(chatID, chat.AgentResult{
			Model:   chat.ModelGemini,
			Status:  chat.ResultFailure,
			Error:   llmSvc.KindOf(err),
			Latency: time.Since(start),
		})
	}

	return AssembleImage(chatID, url)
}

// resolveChat loads the target conversation, creating one when the
// request names none.
func (s *SendService) resolveChat(ctx context.Context, history repositories.ChatHistoryRepository, req *SendRequest) (*chat.Chat, error) {
	if req.ChatID != "" {
		return history.GetChat(ctx, req.ChatID, req.UserID)
	}

	conversation := &chat.Chat{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Title:     deriveTitle(req.Text),
		Mode:      req.Mode,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := history.CreateChat(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// tierFor resolves the tier feeding the policy gate. Guests never have a
// profile row; users without one default to the free tier.
func (s *SendService) tierFor(ctx context.Context, userID string) (models.Tier, error) {
	if models.IsGuestID(userID) {
		return models.TierGuest, nil
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return models.TierFree, nil
		}
		return "", err
	}
	return profile.Tier, nil
}

// countUserTurns counts prior prompts in a conversation for the guest
// cap.
func countUserTurns(c *chat.Chat) int {
	n := 0
	for _, t := range c.Turns {
		if t.Kind == chat.TurnUser {
			n++
		}
	}
	return n
}

// parsePrompt builds the prompt value, recognizing the /image directive
// the client forwards verbatim.
func parsePrompt(text string, files []chat.AttachedFile) chat.Prompt {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToLower(trimmed), "/image") {
		return chat.Prompt{
			Text:           strings.TrimSpace(trimmed[len("/image"):]),
			Files:          files,
			ImageDirective: true,
		}
	}
	return chat.Prompt{Text: trimmed, Files: files}
}

// deriveTitle produces a session title from the first prompt.
func deriveTitle(text string) string {
	title := strings.TrimSpace(text)
	if len(title) > 60 {
		title = strings.TrimSpace(title[:60])
	}
	if title == "" {
		title = "New Chat"
	}
	return title
}

func (s *SendService) validateSendRequest(req *SendRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Text,
			validation.Required,
			validation.Length(1, config.MaxPromptLength),
		),
		validation.Field(&req.Mode, validation.Required, validation.By(validMode)),
		validation.Field(&req.Files, validation.Length(0, config.MaxAttachedFiles)),
		validation.Field(&req.Model, validation.When(req.Mode == chat.ModeSingle,
			validation.Required, validation.By(validModel))),
	)
}

func validMode(value interface{}) error {
	mode, _ := value.(chat.Mode)
	if !mode.Valid() {
		return fmt.Errorf("must be one of: single, multi")
	}
	return nil
}

func validModel(value interface{}) error {
	model, _ := value.(chat.ModelIdentity)
	if !model.Valid() {
		return fmt.Errorf("must be one of: gemini, llama, mistral")
	}
	return nil
}
