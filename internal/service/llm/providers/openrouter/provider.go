package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"jainn/internal/domain/models/chat"
	llmSvc "jainn/internal/domain/services/llm"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// backendModels maps model slots to OpenRouter model identifiers.
var backendModels = map[chat.ModelIdentity]string{
	chat.ModelLlama:   "meta-llama/llama-3.1-70b-instruct",
	chat.ModelMistral: "mistralai/mistral-large",
}

// defaultInstructions holds the per-slot persona prompt used when the
// caller does not supply one.
var defaultInstructions = map[chat.ModelIdentity]string{
	chat.ModelLlama:   "You are LLaMA 3.1, a helpful and efficient AI assistant created by Meta. Answer with clarity and precision.",
	chat.ModelMistral: "You are Mistral Large, a concise and precise AI assistant. Answer with accuracy and efficiency.",
}

// Provider adapts the OpenRouter chat-completions API to the provider
// contract. It serves the llama and mistral model slots.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewProvider creates an OpenRouter provider.
func NewProvider(apiKey string, logger *slog.Logger) *Provider {
	return &Provider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
		logger:  logger,
	}
}

// NewProviderWithBaseURL creates a provider pointed at a non-default
// endpoint. Tests use this with an httptest server.
func NewProviderWithBaseURL(apiKey, baseURL string, logger *slog.Logger) *Provider {
	p := NewProvider(apiKey, logger)
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openrouter"
}

// SupportsModel reports whether this adapter serves the given slot.
func (p *Provider) SupportsModel(model chat.ModelIdentity) bool {
	_, ok := backendModels[model]
	return ok
}

// request/response mirror the OpenAI-compatible wire shape OpenRouter
// speaks.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces text for a prompt via OpenRouter.
func (p *Provider) Generate(ctx context.Context, req *llmSvc.GenerateRequest) (*llmSvc.GenerateResponse, error) {
	backendModel, ok := backendModels[req.Model]
	if !ok {
		return nil, llmSvc.NewBackendError(chat.ErrUnknown, req.Model,
			fmt.Errorf("model %q is not served by the openrouter provider", req.Model))
	}

	if p.apiKey == "" {
		return nil, llmSvc.NewBackendError(chat.ErrUnauthenticated, req.Model,
			errors.New("openrouter API key not configured"))
	}

	instruction := req.SystemInstruction
	if instruction == "" {
		instruction = defaultInstructions[req.Model]
	}

	body := chatRequest{
		Model: backendModel,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: req.Prompt.Text},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llmSvc.NewBackendError(chat.ErrUnknown, req.Model, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, llmSvc.NewBackendError(chat.ErrUnknown, req.Model, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Title", "Jainn AI")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llmSvc.NewBackendError(chat.ErrUnavailable, req.Model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llmSvc.NewBackendError(chat.ErrUnavailable, req.Model, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.normalizeStatus(req.Model, resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, llmSvc.NewBackendError(chat.ErrInvalidResponse, req.Model, err)
	}

	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, llmSvc.NewBackendError(chat.ErrInvalidResponse, req.Model,
			fmt.Errorf("no completion in response from %s", backendModel))
	}

	return &llmSvc.GenerateResponse{
		Text:         parsed.Choices[0].Message.Content,
		BackendModel: backendModel,
	}, nil
}

// normalizeStatus maps an HTTP error status onto the closed ErrorKind
// set, keeping the backend's message for logs.
func (p *Provider) normalizeStatus(model chat.ModelIdentity, status int, raw []byte) *llmSvc.BackendError {
	var apiErr errorResponse
	message := ""
	if err := json.Unmarshal(raw, &apiErr); err == nil {
		message = apiErr.Error.Message
	}
	cause := fmt.Errorf("openrouter status %d: %s", status, message)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return llmSvc.NewBackendError(chat.ErrUnauthenticated, model, cause)
	case status == http.StatusTooManyRequests:
		return llmSvc.NewBackendError(chat.ErrRateLimited, model, cause)
	case status >= 500:
		return llmSvc.NewBackendError(chat.ErrUnavailable, model, cause)
	default:
		return llmSvc.NewBackendError(chat.ErrInvalidResponse, model, cause)
	}
}
