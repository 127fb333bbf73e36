package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"jainn/internal/domain/models/chat"
	llmSvc "jainn/internal/domain/services/llm"
)

const (
	textModel = "gemini-2.5-flash"

	defaultSystemInstruction = "You are Gemini, a helpful AI assistant. When files are attached, analyze them thoroughly."
)

// Provider adapts the Gemini API to the provider contract. It serves the
// gemini model slot and is the only image-capable adapter.
type Provider struct {
	client *genai.Client
	logger *slog.Logger
}

// NewProvider creates a Gemini provider backed by the public Gemini API.
func NewProvider(apiKey string, logger *slog.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Provider{client: client, logger: logger}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "gemini"
}

// SupportsModel reports whether this adapter serves the given slot.
func (p *Provider) SupportsModel(model chat.ModelIdentity) bool {
	return model == chat.ModelGemini
}

// Generate produces text for a prompt. Attached files are forwarded as
// inline data parts alongside the prompt text.
func (p *Provider) Generate(ctx context.Context, req *llmSvc.GenerateRequest) (*llmSvc.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, llmSvc.NewBackendError(chat.ErrUnknown, req.Model,
			fmt.Errorf("model %q is not served by the gemini provider", req.Model))
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt.Text)}
	for _, f := range req.Prompt.Files {
		if len(f.Data) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(f.Data, f.MIMEType))
	}

	instruction := req.SystemInstruction
	if instruction == "" {
		instruction = defaultSystemInstruction
	}

	resp, err := p.client.Models.GenerateContent(ctx, textModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		},
	)
	if err != nil {
		return nil, normalizeError(req.Model, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, llmSvc.NewBackendError(chat.ErrInvalidResponse, req.Model,
			fmt.Errorf("empty completion from %s", textModel))
	}

	return &llmSvc.GenerateResponse{
		Text:         text,
		BackendModel: textModel,
	}, nil
}

// normalizeError maps genai SDK failures onto the closed ErrorKind set.
func normalizeError(model chat.ModelIdentity, err error) *llmSvc.BackendError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return llmSvc.NewBackendError(chat.ErrUnauthenticated, model, err)
		case http.StatusTooManyRequests:
			return llmSvc.NewBackendError(chat.ErrRateLimited, model, err)
		default:
			if apiErr.Code >= 500 {
				return llmSvc.NewBackendError(chat.ErrUnavailable, model, err)
			}
			return llmSvc.NewBackendError(chat.ErrInvalidResponse, model, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return llmSvc.NewBackendError(chat.ErrUnavailable, model, err)
	}

	return llmSvc.NewBackendError(chat.ErrUnknown, model, err)
}
