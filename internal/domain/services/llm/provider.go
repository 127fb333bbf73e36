package llm

import (
	"context"

	"jainn/internal/domain/models/chat"
)

// Provider defines the interface every model backend adapter implements.
// One adapter hides one transport (base URL, auth header, request shape);
// the orchestrator talks to all of them through this signature alone.
type Provider interface {
	// Generate produces text for a prompt from a single model. Errors
	// returned from it are always *BackendError so callers can branch
	// on the normalized kind.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider name (e.g., "gemini", "openrouter")
	Name() string

	// SupportsModel reports whether this adapter serves the given slot.
	SupportsModel(model chat.ModelIdentity) bool
}

// ImageProvider is implemented by adapters that can render images.
type ImageProvider interface {
	// GenerateImage renders the prompt and returns a data URL. The
	// adapter tries its primary image model first and exactly one fixed
	// fallback on any failure other than a credential problem.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// GenerateRequest contains the parameters for a single backend call.
type GenerateRequest struct {
	// Model is the slot being invoked.
	Model chat.ModelIdentity

	// Prompt is the user's submission, including any attached files.
	Prompt chat.Prompt

	// SystemInstruction overrides the adapter's default persona prompt
	// when non-empty.
	SystemInstruction string
}

// GenerateResponse contains the adapter's normalized response.
type GenerateResponse struct {
	// Text is the generated completion.
	Text string

	// BackendModel is the transport-level model identifier that served
	// the call (e.g., "gemini-2.5-flash").
	BackendModel string
}
