package llm

import (
	"fmt"
	"log/slog"

	"jainn/internal/config"
	"jainn/internal/domain/models/chat"
	llmSvc "jainn/internal/domain/services/llm"
	"jainn/internal/service/llm/providers/gemini"
	"jainn/internal/service/llm/providers/lorem"
	"jainn/internal/service/llm/providers/openrouter"
)

// ProviderRegistry resolves a model slot to the adapter serving it.
type ProviderRegistry struct {
	providers []llmSvc.Provider
}

// NewProviderRegistry creates a registry over the given adapters.
func NewProviderRegistry(providers ...llmSvc.Provider) *ProviderRegistry {
	return &ProviderRegistry{providers: providers}
}

// ProviderFor returns the adapter that serves the given model slot.
func (r *ProviderRegistry) ProviderFor(model chat.ModelIdentity) (llmSvc.Provider, error) {
	for _, p := range r.providers {
		if p.SupportsModel(model) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no provider registered for model %q", model)
}

// ImageProvider returns the first adapter capable of image generation.
func (r *ProviderRegistry) ImageProvider() (llmSvc.ImageProvider, error) {
	for _, p := range r.providers {
		if img, ok := p.(llmSvc.ImageProvider); ok {
			return img, nil
		}
	}
	return nil, fmt.Errorf("no image-capable provider registered")
}

// SetupProviders builds the provider registry from configuration.
//
// Supported DEFAULT_PROVIDER values:
//   - "live"  - Gemini API for the gemini slot, OpenRouter for llama and
//     mistral (the production wiring)
//   - "lorem" - mock provider covering every slot, no API keys required
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*ProviderRegistry, error) {
	switch cfg.DefaultProvider {
	case "live":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
		}

		geminiProvider, err := gemini.NewProvider(cfg.GeminiAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("create gemini provider: %w", err)
		}

		openRouterProvider := openrouter.NewProvider(cfg.OpenRouterAPIKey, logger)

		logger.Info("providers initialized", "mode", "live")
		return NewProviderRegistry(geminiProvider, openRouterProvider), nil

	case "lorem":
		logger.Info("providers initialized", "mode", "lorem")
		return NewProviderRegistry(lorem.NewProvider()), nil

	default:
		return nil, fmt.Errorf("unsupported provider mode: %s", cfg.DefaultProvider)
	}
}
