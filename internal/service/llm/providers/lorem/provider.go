package lorem

import (
	"context"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	"jainn/internal/domain/models/chat"
	llmSvc "jainn/internal/domain/services/llm"
)

// Provider is a mock backend that generates lorem ipsum text for every
// model slot. Used for development and tests without real API keys.
type Provider struct {
	generator *loremgen.Lorem

	// Delay is the simulated per-call latency. Zero means no delay.
	Delay time.Duration

	// FailModels lists slots whose calls should fail, with the kind to
	// fail with. Lets tests exercise partial-failure aggregates.
	FailModels map[chat.ModelIdentity]chat.ErrorKind
}

// NewProvider creates a lorem provider covering all model slots.
func NewProvider() *Provider {
	return &Provider{generator: loremgen.New()}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel always reports true: the mock stands in for every slot.
func (p *Provider) SupportsModel(model chat.ModelIdentity) bool {
	return model.Valid()
}

// Generate produces a paragraph of lorem ipsum, honoring the configured
// delay and failure table.
func (p *Provider) Generate(ctx context.Context, req *llmSvc.GenerateRequest) (*llmSvc.GenerateResponse, error) {
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, llmSvc.NewBackendError(chat.ErrUnavailable, req.Model, ctx.Err())
		}
	}

	if kind, ok := p.FailModels[req.Model]; ok {
		return nil, llmSvc.NewBackendError(kind, req.Model,
			fmt.Errorf("simulated %s failure", req.Model))
	}

	var sb strings.Builder
	sb.WriteString(p.generator.Paragraph(2, 4))

	return &llmSvc.GenerateResponse{
		Text:         sb.String(),
		BackendModel: "lorem-" + string(req.Model),
	}, nil
}

// GenerateImage returns a tiny fixed data URL so image turns can be
// exercised without a real image backend.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", llmSvc.NewBackendError(chat.ErrUnavailable, chat.ModelGemini, ctx.Err())
	default:
	}
	// 1x1 transparent GIF
	return "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7", nil
}
