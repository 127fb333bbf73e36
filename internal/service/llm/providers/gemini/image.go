package gemini

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"jainn/internal/domain/models/chat"
	llmSvc "jainn/internal/domain/services/llm"
)

const (
	imageModel         = "gemini-2.5-flash-image"
	imageFallbackModel = "imagen-3.0-generate-001"
)

// GenerateImage renders a prompt to a single JPEG and returns it as a
// data URL. The primary image model is tried first; on any failure other
// than a credential problem exactly one fallback model is attempted.
// This is the only retry anywhere in the system.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	url, err := p.generateWith(ctx, imageModel, prompt)
	if err == nil {
		return url, nil
	}

	// A bad credential fails the fallback identically; surface it now.
	if llmSvc.KindOf(err) == chat.ErrUnauthenticated {
		return "", err
	}

	p.logger.Warn("primary image model failed, trying fallback",
		"primary", imageModel,
		"fallback", imageFallbackModel,
		"error", err,
	)

	return p.generateWith(ctx, imageFallbackModel, prompt)
}

// generateWith runs one image generation call against the given model.
func (p *Provider) generateWith(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "1:1",
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return "", normalizeError(chat.ModelGemini, err)
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return "", llmSvc.NewBackendError(chat.ErrInvalidResponse, chat.ModelGemini,
			fmt.Errorf("no image bytes from %s", model))
	}

	encoded := base64.StdEncoding.EncodeToString(resp.GeneratedImages[0].Image.ImageBytes)
	return "data:image/jpeg;base64," + encoded, nil
}
