package handler

import (
	"log/slog"
	"net/http"

	"jainn/internal/capabilities"
	"jainn/internal/httputil"
)

// ModelsHandler serves the model slot catalog the client renders its
// model picker from.
type ModelsHandler struct {
	registry *capabilities.Registry
	logger   *slog.Logger
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(registry *capabilities.Registry, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{registry: registry, logger: logger}
}

// GetCapabilities lists every selectable model slot with its metadata
// GET /api/models/capabilities
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"models": h.registry.ListAllModels(),
	})
}
