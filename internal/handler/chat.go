package handler

import (
	"log/slog"
	"net/http"

	"jainn/internal/httputil"
	"jainn/internal/service"
)

// ChatHandler handles conversation history HTTP requests
type ChatHandler struct {
	history *service.HistoryService
	logger  *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(history *service.HistoryService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{history: history, logger: logger}
}

// ListChats retrieves all of the user's sessions
// GET /api/chats
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	chats, err := h.history.ListChats(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, chats)
}

// GetChat retrieves one session with its turns
// GET /api/chats/{id}
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	chatID := r.PathValue("id")
	if chatID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "chat ID is required")
		return
	}

	c, err := h.history.GetChat(r.Context(), chatID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, c)
}

// renameRequest is the body for a chat rename.
type renameRequest struct {
	Title string `json:"title"`
}

// RenameChat updates a session title
// PATCH /api/chats/{id}
func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	chatID := r.PathValue("id")
	if chatID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "chat ID is required")
		return
	}

	var req renameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.history.RenameChat(r.Context(), chatID, userID, req.Title); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteChat removes a session and its turns
// DELETE /api/chats/{id}
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	chatID := r.PathValue("id")
	if chatID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "chat ID is required")
		return
	}

	if err := h.history.DeleteChat(r.Context(), chatID, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetVerdict retrieves the referee's judgment for a multi turn. Clients
// poll this after a multi response renders; 404 means no verdict yet.
// GET /api/turns/{id}/verdict
func (h *ChatHandler) GetVerdict(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	turnID := r.PathValue("id")
	if turnID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "turn ID is required")
		return
	}

	verdict, err := h.history.GetVerdict(r.Context(), turnID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, verdict)
}
