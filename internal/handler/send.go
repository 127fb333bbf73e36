package handler

import (
	"log/slog"
	"net/http"

	"jainn/internal/domain/models/chat"
	"jainn/internal/httputil"
	llmSvc "jainn/internal/service/llm"
)

// SendHandler handles prompt submissions and the operations attached to
// a delivered response.
type SendHandler struct {
	sends  *llmSvc.SendService
	logger *slog.Logger
}

// NewSendHandler creates a new send handler
func NewSendHandler(sends *llmSvc.SendService, logger *slog.Logger) *SendHandler {
	return &SendHandler{sends: sends, logger: logger}
}

// Send submits a prompt
// POST /api/send
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req llmSvc.SendRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = userID

	result, err := h.sends.Send(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	// Policy denials are data: 403 with the reason attached, so the
	// client can render the upgrade or limit message.
	if result.Denied != nil {
		httputil.RespondErrorWithExtras(w, http.StatusForbidden, result.Denied.Reason.Message(), map[string]interface{}{
			"reason":  result.Denied.Reason,
			"chat_id": result.ChatID,
		})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// winnerRequest is the body for a winner selection.
type winnerRequest struct {
	Model chat.ModelIdentity `json:"model"`
}

// SelectWinner records the winning model for a multi-response turn
// POST /api/turns/{id}/winner
func (h *SendHandler) SelectWinner(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	turnID := r.PathValue("id")
	if turnID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "turn ID is required")
		return
	}

	var req winnerRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := h.sends.SelectWinner(r.Context(), userID, turnID, req.Model)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, turn)
}

// modeRequest is the body for a mode switch check.
type modeRequest struct {
	Mode chat.Mode `json:"mode"`
}

// SwitchMode gates a chat mode change against the user's tier
// POST /api/mode
func (h *SendHandler) SwitchMode(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req modeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.sends.SwitchMode(r.Context(), userID, req.Mode)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, decision)
}
