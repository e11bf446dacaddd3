package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
	"github.com/fleetlens/mrrpv-engine/pkg/services"
)

// ChatRequest for POST /api/chat.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatHandler handles conversational metric requests.
type ChatHandler struct {
	chat   *services.ChatService
	logger *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat *services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux, secret func(http.Handler) http.Handler) {
	mux.Handle("POST /api/chat", secret(http.HandlerFunc(h.SendMessage)))
}

// SendMessage handles POST /api/chat. One user message in, one grounded
// assistant reply out.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := h.chat.RunTurn(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode chat response", zap.Error(err))
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrRateLimited):
		_ = ErrorResponse(w, http.StatusTooManyRequests, "rate_limited", "too many requests for this conversation")
	case apperrors.IsInvalidParameter(err):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case apperrors.IsTimeout(err):
		_ = ErrorResponse(w, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		h.logger.Error("Chat turn failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "chat turn failed")
	}
}
