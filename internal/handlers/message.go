package handlers

import (
	"encoding/json"
	"net/http"

	"voicefirst-backend/internal/middleware"
	"voicefirst-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles message-send HTTP requests
type MessageHandler struct {
	messageService *services.MessageService
	limiter        *services.RateLimiter
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *services.MessageService, limiter *services.RateLimiter) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		limiter:        limiter,
	}
}

// SendMessageRequest carries the message body.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// GateRejectionResponse is the caller-facing contract for a denied gate.
// The reason and processing status pass through verbatim so the client can
// render the right remediation UI.
type GateRejectionResponse struct {
	Error                 string `json:"error"`
	RequiresVoiceIntro    bool   `json:"requires_voice_intro"`
	VoiceProcessingStatus string `json:"voice_processing_status,omitempty"`
}

// SendMessage handles POST /api/v1/conversations/{conversation_id}/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "conversation_id")

	if allowed, retryAfter, err := h.limiter.Allow(ctx, userID); err != nil {
		log.Warn().Err(err).Msg("Rate limiter unavailable, allowing request")
	} else if !allowed {
		respondJSON(w, http.StatusTooManyRequests, RateLimitResponse{
			Error:         "too many messages, slow down",
			RetryAfterSec: retryAfter,
		})
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, decision, err := h.messageService.Send(ctx, userID, conversationID, req.Content)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("conversation_id", conversationID).
			Msg("Failed to send message")
		respondServiceError(w, err)
		return
	}

	if msg == nil {
		respondJSON(w, http.StatusForbidden, GateRejectionResponse{
			Error:                 decision.Reason,
			RequiresVoiceIntro:    !decision.HasVoiceIntro,
			VoiceProcessingStatus: decision.ProcessingStatus,
		})
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}
