package handlers

import (
	"io"
	"net/http"
	"strconv"

	"voicefirst-backend/internal/middleware"
	"voicefirst-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// VoiceHandler handles voice-introduction HTTP requests
type VoiceHandler struct {
	voiceService *services.VoiceService
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(voiceService *services.VoiceService) *VoiceHandler {
	return &VoiceHandler{voiceService: voiceService}
}

// SubmitVoiceIntro handles POST /api/v1/voice
func (h *VoiceHandler) SubmitVoiceIntro(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, "audio file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "failed to read audio file", http.StatusBadRequest)
		return
	}

	duration, err := strconv.Atoi(r.FormValue("duration_seconds"))
	if err != nil {
		respondError(w, "duration_seconds is required", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	intro, err := h.voiceService.Submit(ctx, userID, data, mimeType, duration)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to submit voice intro")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, intro)
}

// GetVoiceStatus handles GET /api/v1/voice
func (h *VoiceHandler) GetVoiceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	intro, err := h.voiceService.Status(ctx, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, intro)
}
