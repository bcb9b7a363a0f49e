package handlers

import (
	"net/http"

	"voicefirst-backend/internal/middleware"
	"voicefirst-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ProfileHandler handles profile-completion HTTP requests
type ProfileHandler struct {
	profileService *services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// GetCompletion handles GET /api/v1/profile/completion
func (h *ProfileHandler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	completion, err := h.profileService.Evaluate(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to evaluate profile completion")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, completion)
}
