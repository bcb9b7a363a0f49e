package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"voicefirst-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// RateLimitResponse is returned when a request breaches a rate window.
type RateLimitResponse struct {
	Error         string `json:"error"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondServiceError maps service-layer errors onto HTTP statuses. Policy
// rejections never arrive here; they are ordinary return values upstream.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, "not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNotParticipant):
		respondError(w, "not a participant of this conversation", http.StatusForbidden)
	case errors.Is(err, services.ErrPhotoLimitReached):
		respondError(w, "photo limit reached", http.StatusConflict)
	case errors.Is(err, services.ErrPhotoNotApproved):
		respondError(w, "photo must be approved before becoming primary", http.StatusConflict)
	case errors.Is(err, services.ErrConflict):
		respondError(w, "conflicting concurrent update", http.StatusConflict)
	default:
		respondError(w, "internal server error", http.StatusInternalServerError)
	}
}
