package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"voicefirst-backend/internal/middleware"
	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxUploadMemory = 6 * 1024 * 1024

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
	limiter      *services.RateLimiter
	hub          *services.WSHub
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService, limiter *services.RateLimiter, hub *services.WSHub) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
		limiter:      limiter,
		hub:          hub,
	}
}

// UploadPhotoResponse is the caller-facing upload contract. Storage paths
// never leak through it.
type UploadPhotoResponse struct {
	ID                   string   `json:"id"`
	URL                  string   `json:"url"`
	IsPrimary            bool     `json:"is_primary"`
	Approved             bool     `json:"approved"`
	ModerationStatus     string   `json:"moderation_status"`
	RejectionReason      string   `json:"rejection_reason,omitempty"`
	ModerationConfidence *float64 `json:"moderation_confidence,omitempty"`
	ModerationFlags      []string `json:"moderation_flags,omitempty"`
}

func uploadResponseFrom(photo *models.Photo) UploadPhotoResponse {
	resp := UploadPhotoResponse{
		ID:               photo.ID,
		URL:              photo.URL,
		IsPrimary:        photo.IsPrimary,
		Approved:         photo.Moderation.Status == models.ModerationApproved,
		ModerationStatus: string(photo.Moderation.Status),
	}
	if photo.Moderation.Status != models.ModerationApproved {
		resp.RejectionReason = photo.Moderation.Reason
		resp.ModerationFlags = photo.Moderation.Flags
	}
	confidence := photo.Moderation.Confidence
	resp.ModerationConfidence = &confidence
	return resp
}

// UploadPhoto handles POST /api/v1/photos
func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if allowed, retryAfter, err := h.limiter.Allow(ctx, userID); err != nil {
		log.Warn().Err(err).Msg("Rate limiter unavailable, allowing request")
	} else if !allowed {
		respondJSON(w, http.StatusTooManyRequests, RateLimitResponse{
			Error:         "too many uploads, slow down",
			RetryAfterSec: retryAfter,
		})
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, "photo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "failed to read photo file", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	isPrimary := r.FormValue("is_primary") == "true"

	photo, err := h.photoService.Upload(ctx, userID, data, mimeType, isPrimary)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to upload photo")
		respondServiceError(w, err)
		return
	}

	h.hub.NotifyPhotoModerated(userID, photo.ID, photo.Moderation.Status)

	respondJSON(w, http.StatusCreated, uploadResponseFrom(photo))
}

// GetPhotos handles GET /api/v1/photos
func (h *PhotoHandler) GetPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	photos, err := h.photoService.List(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list photos")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"photos": photos,
		"total":  len(photos),
	})
}

// DeletePhoto handles DELETE /api/v1/photos/{photo_id}
func (h *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	photoID := chi.URLParam(r, "photo_id")

	if err := h.photoService.Delete(ctx, userID, photoID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("photo_id", photoID).
			Msg("Failed to delete photo")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetPrimaryPhoto handles PUT /api/v1/photos/{photo_id}/primary
func (h *PhotoHandler) SetPrimaryPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	photoID := chi.URLParam(r, "photo_id")

	if err := h.photoService.SetPrimary(ctx, userID, photoID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("photo_id", photoID).
			Msg("Failed to set primary photo")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderRequest carries the desired photo id order.
type ReorderRequest struct {
	PhotoIDs []string `json:"photo_ids"`
}

// ReorderPhotos handles PUT /api/v1/photos/order
func (h *PhotoHandler) ReorderPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	photos, err := h.photoService.Reorder(ctx, userID, req.PhotoIDs)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to reorder photos")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"photos": photos})
}
