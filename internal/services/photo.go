package services

import (
	"context"
	"fmt"
	"time"

	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/moderation"
	"voicefirst-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// MaxPhotos is the ceiling on non-rejected photos per user.
	MaxPhotos = 6

	maxPhotoSizeBytes = 5 * 1024 * 1024
)

// allowedPhotoMimeTypes maps accepted MIME types to their storage extension.
var allowedPhotoMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoStore is the persistence contract for the photo lifecycle.
type PhotoStore interface {
	CountNonRejected(ctx context.Context, userID string) (int, error)
	Insert(ctx context.Context, photo *models.Photo, makePrimary bool, maxPhotos int) error
	GetByID(ctx context.Context, userID, photoID string) (*models.Photo, error)
	List(ctx context.Context, userID string) ([]*models.Photo, error)
	Delete(ctx context.Context, userID, photoID string) error
	SetPrimary(ctx context.Context, userID, photoID string) error
	Reorder(ctx context.Context, userID string, photoIDs []string) ([]*models.Photo, error)
}

// Moderator resolves a payload to a concrete moderation result.
type Moderator interface {
	Moderate(ctx context.Context, kind moderation.ContentKind, payload string) models.ModerationResult
}

// PhotoService owns the collection of a user's submitted photos: count
// ceiling, primary selection, reordering and deletion, with every photo
// persisted only after its moderation result is resolved.
type PhotoService struct {
	store     PhotoStore
	storage   storage.ObjectStorage
	moderator Moderator
}

// NewPhotoService creates a new photo service
func NewPhotoService(store PhotoStore, objectStorage storage.ObjectStorage, moderator Moderator) *PhotoService {
	return &PhotoService{
		store:     store,
		storage:   objectStorage,
		moderator: moderator,
	}
}

// Upload validates, stores and moderates a new photo. Validation failures
// reject before any storage write. The photo becomes primary when requested,
// or when it is the user's first, provided moderation approved it.
func (s *PhotoService) Upload(ctx context.Context, userID string, data []byte, mimeType string, isPrimaryRequested bool) (*models.Photo, error) {
	ext, ok := allowedPhotoMimeTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %q", ErrValidation, mimeType)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if len(data) > maxPhotoSizeBytes {
		return nil, fmt.Errorf("%w: file exceeds 5MB limit", ErrValidation)
	}

	count, err := s.store.CountNonRejected(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count photos: %w", err)
	}
	if count >= MaxPhotos {
		return nil, ErrPhotoLimitReached
	}

	photoID := uuid.New().String()
	storagePath := fmt.Sprintf("users/%s/photos/%s%s", userID, photoID, ext)

	url, err := s.storage.Write(ctx, storagePath, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	result := s.moderator.Moderate(ctx, moderation.KindImage, url)

	photo := &models.Photo{
		ID:            photoID,
		UserID:        userID,
		URL:           url,
		StoragePath:   storagePath,
		MimeType:      mimeType,
		FileSizeBytes: int64(len(data)),
		Moderation:    result,
		UploadedAt:    time.Now(),
	}

	makePrimary := result.Status == models.ModerationApproved && (isPrimaryRequested || count == 0)

	if err := s.store.Insert(ctx, photo, makePrimary, MaxPhotos); err != nil {
		if removeErr := s.storage.Remove(ctx, storagePath); removeErr != nil {
			log.Warn().
				Err(removeErr).
				Str("storage_path", storagePath).
				Msg("Failed to clean up photo object after insert failure")
		}
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("photo_id", photoID).
		Str("moderation_status", string(result.Status)).
		Bool("is_primary", photo.IsPrimary).
		Msg("Photo uploaded")

	return photo, nil
}

// Delete removes the storage object best-effort, then the record. Storage
// failures are logged, not fatal to the metadata removal.
func (s *PhotoService) Delete(ctx context.Context, userID, photoID string) error {
	photo, err := s.store.GetByID(ctx, userID, photoID)
	if err != nil {
		return err
	}

	if err := s.storage.Remove(ctx, photo.StoragePath); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID).
			Str("photo_id", photoID).
			Msg("Failed to remove photo object, continuing with record removal")
	}

	return s.store.Delete(ctx, userID, photoID)
}

// SetPrimary promotes the photo; unapproved photos are refused.
func (s *PhotoService) SetPrimary(ctx context.Context, userID, photoID string) error {
	return s.store.SetPrimary(ctx, userID, photoID)
}

// Reorder re-sequences the user's photos to the given id order. Stored ids
// missing from the input end up appended, not dropped.
func (s *PhotoService) Reorder(ctx context.Context, userID string, photoIDs []string) ([]*models.Photo, error) {
	if len(photoIDs) == 0 {
		return nil, fmt.Errorf("%w: photo id list is empty", ErrValidation)
	}
	return s.store.Reorder(ctx, userID, photoIDs)
}

// List returns the user's photos in stored order.
func (s *PhotoService) List(ctx context.Context, userID string) ([]*models.Photo, error) {
	return s.store.List(ctx, userID)
}
