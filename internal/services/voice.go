package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	minVoiceDurationSeconds = 5
	maxVoiceDurationSeconds = 30
	maxVoiceSizeBytes       = 10 * 1024 * 1024
)

// allowedVoiceMimeTypes maps accepted audio MIME types to their storage
// extension.
var allowedVoiceMimeTypes = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/aac":  ".aac",
	"audio/webm": ".webm",
	"audio/wav":  ".wav",
}

// VoiceStore is the persistence contract for voice introductions.
type VoiceStore interface {
	Insert(ctx context.Context, intro *models.VoiceIntro) error
	GetActive(ctx context.Context, userID string) (*models.VoiceIntro, error)
}

// VoiceService tracks a user's single active voice introduction and derives
// the messaging admission decision from its processing state.
type VoiceService struct {
	store   VoiceStore
	storage storage.ObjectStorage
}

// NewVoiceService creates a new voice service
func NewVoiceService(store VoiceStore, objectStorage storage.ObjectStorage) *VoiceService {
	return &VoiceService{
		store:   store,
		storage: objectStorage,
	}
}

// Submit stores a new recording and registers it as the user's active intro
// in pending state, superseding any previous one.
func (s *VoiceService) Submit(ctx context.Context, userID string, data []byte, mimeType string, durationSeconds int) (*models.VoiceIntro, error) {
	ext, ok := allowedVoiceMimeTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported audio type %q", ErrValidation, mimeType)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if len(data) > maxVoiceSizeBytes {
		return nil, fmt.Errorf("%w: file exceeds 10MB limit", ErrValidation)
	}
	if durationSeconds < minVoiceDurationSeconds || durationSeconds > maxVoiceDurationSeconds {
		return nil, fmt.Errorf("%w: duration must be between %d and %d seconds",
			ErrValidation, minVoiceDurationSeconds, maxVoiceDurationSeconds)
	}

	introID := uuid.New().String()
	storagePath := fmt.Sprintf("users/%s/voice/%s%s", userID, introID, ext)

	url, err := s.storage.Write(ctx, storagePath, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to store voice intro: %w", err)
	}

	intro := &models.VoiceIntro{
		ID:               introID,
		UserID:           userID,
		URL:              url,
		StoragePath:      storagePath,
		DurationSeconds:  durationSeconds,
		ProcessingStatus: models.ProcessingPending,
		IsActive:         true,
		CreatedAt:        time.Now(),
	}

	if err := s.store.Insert(ctx, intro); err != nil {
		if removeErr := s.storage.Remove(ctx, storagePath); removeErr != nil {
			log.Warn().
				Err(removeErr).
				Str("storage_path", storagePath).
				Msg("Failed to clean up voice object after insert failure")
		}
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("voice_intro_id", introID).
		Int("duration_seconds", durationSeconds).
		Msg("Voice intro submitted")

	return intro, nil
}

// Status returns the user's active voice introduction.
func (s *VoiceService) Status(ctx context.Context, userID string) (*models.VoiceIntro, error) {
	return s.store.GetActive(ctx, userID)
}

// CheckGating derives the messaging admission decision from the active voice
// introduction's processing state. Unknown statuses and lookup failures both
// fail closed: when uncertain, a message is blocked, never let through.
func (s *VoiceService) CheckGating(ctx context.Context, userID string) models.AdmissionDecision {
	intro, err := s.store.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.AdmissionDecision{
				Allowed:       false,
				HasVoiceIntro: false,
				Reason:        "Voice intro required before messaging",
			}
		}
		log.Error().
			Err(err).
			Str("user_id", userID).
			Msg("Voice gating lookup failed, denying")
		return models.AdmissionDecision{
			Allowed:       false,
			HasVoiceIntro: false,
			Reason:        "Unable to verify voice introduction status",
		}
	}

	switch intro.ProcessingStatus {
	case models.ProcessingPending, models.ProcessingActive:
		return models.AdmissionDecision{
			Allowed:          false,
			HasVoiceIntro:    true,
			Reason:           "Voice introduction is still processing, try again shortly",
			ProcessingStatus: string(intro.ProcessingStatus),
		}
	case models.ProcessingFailed:
		return models.AdmissionDecision{
			Allowed:          false,
			HasVoiceIntro:    true,
			Reason:           "Voice introduction processing failed, please re-record",
			ProcessingStatus: string(intro.ProcessingStatus),
		}
	case models.ProcessingCompleted:
		return models.AdmissionDecision{
			Allowed:          true,
			HasVoiceIntro:    true,
			ProcessingStatus: string(intro.ProcessingStatus),
		}
	default:
		return models.AdmissionDecision{
			Allowed:          false,
			HasVoiceIntro:    true,
			Reason:           "Voice introduction is in an unexpected state",
			ProcessingStatus: string(intro.ProcessingStatus),
		}
	}
}
