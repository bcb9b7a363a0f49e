package services

import (
	"context"

	"voicefirst-backend/internal/models"

	"golang.org/x/sync/errgroup"
)

// PhotoChecker reports approved-photo existence.
type PhotoChecker interface {
	HasApprovedPhoto(ctx context.Context, userID string) (bool, error)
}

// VoiceChecker reports completed-voice existence.
type VoiceChecker interface {
	HasCompleted(ctx context.Context, userID string) (bool, error)
}

// ProfileService aggregates photo and voice state into the two derived flags
// consumed by discovery and messaging surfaces. The flags are intentionally
// decoupled: a user can be discoverable without being messageable.
type ProfileService struct {
	photos PhotoChecker
	voice  VoiceChecker
}

// NewProfileService creates a new profile service
func NewProfileService(photos PhotoChecker, voice VoiceChecker) *ProfileService {
	return &ProfileService{
		photos: photos,
		voice:  voice,
	}
}

// Evaluate runs the two unrelated lookups concurrently.
func (s *ProfileService) Evaluate(ctx context.Context, userID string) (*models.ProfileCompletion, error) {
	var hasPhoto, hasVoice bool

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hasPhoto, err = s.photos.HasApprovedPhoto(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		hasVoice, err = s.voice.HasCompleted(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.ProfileCompletion{
		HasApprovedPhoto:  hasPhoto,
		HasCompletedVoice: hasVoice,
		CanMessage:        hasVoice,
		CanBeDiscovered:   hasPhoto,
	}, nil
}
