package workers

import (
	"context"
	"time"

	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/moderation"

	"github.com/rs/zerolog/log"
)

const claimBatchSize = 10

// VoiceQueue is the claim/resolve contract over pending voice intros.
type VoiceQueue interface {
	ClaimPending(ctx context.Context, limit int) ([]*models.VoiceIntro, error)
	Complete(ctx context.Context, id, transcription string) error
	Fail(ctx context.Context, id string) error
}

// Transcriber turns an audio URL into text.
type Transcriber interface {
	Configured() bool
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// TextModerator screens the transcript before the intro is accepted.
type TextModerator interface {
	Moderate(ctx context.Context, kind moderation.ContentKind, payload string) models.ModerationResult
}

// Events receives terminal processing notifications for connected clients.
type Events interface {
	NotifyVoiceProcessed(userID, introID string, status models.ProcessingStatus)
}

// Pusher delivers out-of-band push notifications.
type Pusher interface {
	VoiceProcessed(ctx context.Context, userID string, status models.ProcessingStatus)
}

// VoiceWorker drives pending voice introductions through transcription and
// transcript screening to a terminal state. When no transcription service is
// configured the worker stays idle and an out-of-band job owns the
// transitions instead.
type VoiceWorker struct {
	queue       VoiceQueue
	transcriber Transcriber
	moderator   TextModerator
	events      Events
	pusher      Pusher
	interval    time.Duration
}

// NewVoiceWorker creates a new voice worker
func NewVoiceWorker(queue VoiceQueue, transcriber Transcriber, moderator TextModerator, events Events, pusher Pusher, interval time.Duration) *VoiceWorker {
	return &VoiceWorker{
		queue:       queue,
		transcriber: transcriber,
		moderator:   moderator,
		events:      events,
		pusher:      pusher,
		interval:    interval,
	}
}

// Start runs the worker loop until the context is cancelled.
func (w *VoiceWorker) Start(ctx context.Context) {
	if w.transcriber == nil || !w.transcriber.Configured() {
		log.Info().Msg("Transcription service not configured, voice worker disabled")
		return
	}

	go w.run(ctx)
}

func (w *VoiceWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Voice worker stopped")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *VoiceWorker) processBatch(ctx context.Context) {
	intros, err := w.queue.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to claim pending voice intros")
		return
	}

	for _, intro := range intros {
		w.process(ctx, intro)
	}
}

func (w *VoiceWorker) process(ctx context.Context, intro *models.VoiceIntro) {
	transcript, err := w.transcriber.Transcribe(ctx, intro.URL)
	if err != nil {
		log.Warn().
			Err(err).
			Str("voice_intro_id", intro.ID).
			Msg("Transcription failed")
		w.resolve(ctx, intro, models.ProcessingFailed, "")
		return
	}

	result := w.moderator.Moderate(ctx, moderation.KindText, transcript)
	if result.Status == models.ModerationRejected {
		log.Info().
			Str("voice_intro_id", intro.ID).
			Strs("flags", result.Flags).
			Msg("Voice transcript rejected by moderation")
		w.resolve(ctx, intro, models.ProcessingFailed, "")
		return
	}

	w.resolve(ctx, intro, models.ProcessingCompleted, transcript)
}

func (w *VoiceWorker) resolve(ctx context.Context, intro *models.VoiceIntro, status models.ProcessingStatus, transcript string) {
	var err error
	if status == models.ProcessingCompleted {
		err = w.queue.Complete(ctx, intro.ID, transcript)
	} else {
		err = w.queue.Fail(ctx, intro.ID)
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("voice_intro_id", intro.ID).
			Msg("Failed to record voice processing outcome")
		return
	}

	log.Info().
		Str("voice_intro_id", intro.ID).
		Str("user_id", intro.UserID).
		Str("status", string(status)).
		Msg("Voice intro processed")

	if w.events != nil {
		w.events.NotifyVoiceProcessed(intro.UserID, intro.ID, status)
	}
	if w.pusher != nil {
		w.pusher.VoiceProcessed(ctx, intro.UserID, status)
	}
}
