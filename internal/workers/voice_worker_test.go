package workers

import (
	"context"
	"errors"
	"testing"

	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	pending    []*models.VoiceIntro
	completed  map[string]string
	failed     []string
	resolveErr error
}

func newFakeQueue(intros ...*models.VoiceIntro) *fakeQueue {
	return &fakeQueue{pending: intros, completed: make(map[string]string)}
}

func (f *fakeQueue) ClaimPending(_ context.Context, limit int) ([]*models.VoiceIntro, error) {
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	claimed := f.pending[:limit]
	f.pending = f.pending[limit:]
	return claimed, nil
}

func (f *fakeQueue) Complete(_ context.Context, id, transcription string) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.completed[id] = transcription
	return nil
}

func (f *fakeQueue) Fail(_ context.Context, id string) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.failed = append(f.failed, id)
	return nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Configured() bool { return true }

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

type fakeTextModerator struct {
	result models.ModerationResult
}

func (f *fakeTextModerator) Moderate(_ context.Context, _ moderation.ContentKind, _ string) models.ModerationResult {
	return f.result
}

type recordingEvents struct {
	notified map[string]models.ProcessingStatus
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{notified: make(map[string]models.ProcessingStatus)}
}

func (r *recordingEvents) NotifyVoiceProcessed(_, introID string, status models.ProcessingStatus) {
	r.notified[introID] = status
}

type recordingPusher struct {
	pushed map[string]models.ProcessingStatus
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{pushed: make(map[string]models.ProcessingStatus)}
}

func (r *recordingPusher) VoiceProcessed(_ context.Context, userID string, status models.ProcessingStatus) {
	r.pushed[userID] = status
}

func pendingIntro(id string) *models.VoiceIntro {
	return &models.VoiceIntro{
		ID:               id,
		UserID:           "user-1",
		URL:              "https://cdn.test/users/user-1/voice/" + id + ".mp3",
		ProcessingStatus: models.ProcessingActive,
		IsActive:         true,
	}
}

func TestProcessBatchCompletesCleanTranscript(t *testing.T) {
	queue := newFakeQueue(pendingIntro("v1"))
	events := newRecordingEvents()
	pusher := newRecordingPusher()
	worker := NewVoiceWorker(queue,
		&fakeTranscriber{text: "hi, I love hiking and bad puns"},
		&fakeTextModerator{result: models.ModerationResult{Status: models.ModerationApproved}},
		events, pusher, 0)

	worker.processBatch(context.Background())

	require.Equal(t, "hi, I love hiking and bad puns", queue.completed["v1"])
	assert.Empty(t, queue.failed)
	assert.Equal(t, models.ProcessingCompleted, events.notified["v1"])
	assert.Equal(t, models.ProcessingCompleted, pusher.pushed["user-1"])
}

func TestProcessBatchFailsOnTranscriptionError(t *testing.T) {
	queue := newFakeQueue(pendingIntro("v1"))
	events := newRecordingEvents()
	worker := NewVoiceWorker(queue,
		&fakeTranscriber{err: errors.New("upstream timeout")},
		&fakeTextModerator{}, events, nil, 0)

	worker.processBatch(context.Background())

	assert.Equal(t, []string{"v1"}, queue.failed)
	assert.Empty(t, queue.completed)
	assert.Equal(t, models.ProcessingFailed, events.notified["v1"])
}

func TestProcessBatchFailsOnRejectedTranscript(t *testing.T) {
	queue := newFakeQueue(pendingIntro("v1"))
	worker := NewVoiceWorker(queue,
		&fakeTranscriber{text: "objectionable"},
		&fakeTextModerator{result: models.ModerationResult{
			Status: models.ModerationRejected,
			Flags:  []string{"high_harassment"},
		}},
		nil, nil, 0)

	worker.processBatch(context.Background())

	assert.Equal(t, []string{"v1"}, queue.failed)
	assert.Empty(t, queue.completed)
}

// Flagged-but-not-rejected transcripts complete normally; manual review
// happens out of band and must not strand the intro in processing.
func TestProcessBatchCompletesFlaggedTranscript(t *testing.T) {
	queue := newFakeQueue(pendingIntro("v1"))
	fallback := moderation.NewService(nil, moderation.NewFallback(nil))
	worker := NewVoiceWorker(queue,
		&fakeTranscriber{text: "find me on onlyfans"},
		fallback, nil, nil, 0)

	worker.processBatch(context.Background())

	assert.Contains(t, queue.completed, "v1")
}

func TestProcessBatchHandlesMultipleIntros(t *testing.T) {
	queue := newFakeQueue(pendingIntro("v1"), pendingIntro("v2"), pendingIntro("v3"))
	worker := NewVoiceWorker(queue,
		&fakeTranscriber{text: "hello"},
		&fakeTextModerator{result: models.ModerationResult{Status: models.ModerationApproved}},
		nil, nil, 0)

	worker.processBatch(context.Background())

	assert.Len(t, queue.completed, 3)
	assert.Empty(t, queue.pending)
}
