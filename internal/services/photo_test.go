package services

import (
	"context"
	"errors"
	"testing"

	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePhotoStore mirrors the documented store contract in memory: primary
// demotion on insert, promotion by stored order on delete, and recomputation
// of the profile-level primary URL.
type fakePhotoStore struct {
	photos     []*models.Photo
	primaryURL *string
	insertErr  error
}

func (f *fakePhotoStore) recomputePrimaryURL() {
	f.primaryURL = nil
	for _, p := range f.photos {
		if p.IsPrimary && p.Moderation.Status == models.ModerationApproved {
			url := p.URL
			f.primaryURL = &url
			return
		}
	}
}

func (f *fakePhotoStore) CountNonRejected(_ context.Context, _ string) (int, error) {
	count := 0
	for _, p := range f.photos {
		if p.Moderation.Status != models.ModerationRejected {
			count++
		}
	}
	return count, nil
}

func (f *fakePhotoStore) Insert(ctx context.Context, photo *models.Photo, makePrimary bool, maxPhotos int) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	count, _ := f.CountNonRejected(ctx, photo.UserID)
	if photo.Moderation.Status != models.ModerationRejected && count >= maxPhotos {
		return ErrPhotoLimitReached
	}
	if makePrimary {
		for _, p := range f.photos {
			p.IsPrimary = false
		}
	}
	photo.IsPrimary = makePrimary
	photo.Position = len(f.photos) + 1
	f.photos = append(f.photos, photo)
	f.recomputePrimaryURL()
	return nil
}

func (f *fakePhotoStore) GetByID(_ context.Context, _, photoID string) (*models.Photo, error) {
	for _, p := range f.photos {
		if p.ID == photoID {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakePhotoStore) List(_ context.Context, _ string) ([]*models.Photo, error) {
	out := make([]*models.Photo, len(f.photos))
	copy(out, f.photos)
	return out, nil
}

func (f *fakePhotoStore) Delete(_ context.Context, _, photoID string) error {
	idx := -1
	for i, p := range f.photos {
		if p.ID == photoID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	wasPrimary := f.photos[idx].IsPrimary
	f.photos = append(f.photos[:idx], f.photos[idx+1:]...)
	if wasPrimary {
		for _, p := range f.photos {
			if p.Moderation.Status == models.ModerationApproved {
				p.IsPrimary = true
				break
			}
		}
	}
	f.recomputePrimaryURL()
	return nil
}

func (f *fakePhotoStore) SetPrimary(_ context.Context, _, photoID string) error {
	var target *models.Photo
	for _, p := range f.photos {
		if p.ID == photoID {
			target = p
			break
		}
	}
	if target == nil {
		return ErrNotFound
	}
	if target.Moderation.Status != models.ModerationApproved {
		return ErrPhotoNotApproved
	}
	for _, p := range f.photos {
		p.IsPrimary = false
	}
	target.IsPrimary = true
	f.recomputePrimaryURL()
	return nil
}

func (f *fakePhotoStore) Reorder(_ context.Context, _ string, photoIDs []string) ([]*models.Photo, error) {
	byID := make(map[string]*models.Photo, len(f.photos))
	for _, p := range f.photos {
		byID[p.ID] = p
	}
	var ordered []*models.Photo
	seen := make(map[string]bool)
	for _, id := range photoIDs {
		if p, ok := byID[id]; ok && !seen[id] {
			ordered = append(ordered, p)
			seen[id] = true
		}
	}
	for _, p := range f.photos {
		if !seen[p.ID] {
			ordered = append(ordered, p)
		}
	}
	for i, p := range ordered {
		p.Position = i + 1
	}
	f.photos = ordered
	return f.List(context.Background(), "")
}

type fakeObjectStorage struct {
	writes    map[string][]byte
	removed   []string
	writeErr  error
	removeErr error
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{writes: make(map[string][]byte)}
}

func (f *fakeObjectStorage) Write(_ context.Context, path string, data []byte, _ string) (string, error) {
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.writes[path] = data
	return "https://cdn.test/" + path, nil
}

func (f *fakeObjectStorage) Remove(_ context.Context, path string) error {
	f.removed = append(f.removed, path)
	return f.removeErr
}

type fakeModerator struct {
	result models.ModerationResult
}

func (f *fakeModerator) Moderate(_ context.Context, _ moderation.ContentKind, _ string) models.ModerationResult {
	return f.result
}

// fallbackOnlyModerator runs the real moderation service with the classifier
// unreachable, matching the behavior when the external API is down.
func fallbackOnlyModerator() *moderation.Service {
	return moderation.NewService(nil, moderation.NewFallback(nil))
}

func approvedModerator() *fakeModerator {
	return &fakeModerator{result: models.ModerationResult{
		Status:     models.ModerationApproved,
		Confidence: 0.95,
		Flags:      []string{},
	}}
}

func TestUploadFirstPhotoBecomesPrimary(t *testing.T) {
	store := &fakePhotoStore{}
	objects := newFakeObjectStorage()
	svc := NewPhotoService(store, objects, fallbackOnlyModerator())

	photo, err := svc.Upload(context.Background(), "user-1", make([]byte, 2*1024*1024), "image/jpeg", false)
	require.NoError(t, err)

	assert.True(t, photo.IsPrimary)
	assert.Equal(t, models.ModerationApproved, photo.Moderation.Status)
	assert.Equal(t, 0.5, photo.Moderation.Confidence)
	require.NotNil(t, store.primaryURL)
	assert.Equal(t, photo.URL, *store.primaryURL)
}

func TestUploadRequestedPrimaryDemotesPrevious(t *testing.T) {
	store := &fakePhotoStore{}
	objects := newFakeObjectStorage()
	svc := NewPhotoService(store, objects, fallbackOnlyModerator())

	first, err := svc.Upload(context.Background(), "user-1", []byte("a"), "image/jpeg", false)
	require.NoError(t, err)
	require.True(t, first.IsPrimary)

	second, err := svc.Upload(context.Background(), "user-1", []byte("b"), "image/jpeg", true)
	require.NoError(t, err)

	assert.True(t, second.IsPrimary)
	assert.False(t, store.photos[0].IsPrimary)
	require.NotNil(t, store.primaryURL)
	assert.Equal(t, second.URL, *store.primaryURL)
}

func TestUploadRejectsBadMimeBeforeStorageWrite(t *testing.T) {
	store := &fakePhotoStore{}
	objects := newFakeObjectStorage()
	svc := NewPhotoService(store, objects, fallbackOnlyModerator())

	_, err := svc.Upload(context.Background(), "user-1", []byte("gif89a"), "image/gif", false)
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, objects.writes)
	assert.Empty(t, store.photos)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := NewPhotoService(&fakePhotoStore{}, newFakeObjectStorage(), fallbackOnlyModerator())

	_, err := svc.Upload(context.Background(), "user-1", make([]byte, 5*1024*1024+1), "image/jpeg", false)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUploadEnforcesPhotoLimit(t *testing.T) {
	store := &fakePhotoStore{}
	objects := newFakeObjectStorage()
	svc := NewPhotoService(store, objects, fallbackOnlyModerator())

	for i := 0; i < MaxPhotos; i++ {
		_, err := svc.Upload(context.Background(), "user-1", []byte("x"), "image/jpeg", false)
		require.NoError(t, err)
	}

	writesBefore := len(objects.writes)
	_, err := svc.Upload(context.Background(), "user-1", []byte("x"), "image/jpeg", false)
	require.ErrorIs(t, err, ErrPhotoLimitReached)
	assert.Len(t, objects.writes, writesBefore, "limit rejection must precede the storage write")
}

func TestUploadCleansUpObjectOnInsertFailure(t *testing.T) {
	store := &fakePhotoStore{insertErr: errors.New("db down")}
	objects := newFakeObjectStorage()
	svc := NewPhotoService(store, objects, fallbackOnlyModerator())

	_, err := svc.Upload(context.Background(), "user-1", []byte("x"), "image/jpeg", false)
	require.Error(t, err)
	require.Len(t, objects.removed, 1)
}

func TestUploadRejectedPhotoNeverPrimary(t *testing.T) {
	rejecting := &fakeModerator{result: models.ModerationResult{
		Status:     models.ModerationRejected,
		Confidence: 1.0,
		Flags:      []string{"high_sexual"},
		Reason:     "content failed safety screening",
	}}
	store := &fakePhotoStore{}
	svc := NewPhotoService(store, newFakeObjectStorage(), rejecting)

	photo, err := svc.Upload(context.Background(), "user-1", []byte("x"), "image/jpeg", true)
	require.NoError(t, err)

	assert.False(t, photo.IsPrimary)
	assert.Equal(t, models.ModerationRejected, photo.Moderation.Status)
	assert.Nil(t, store.primaryURL)
}

func TestDeletePrimaryPromotesNextApproved(t *testing.T) {
	store := &fakePhotoStore{}
	objects := newFakeObjectStorage()
	svc := NewPhotoService(store, objects, fallbackOnlyModerator())

	first, err := svc.Upload(context.Background(), "user-1", []byte("a"), "image/jpeg", false)
	require.NoError(t, err)
	second, err := svc.Upload(context.Background(), "user-1", []byte("b"), "image/jpeg", false)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "user-1", first.ID))

	assert.Contains(t, objects.removed, first.StoragePath)
	assert.True(t, store.photos[0].IsPrimary)
	require.NotNil(t, store.primaryURL)
	assert.Equal(t, second.URL, *store.primaryURL)
}

func TestDeleteLastPhotoClearsPrimaryURL(t *testing.T) {
	store := &fakePhotoStore{}
	svc := NewPhotoService(store, newFakeObjectStorage(), fallbackOnlyModerator())

	photo, err := svc.Upload(context.Background(), "user-1", []byte("a"), "image/jpeg", false)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "user-1", photo.ID))
	assert.Empty(t, store.photos)
	assert.Nil(t, store.primaryURL)
}

func TestDeleteContinuesWhenStorageRemovalFails(t *testing.T) {
	store := &fakePhotoStore{}
	objects := newFakeObjectStorage()
	svc := NewPhotoService(store, objects, fallbackOnlyModerator())

	photo, err := svc.Upload(context.Background(), "user-1", []byte("a"), "image/jpeg", false)
	require.NoError(t, err)

	objects.removeErr = errors.New("storage down")
	require.NoError(t, svc.Delete(context.Background(), "user-1", photo.ID))
	assert.Empty(t, store.photos)
}

func TestSetPrimaryRefusesUnapprovedPhoto(t *testing.T) {
	pending := &fakeModerator{result: models.ModerationResult{
		Status:     models.ModerationManualReview,
		Confidence: 0.7,
		Flags:      []string{"medium_violence"},
	}}
	store := &fakePhotoStore{}
	svc := NewPhotoService(store, newFakeObjectStorage(), pending)

	photo, err := svc.Upload(context.Background(), "user-1", []byte("x"), "image/jpeg", false)
	require.NoError(t, err)

	err = svc.SetPrimary(context.Background(), "user-1", photo.ID)
	require.ErrorIs(t, err, ErrPhotoNotApproved)
}

func TestReorderIsIdempotentAndKeepsOmittedIDs(t *testing.T) {
	store := &fakePhotoStore{}
	svc := NewPhotoService(store, newFakeObjectStorage(), fallbackOnlyModerator())

	var ids []string
	for i := 0; i < 3; i++ {
		photo, err := svc.Upload(context.Background(), "user-1", []byte{byte(i)}, "image/jpeg", false)
		require.NoError(t, err)
		ids = append(ids, photo.ID)
	}

	// Omit the first id; it must end up appended, not dropped.
	want := []string{ids[2], ids[1], ids[0]}

	photos, err := svc.Reorder(context.Background(), "user-1", []string{ids[2], ids[1]})
	require.NoError(t, err)
	require.Len(t, photos, 3)
	for i, p := range photos {
		assert.Equal(t, want[i], p.ID)
		assert.Equal(t, i+1, p.Position)
	}

	again, err := svc.Reorder(context.Background(), "user-1", []string{ids[2], ids[1]})
	require.NoError(t, err)
	for i, p := range again {
		assert.Equal(t, want[i], p.ID)
	}
}
