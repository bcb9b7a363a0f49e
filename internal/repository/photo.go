package repository

import (
	"context"
	"errors"
	"fmt"

	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const photoColumns = `id, user_id, url, storage_path, is_primary, position, mime_type,
		file_size_bytes, moderation_status, moderation_confidence, moderation_flags,
		moderation_reason, uploaded_at`

// PhotoRepository handles database operations for photos. Every mutating
// operation runs in a transaction that first locks the owning user row, so
// concurrent read-modify-write sequences for the same user serialize instead
// of clobbering each other.
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var photo models.Photo
	var reason *string
	err := row.Scan(
		&photo.ID, &photo.UserID, &photo.URL, &photo.StoragePath, &photo.IsPrimary,
		&photo.Position, &photo.MimeType, &photo.FileSizeBytes,
		&photo.Moderation.Status, &photo.Moderation.Confidence, &photo.Moderation.Flags,
		&reason, &photo.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		photo.Moderation.Reason = *reason
	}
	return &photo, nil
}

// lockUser serializes per-user photo mutations on the users row.
func lockUser(ctx context.Context, tx pgx.Tx, userID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return services.ErrNotFound
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

// recomputePrimaryURL sets users.primary_photo_url to the URL of the unique
// approved-and-primary photo, or null if none exists.
func recomputePrimaryURL(ctx context.Context, tx pgx.Tx, userID string) error {
	query := `
		UPDATE users
		SET primary_photo_url = (
			SELECT url FROM photos
			WHERE user_id = $1 AND is_primary AND moderation_status = 'approved'
			LIMIT 1
		)
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to recompute primary photo url: %w", err)
	}
	return nil
}

// CountNonRejected counts the user's photos that have not been rejected.
func (r *PhotoRepository) CountNonRejected(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM photos WHERE user_id = $1 AND moderation_status != 'rejected'`
	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return count, nil
}

// Insert persists a photo. When makePrimary is set, every other photo of the
// user is demoted first. The non-rejected count limit is re-checked inside
// the transaction; a concurrent upload that got there first surfaces as
// ErrPhotoLimitReached rather than a silent overwrite.
func (r *PhotoRepository) Insert(ctx context.Context, photo *models.Photo, makePrimary bool, maxPhotos int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockUser(ctx, tx, photo.UserID); err != nil {
		return err
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM photos WHERE user_id = $1 AND moderation_status != 'rejected'`,
		photo.UserID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count photos: %w", err)
	}
	if photo.Moderation.Status != models.ModerationRejected && count >= maxPhotos {
		return services.ErrPhotoLimitReached
	}

	if makePrimary {
		if _, err := tx.Exec(ctx,
			`UPDATE photos SET is_primary = false WHERE user_id = $1 AND is_primary`,
			photo.UserID,
		); err != nil {
			return fmt.Errorf("failed to demote primary photos: %w", err)
		}
	}
	photo.IsPrimary = makePrimary

	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM photos WHERE user_id = $1`,
		photo.UserID,
	).Scan(&photo.Position)
	if err != nil {
		return fmt.Errorf("failed to compute photo position: %w", err)
	}

	query := `
		INSERT INTO photos (id, user_id, url, storage_path, is_primary, position, mime_type,
			file_size_bytes, moderation_status, moderation_confidence, moderation_flags,
			moderation_reason, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	var reason *string
	if photo.Moderation.Reason != "" {
		reason = &photo.Moderation.Reason
	}
	_, err = tx.Exec(ctx, query,
		photo.ID, photo.UserID, photo.URL, photo.StoragePath, photo.IsPrimary,
		photo.Position, photo.MimeType, photo.FileSizeBytes,
		photo.Moderation.Status, photo.Moderation.Confidence, photo.Moderation.Flags,
		reason, photo.UploadedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return services.ErrConflict
		}
		return fmt.Errorf("failed to insert photo: %w", err)
	}

	if err := recomputePrimaryURL(ctx, tx, photo.UserID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves one of the user's photos.
func (r *PhotoRepository) GetByID(ctx context.Context, userID, photoID string) (*models.Photo, error) {
	query := fmt.Sprintf(`SELECT %s FROM photos WHERE id = $1 AND user_id = $2`, photoColumns)
	photo, err := scanPhoto(r.db.QueryRow(ctx, query, photoID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// List returns the user's photos in stored order.
func (r *PhotoRepository) List(ctx context.Context, userID string) ([]*models.Photo, error) {
	query := fmt.Sprintf(`SELECT %s FROM photos WHERE user_id = $1 ORDER BY position`, photoColumns)
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return photos, nil
}

// Delete removes the photo row. If the removed photo was primary, the first
// remaining approved photo in stored order is promoted.
func (r *PhotoRepository) Delete(ctx context.Context, userID, photoID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockUser(ctx, tx, userID); err != nil {
		return err
	}

	var wasPrimary bool
	err = tx.QueryRow(ctx,
		`DELETE FROM photos WHERE id = $1 AND user_id = $2 RETURNING is_primary`,
		photoID, userID,
	).Scan(&wasPrimary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return services.ErrNotFound
		}
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	if wasPrimary {
		// Promote by stored order, a documented arbitrary tie-break.
		promote := `
			UPDATE photos SET is_primary = true
			WHERE id = (
				SELECT id FROM photos
				WHERE user_id = $1 AND moderation_status = 'approved'
				ORDER BY position
				LIMIT 1
			)
		`
		if _, err := tx.Exec(ctx, promote, userID); err != nil {
			return fmt.Errorf("failed to promote photo: %w", err)
		}
	}

	if err := recomputePrimaryURL(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetPrimary marks the photo as the user's primary. Unapproved photos are
// refused before any row changes.
func (r *PhotoRepository) SetPrimary(ctx context.Context, userID, photoID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockUser(ctx, tx, userID); err != nil {
		return err
	}

	var status models.ModerationStatus
	err = tx.QueryRow(ctx,
		`SELECT moderation_status FROM photos WHERE id = $1 AND user_id = $2`,
		photoID, userID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return services.ErrNotFound
		}
		return fmt.Errorf("failed to get photo status: %w", err)
	}
	if status != models.ModerationApproved {
		return services.ErrPhotoNotApproved
	}

	if _, err := tx.Exec(ctx,
		`UPDATE photos SET is_primary = false WHERE user_id = $1 AND is_primary`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to demote primary photos: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE photos SET is_primary = true WHERE id = $1`,
		photoID,
	); err != nil {
		if isUniqueViolation(err) {
			return services.ErrConflict
		}
		return fmt.Errorf("failed to set primary photo: %w", err)
	}

	if err := recomputePrimaryURL(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Reorder re-sequences the user's photos to match the given id order. Ids
// present in storage but omitted from the input keep their previous relative
// order at the end.
func (r *PhotoRepository) Reorder(ctx context.Context, userID string, photoIDs []string) ([]*models.Photo, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT id FROM photos WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo order: %w", err)
	}
	var stored []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan photo id: %w", err)
		}
		stored = append(stored, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photo ids: %w", err)
	}

	known := make(map[string]bool, len(stored))
	for _, id := range stored {
		known[id] = true
	}

	ordered := make([]string, 0, len(stored))
	seen := make(map[string]bool, len(stored))
	for _, id := range photoIDs {
		if known[id] && !seen[id] {
			ordered = append(ordered, id)
			seen[id] = true
		}
	}
	for _, id := range stored {
		if !seen[id] {
			ordered = append(ordered, id)
		}
	}

	for i, id := range ordered {
		if _, err := tx.Exec(ctx,
			`UPDATE photos SET position = $1 WHERE id = $2`, i+1, id); err != nil {
			return nil, fmt.Errorf("failed to update photo position: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reorder: %w", err)
	}

	return r.List(ctx, userID)
}

// HasApprovedPhoto reports whether the user has at least one approved photo.
func (r *PhotoRepository) HasApprovedPhoto(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM photos WHERE user_id = $1 AND moderation_status = 'approved')`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check approved photo: %w", err)
	}
	return exists, nil
}
