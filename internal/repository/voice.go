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

const voiceColumns = `id, user_id, url, storage_path, duration_seconds,
		processing_status, is_active, transcription, created_at`

// VoiceRepository handles database operations for voice introductions.
type VoiceRepository struct {
	db *pgxpool.Pool
}

// NewVoiceRepository creates a new voice repository
func NewVoiceRepository(db *pgxpool.Pool) *VoiceRepository {
	return &VoiceRepository{db: db}
}

func scanVoiceIntro(row pgx.Row) (*models.VoiceIntro, error) {
	var intro models.VoiceIntro
	err := row.Scan(
		&intro.ID, &intro.UserID, &intro.URL, &intro.StoragePath,
		&intro.DurationSeconds, &intro.ProcessingStatus, &intro.IsActive,
		&intro.Transcription, &intro.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &intro, nil
}

// Insert deactivates the user's previous active intro and inserts the new
// one as active and pending, in one transaction. The one-active-per-user
// partial unique index is the real guard: a concurrent duplicate insert
// comes back as ErrConflict, never as silent success.
func (r *VoiceRepository) Insert(ctx context.Context, intro *models.VoiceIntro) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE voice_intros SET is_active = false WHERE user_id = $1 AND is_active`,
		intro.UserID,
	); err != nil {
		return fmt.Errorf("failed to deactivate voice intros: %w", err)
	}

	query := `
		INSERT INTO voice_intros (id, user_id, url, storage_path, duration_seconds,
			processing_status, is_active, transcription, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(ctx, query,
		intro.ID, intro.UserID, intro.URL, intro.StoragePath, intro.DurationSeconds,
		intro.ProcessingStatus, intro.IsActive, intro.Transcription, intro.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return services.ErrConflict
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: duration out of bounds", services.ErrValidation)
		}
		return fmt.Errorf("failed to insert voice intro: %w", err)
	}

	return tx.Commit(ctx)
}

// GetActive retrieves the user's active voice introduction.
func (r *VoiceRepository) GetActive(ctx context.Context, userID string) (*models.VoiceIntro, error) {
	query := fmt.Sprintf(`SELECT %s FROM voice_intros WHERE user_id = $1 AND is_active`, voiceColumns)
	intro, err := scanVoiceIntro(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get voice intro: %w", err)
	}
	return intro, nil
}

// HasCompleted reports whether the user's active intro finished processing.
func (r *VoiceRepository) HasCompleted(ctx context.Context, userID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM voice_intros
			WHERE user_id = $1 AND is_active AND processing_status = 'completed'
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check completed voice intro: %w", err)
	}
	return exists, nil
}

// ClaimPending atomically moves up to limit pending intros to processing and
// returns them. SKIP LOCKED keeps concurrent workers from claiming the same
// rows.
func (r *VoiceRepository) ClaimPending(ctx context.Context, limit int) ([]*models.VoiceIntro, error) {
	query := fmt.Sprintf(`
		UPDATE voice_intros SET processing_status = 'processing'
		WHERE id IN (
			SELECT id FROM voice_intros
			WHERE processing_status = 'pending' AND is_active
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, voiceColumns)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending voice intros: %w", err)
	}
	defer rows.Close()

	var intros []*models.VoiceIntro
	for rows.Next() {
		intro, err := scanVoiceIntro(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voice intro: %w", err)
		}
		intros = append(intros, intro)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voice intros: %w", err)
	}
	return intros, nil
}

// Complete marks a processing intro as completed with its transcript.
func (r *VoiceRepository) Complete(ctx context.Context, id, transcription string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE voice_intros SET processing_status = 'completed', transcription = $1 WHERE id = $2`,
		transcription, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete voice intro: %w", err)
	}
	if result.RowsAffected() == 0 {
		return services.ErrNotFound
	}
	return nil
}

// Fail marks a processing intro as terminally failed.
func (r *VoiceRepository) Fail(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE voice_intros SET processing_status = 'failed' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark voice intro failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return services.ErrNotFound
	}
	return nil
}
