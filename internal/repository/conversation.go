package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository handles database operations for conversations and
// their messages.
type ConversationRepository struct {
	db *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetConversation retrieves a conversation by ID
func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	query := `
		SELECT id, user_a_id, user_b_id, last_message_at, created_at
		FROM conversations
		WHERE id = $1
	`
	var conv models.Conversation
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conv.ID, &conv.UserAID, &conv.UserBID, &conv.LastMessageAt, &conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// InsertMessage persists a message row.
func (r *ConversationRepository) InsertMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// Touch updates the conversation's last-activity timestamp. Called after the
// message insert so the timestamp never becomes visible ahead of the message.
func (r *ConversationRepository) Touch(ctx context.Context, conversationID string, at time.Time) error {
	result, err := r.db.Exec(ctx,
		`UPDATE conversations SET last_message_at = $1 WHERE id = $2`,
		at, conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation timestamp: %w", err)
	}
	if result.RowsAffected() == 0 {
		return services.ErrNotFound
	}
	return nil
}
