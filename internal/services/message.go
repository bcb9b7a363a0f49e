package services

import (
	"context"
	"fmt"
	"time"

	"voicefirst-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxMessageLength = 4000

// MessageStore is the persistence contract for conversations and messages.
type MessageStore interface {
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	InsertMessage(ctx context.Context, msg *models.Message) error
	Touch(ctx context.Context, conversationID string, at time.Time) error
}

// Gate produces an admission decision for a sender.
type Gate interface {
	CheckGating(ctx context.Context, userID string) models.AdmissionDecision
}

// MessageService is the synchronous checkpoint on every message-send
// attempt: the voice gate is consulted before any conversation data is
// touched.
type MessageService struct {
	store MessageStore
	gate  Gate
}

// NewMessageService creates a new message service
func NewMessageService(store MessageStore, gate Gate) *MessageService {
	return &MessageService{
		store: store,
		gate:  gate,
	}
}

// Send runs the gate check, verifies conversation membership, persists the
// message and then updates the conversation's last-activity timestamp. A
// denied gate is a routine outcome returned as the decision, not an error.
func (s *MessageService) Send(ctx context.Context, senderID, conversationID, content string) (*models.Message, *models.AdmissionDecision, error) {
	if content == "" {
		return nil, nil, fmt.Errorf("%w: message content is empty", ErrValidation)
	}
	if len(content) > maxMessageLength {
		return nil, nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, maxMessageLength)
	}

	decision := s.gate.CheckGating(ctx, senderID)
	if !decision.Allowed {
		return nil, &decision, nil
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv.UserAID != senderID && conv.UserBID != senderID {
		return nil, nil, ErrNotParticipant
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, nil, err
	}

	// The message row is already persisted; a failed timestamp bump is not
	// worth failing the request over.
	if err := s.store.Touch(ctx, conversationID, msg.CreatedAt); err != nil {
		log.Warn().
			Err(err).
			Str("conversation_id", conversationID).
			Msg("Failed to update conversation timestamp")
	}

	return msg, &decision, nil
}
