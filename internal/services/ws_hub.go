package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"voicefirst-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket event pushed to a client
type WSMessage struct {
	Type             string      `json:"type"`
	VoiceIntroID     string      `json:"voice_intro_id,omitempty"`
	PhotoID          string      `json:"photo_id,omitempty"`
	ProcessingStatus string      `json:"processing_status,omitempty"`
	ModerationStatus string      `json:"moderation_status,omitempty"`
	Message          string      `json:"message,omitempty"`
	Data             interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections, one per user; a new connection for
// the same user replaces the old one.
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*websocket.Conn),
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[userID]; exists {
		existing.Close()
	}
	h.connections[userID] = conn

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a WebSocket connection for a user
func (h *WSHub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[userID]; exists {
		conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	conn, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(userID)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// NotifyVoiceProcessed pushes the terminal processing state of a voice
// intro to its owner, if connected.
func (h *WSHub) NotifyVoiceProcessed(userID, introID string, status models.ProcessingStatus) {
	eventType := "voice_processing_complete"
	if status == models.ProcessingFailed {
		eventType = "voice_processing_failed"
	}

	err := h.SendToUser(userID, WSMessage{
		Type:             eventType,
		VoiceIntroID:     introID,
		ProcessingStatus: string(status),
	})
	if err != nil {
		log.Debug().
			Str("user_id", userID).
			Str("voice_intro_id", introID).
			Msg("User not connected for voice processing event")
	}
}

// NotifyPhotoModerated pushes a photo's moderation outcome to its owner.
func (h *WSHub) NotifyPhotoModerated(userID, photoID string, status models.ModerationStatus) {
	err := h.SendToUser(userID, WSMessage{
		Type:             "photo_moderated",
		PhotoID:          photoID,
		ModerationStatus: string(status),
	})
	if err != nil {
		log.Debug().
			Str("user_id", userID).
			Str("photo_id", photoID).
			Msg("User not connected for photo moderation event")
	}
}
