package models

import "time"

// ModerationStatus is the outcome bucket of a content-safety check.
type ModerationStatus string

const (
	ModerationPending      ModerationStatus = "pending"
	ModerationApproved     ModerationStatus = "approved"
	ModerationRejected     ModerationStatus = "rejected"
	ModerationManualReview ModerationStatus = "manual_review"
)

// ProcessingStatus tracks a voice introduction through its async pipeline.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingActive    ProcessingStatus = "processing"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// ModerationResult is attached to a media artifact; it is never persisted
// on its own.
type ModerationResult struct {
	Status     ModerationStatus `json:"status"`
	Confidence float64          `json:"confidence"`
	Flags      []string         `json:"flags"`
	Reason     string           `json:"reason,omitempty"`
}

// User represents a user in the system
type User struct {
	ID              string    `json:"id"`
	Token           string    `json:"token"`
	PushToken       *string   `json:"push_token,omitempty"`
	PrimaryPhotoURL *string   `json:"primary_photo_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// Photo is one submitted image together with its resolved moderation state.
type Photo struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	URL           string           `json:"url"`
	StoragePath   string           `json:"-"`
	IsPrimary     bool             `json:"is_primary"`
	Position      int              `json:"position"`
	MimeType      string           `json:"mime_type"`
	FileSizeBytes int64            `json:"file_size_bytes"`
	Moderation    ModerationResult `json:"moderation"`
	UploadedAt    time.Time        `json:"uploaded_at"`
}

// VoiceIntro is a user's spoken self-introduction. At most one row per user
// is active; superseded rows stay in place deactivated.
type VoiceIntro struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	URL              string           `json:"url"`
	StoragePath      string           `json:"-"`
	DurationSeconds  int              `json:"duration_seconds"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	IsActive         bool             `json:"is_active"`
	Transcription    *string          `json:"transcription,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// AdmissionDecision is the derived, ephemeral outcome of a gate check.
type AdmissionDecision struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason,omitempty"`
	HasVoiceIntro    bool   `json:"has_voice_intro"`
	ProcessingStatus string `json:"processing_status,omitempty"`
}

// Conversation represents a two-party conversation
type Conversation struct {
	ID            string     `json:"id"`
	UserAID       string     `json:"user_a_id"`
	UserBID       string     `json:"user_b_id"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Message represents a single message in a conversation
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProfileCompletion aggregates the two gate-relevant checks into the flags
// consumed by discovery and messaging surfaces.
type ProfileCompletion struct {
	HasApprovedPhoto  bool `json:"has_approved_photo"`
	HasCompletedVoice bool `json:"has_completed_voice"`
	CanMessage        bool `json:"can_message"`
	CanBeDiscovered   bool `json:"can_be_discovered"`
}
