package services

import "errors"

// Sentinel errors services return and handlers translate to HTTP statuses.
var (
	// ErrNotFound is returned when a referenced record does not exist or
	// does not belong to the caller.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks synchronous request validation failures. The
	// wrapped message is user-facing.
	ErrValidation = errors.New("validation error")

	// ErrConflict surfaces data-layer constraint violations (duplicate
	// primary photo, duplicate active voice intro). Never masked as success.
	ErrConflict = errors.New("conflict")

	// ErrPhotoLimitReached is returned when a user already holds the
	// maximum number of non-rejected photos.
	ErrPhotoLimitReached = errors.New("photo limit reached")

	// ErrPhotoNotApproved is returned when an unapproved photo is asked to
	// become primary.
	ErrPhotoNotApproved = errors.New("photo is not approved")

	// ErrNotParticipant is returned when the sender is not part of the
	// target conversation.
	ErrNotParticipant = errors.New("not a conversation participant")
)
