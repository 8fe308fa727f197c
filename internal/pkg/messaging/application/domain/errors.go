package messaging

import "errors"

// Domain-level errors for messaging behaviors.
var (
	ErrInvalidRoom    = errors.New("messaging: room/message mismatch")
	ErrNotParticipant = errors.New("messaging: sender is not a participant in the room")
	ErrInvalidRole    = errors.New("messaging: role is not valid for this operation")
	ErrEmptyMessage   = errors.New("messaging: message body is empty")
)
