package messaging

import (
	"strings"
	"time"
)

// MessageType classifies message content.
type MessageType string

const (
	MessageTypeText            MessageType = "TEXT"
	MessageTypeSystem          MessageType = "SYSTEM"
	MessageTypeDocumentRequest MessageType = "DOCUMENT_REQUEST"
	MessageTypeDocumentUpload  MessageType = "DOCUMENT_UPLOAD"
	MessageTypeImage           MessageType = "IMAGE"
	MessageTypeFile            MessageType = "FILE"
)

// Message is an immutable log entry in a room. The persisted record is the
// source of truth; relay delivery only announces its creation.
type Message struct {
	ID         string      `db:"id"`
	RoomID     string      `db:"room_id"`
	SenderID   string      `db:"sender_id"`
	SenderRole Role        `db:"sender_role"`
	SenderName string      `db:"sender_name"`
	Body       string      `db:"body"`
	Type       MessageType `db:"msg_type"`
	Metadata   *string     `db:"metadata"` // JSON string; nil if absent
	IsRead     bool        `db:"is_read"`
	CreatedAt  time.Time   `db:"created_at"`
}

// NewMessage validates and normalizes a message prior to persistence.
func NewMessage(m Message) (*Message, error) {
	if m.RoomID == "" || m.SenderID == "" {
		return nil, ErrInvalidRoom
	}
	if !m.SenderRole.Valid() {
		return nil, ErrInvalidRole
	}

	m.Body = strings.TrimSpace(m.Body)
	if m.Body == "" && m.Type != MessageTypeSystem {
		return nil, ErrEmptyMessage
	}

	if m.Type == "" {
		m.Type = MessageTypeText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	return &m, nil
}
