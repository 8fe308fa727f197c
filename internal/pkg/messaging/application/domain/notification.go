package messaging

import (
	"errors"
	"strings"
	"time"
)

// NotificationType names the domain event that produced a notification.
// Free-form values are accepted; these cover the relay-driven kinds.
type NotificationType string

const (
	NotificationNewMessage      NotificationType = "NEW_MESSAGE"
	NotificationDocumentRequest NotificationType = "DOCUMENT_REQUEST"
	NotificationDocumentUpload  NotificationType = "DOCUMENT_UPLOAD"
	NotificationTrancheRelease  NotificationType = "TRANCHE_RELEASE"
)

// Notification is one persisted row per triggering domain event. IsRead
// transitions false to true only; rows are deletable in bulk per user.
type Notification struct {
	ID        string           `db:"id"`
	UserID    string           `db:"user_id"`
	UserRole  Role             `db:"user_role"`
	Type      NotificationType `db:"type"`
	Title     string           `db:"title"`
	Body      string           `db:"body"`
	Link      *string          `db:"link"`
	Metadata  *string          `db:"metadata"` // JSON string; nil if absent
	IsRead    bool             `db:"is_read"`
	CreatedAt time.Time        `db:"created_at"`
}

// NewNotification validates and normalizes a notification prior to persistence.
func NewNotification(n Notification) (*Notification, error) {
	if n.UserID == "" {
		return nil, errors.New("messaging: notification user_id is required")
	}
	if !n.UserRole.Valid() {
		return nil, ErrInvalidRole
	}
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return nil, errors.New("messaging: notification title is required")
	}
	if n.Type == "" {
		return nil, errors.New("messaging: notification type is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return &n, nil
}
