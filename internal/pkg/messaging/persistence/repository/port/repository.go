package repository

import (
	"context"
	"time"

	messaging "csrbridge/internal/pkg/messaging/application/domain"
)

// RoomRepository resolves and loads conversation rooms.
type RoomRepository interface {
	// ResolveRoom returns the room for (corporateID, ngoID), creating it if
	// absent. The composite key is unique, so concurrent resolution converges
	// on one row.
	ResolveRoom(ctx context.Context, corporateID, ngoID string) (messaging.Room, error)
	GetRoom(ctx context.Context, roomID string) (messaging.Room, error)
}

// MessageRepository defines persistence operations for chat messages.
type MessageRepository interface {
	SaveMessage(ctx context.Context, m messaging.Message) (string, error)
	// ListByRoom returns up to limit messages created before the given
	// timestamp (all messages when before is nil), in chronological
	// ascending order.
	ListByRoom(ctx context.Context, roomID string, before *time.Time, limit int) ([]messaging.Message, error)
	// MarkRead flags all messages in the room not sent by userID as read
	// and returns the number of rows updated.
	MarkRead(ctx context.Context, roomID, userID string) (int64, error)
}

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n messaging.Notification) (string, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]messaging.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	ClearForUser(ctx context.Context, userID string) (int64, error)
}
