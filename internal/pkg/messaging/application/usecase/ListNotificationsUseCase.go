package usecase

import (
	"context"
	"fmt"

	messaging "csrbridge/internal/pkg/messaging/application/domain"
	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// ListNotificationsInput selects a user's feed.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}

// ListNotificationsOutput pairs the feed page with the authoritative unread
// count, recomputed from persisted rows.
type ListNotificationsOutput struct {
	Items       []messaging.Notification
	UnreadCount int64
}

type ListNotificationsUseCase struct {
	Notifications repository.NotificationRepository
}

func NewListNotificationsUseCase(notifications repository.NotificationRepository) *ListNotificationsUseCase {
	return &ListNotificationsUseCase{Notifications: notifications}
}

func (uc *ListNotificationsUseCase) Execute(ctx context.Context, in ListNotificationsInput) (*ListNotificationsOutput, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	items, err := uc.Notifications.ListByUser(ctx, in.UserID, in.UnreadOnly, in.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	unread, err := uc.Notifications.CountUnread(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &ListNotificationsOutput{Items: items, UnreadCount: unread}, nil
}
