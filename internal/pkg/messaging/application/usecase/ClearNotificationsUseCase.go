package usecase

import (
	"context"
	"fmt"

	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// ClearNotificationsUseCase deletes every notification row for one user.
type ClearNotificationsUseCase struct {
	Notifications repository.NotificationRepository
}

func NewClearNotificationsUseCase(notifications repository.NotificationRepository) *ClearNotificationsUseCase {
	return &ClearNotificationsUseCase{Notifications: notifications}
}

func (uc *ClearNotificationsUseCase) Execute(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("user_id is required")
	}
	count, err := uc.Notifications.ClearForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return count, nil
}
