package usecase

import (
	"context"
	"fmt"

	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// MarkNotificationsReadInput flips notifications to read. When MarkAll is
// set, IDs is ignored and every unread row for the user is flagged.
type MarkNotificationsReadInput struct {
	UserID  string
	IDs     []string
	MarkAll bool
}

type MarkNotificationsReadUseCase struct {
	Notifications repository.NotificationRepository
}

func NewMarkNotificationsReadUseCase(notifications repository.NotificationRepository) *MarkNotificationsReadUseCase {
	return &MarkNotificationsReadUseCase{Notifications: notifications}
}

func (uc *MarkNotificationsReadUseCase) Execute(ctx context.Context, in MarkNotificationsReadInput) (int64, error) {
	if in.UserID == "" {
		return 0, fmt.Errorf("user_id is required")
	}
	if !in.MarkAll && len(in.IDs) == 0 {
		return 0, fmt.Errorf("ids or mark_all_read is required")
	}

	var (
		count int64
		err   error
	)
	if in.MarkAll {
		count, err = uc.Notifications.MarkAllRead(ctx, in.UserID)
	} else {
		count, err = uc.Notifications.MarkRead(ctx, in.UserID, in.IDs)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return count, nil
}
