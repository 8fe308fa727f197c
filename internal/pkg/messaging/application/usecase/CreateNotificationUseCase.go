package usecase

import (
	"context"
	"fmt"

	messaging "csrbridge/internal/pkg/messaging/application/domain"
	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// CreateNotificationInput carries one durable notification row.
type CreateNotificationInput struct {
	UserID   string
	UserRole messaging.Role
	Type     messaging.NotificationType
	Title    string
	Body     string
	Link     *string
	Metadata *string
}

// CreateNotificationUseCase persists a notification. This is the durable
// delivery path; the relay's live notification event is best-effort only.
type CreateNotificationUseCase struct {
	Notifications repository.NotificationRepository
}

func NewCreateNotificationUseCase(notifications repository.NotificationRepository) *CreateNotificationUseCase {
	return &CreateNotificationUseCase{Notifications: notifications}
}

func (uc *CreateNotificationUseCase) Execute(ctx context.Context, in CreateNotificationInput) (*messaging.Notification, error) {
	n, err := messaging.NewNotification(messaging.Notification{
		UserID:   in.UserID,
		UserRole: in.UserRole,
		Type:     in.Type,
		Title:    in.Title,
		Body:     in.Body,
		Link:     in.Link,
		Metadata: in.Metadata,
	})
	if err != nil {
		return nil, err
	}

	id, err := uc.Notifications.Create(ctx, *n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	n.ID = id
	return n, nil
}
