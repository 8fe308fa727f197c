package usecase

import (
	"context"
	"fmt"
	"time"

	messaging "csrbridge/internal/pkg/messaging/application/domain"
	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// GetMessagesInput pages a room's history backwards from Before.
type GetMessagesInput struct {
	RoomID string
	Before *time.Time
	Limit  int
}

// GetMessagesUseCase fetches a room's messages in chronological ascending
// order, which is the only ordering the room exposes to readers.
type GetMessagesUseCase struct {
	Messages repository.MessageRepository
}

func NewGetMessagesUseCase(messages repository.MessageRepository) *GetMessagesUseCase {
	return &GetMessagesUseCase{Messages: messages}
}

func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) ([]messaging.Message, error) {
	if in.RoomID == "" {
		return nil, fmt.Errorf("room_id is required")
	}
	msgs, err := uc.Messages.ListByRoom(ctx, in.RoomID, in.Before, in.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
