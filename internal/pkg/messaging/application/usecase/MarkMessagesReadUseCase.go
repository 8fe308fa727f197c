package usecase

import (
	"context"
	"fmt"

	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// MarkMessagesReadInput flags everything the reader has not sent in the room.
type MarkMessagesReadInput struct {
	RoomID string
	UserID string
}

// MarkMessagesReadUseCase persists the read-flag transition; the relay's
// messages_read broadcast is ephemeral and separate.
type MarkMessagesReadUseCase struct {
	Messages repository.MessageRepository
}

func NewMarkMessagesReadUseCase(messages repository.MessageRepository) *MarkMessagesReadUseCase {
	return &MarkMessagesReadUseCase{Messages: messages}
}

func (uc *MarkMessagesReadUseCase) Execute(ctx context.Context, in MarkMessagesReadInput) (int64, error) {
	if in.RoomID == "" || in.UserID == "" {
		return 0, fmt.Errorf("room_id and user_id are required")
	}
	count, err := uc.Messages.MarkRead(ctx, in.RoomID, in.UserID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return count, nil
}
