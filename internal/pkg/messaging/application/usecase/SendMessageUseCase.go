package usecase

import (
	"context"
	"fmt"

	messaging "csrbridge/internal/pkg/messaging/application/domain"
	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// SendMessageInput carries the data needed to persist a new chat message.
type SendMessageInput struct {
	RoomID     string
	SenderID   string
	SenderRole messaging.Role
	SenderName string
	Body       string
	Type       messaging.MessageType
	Metadata   *string
}

// SendMessageUseCase validates a message against its room and persists it.
// The live relay announcement is the caller's concern; persistence here is
// the single source of truth for the message.
type SendMessageUseCase struct {
	Rooms    repository.RoomRepository
	Messages repository.MessageRepository
}

func NewSendMessageUseCase(rooms repository.RoomRepository, messages repository.MessageRepository) *SendMessageUseCase {
	return &SendMessageUseCase{Rooms: rooms, Messages: messages}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*messaging.Message, error) {
	if in.RoomID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("room_id and sender_id are required")
	}

	room, err := uc.Rooms.GetRoom(ctx, in.RoomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg, err := room.PostMessage(messaging.Message{
		RoomID:     in.RoomID,
		SenderID:   in.SenderID,
		SenderRole: in.SenderRole,
		SenderName: in.SenderName,
		Body:       in.Body,
		Type:       in.Type,
		Metadata:   in.Metadata,
	})
	if err != nil {
		return nil, err
	}

	id, err := uc.Messages.SaveMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id
	return &msg, nil
}
