package usecase

import (
	"context"
	"fmt"

	messaging "csrbridge/internal/pkg/messaging/application/domain"
	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// ResolveRoomInput identifies the two sides of a 1:1 conversation.
type ResolveRoomInput struct {
	CorporateID string
	NgoID       string
}

// ResolveRoomUseCase returns the stable room for a corporate/NGO pair,
// creating it on first contact.
type ResolveRoomUseCase struct {
	Rooms repository.RoomRepository
}

func NewResolveRoomUseCase(rooms repository.RoomRepository) *ResolveRoomUseCase {
	return &ResolveRoomUseCase{Rooms: rooms}
}

func (uc *ResolveRoomUseCase) Execute(ctx context.Context, in ResolveRoomInput) (*messaging.Room, error) {
	if in.CorporateID == "" || in.NgoID == "" {
		return nil, fmt.Errorf("corporate_id and ngo_id are required")
	}
	room, err := uc.Rooms.ResolveRoom(ctx, in.CorporateID, in.NgoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &room, nil
}
