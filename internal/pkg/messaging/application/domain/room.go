package messaging

import "time"

// Room is a 1:1 conversation channel between one corporate identity and one
// NGO identity, resolved by the persistence layer from the composite key
// (CorporateID, NgoID).
type Room struct {
	ID          string    `db:"id"`
	CorporateID string    `db:"corporate_id"`
	NgoID       string    `db:"ngo_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// HasParticipant tells whether userID belongs to this room.
func (r *Room) HasParticipant(userID string) bool {
	if r == nil || userID == "" {
		return false
	}
	return userID == r.CorporateID || userID == r.NgoID
}

// RoleOf returns the room-scoped role of the given participant.
func (r *Room) RoleOf(userID string) (Role, bool) {
	switch {
	case r == nil:
		return "", false
	case userID == r.CorporateID:
		return RoleCorporate, true
	case userID == r.NgoID:
		return RoleNGO, true
	}
	return "", false
}

// PostMessage applies room invariants and returns a message ready to persist.
//
// Rules:
//   - room/message identity must match
//   - sender must be a participant, unless the message is SYSTEM-sent
//   - senderRole must be the sender's room role or SYSTEM
func (r *Room) PostMessage(m Message) (Message, error) {
	if m.RoomID == "" || r == nil || r.ID == "" || m.RoomID != r.ID {
		return Message{}, ErrInvalidRoom
	}

	if m.SenderRole == RoleSystem {
		validated, err := NewMessage(m)
		if err != nil {
			return Message{}, err
		}
		return *validated, nil
	}

	role, ok := r.RoleOf(m.SenderID)
	if !ok {
		return Message{}, ErrNotParticipant
	}
	if m.SenderRole != role {
		return Message{}, ErrInvalidRole
	}

	validated, err := NewMessage(m)
	if err != nil {
		return Message{}, err
	}
	return *validated, nil
}
