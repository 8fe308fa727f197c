package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// ChatFeed renders one room's conversation by merging the persisted history
// with live relay events. The persisted record is always the source of
// truth: Send writes through the API first and only then emits the live
// event, and incoming relay envelopes are deduplicated against local state.
type ChatFeed struct {
	mgr    *Manager
	api    MessageAPI
	roomID string
	userID string

	mu       sync.Mutex
	messages []Message
	sub      *Subscription
}

// NewChatFeed wires a feed for the given room and local user.
func NewChatFeed(mgr *Manager, api MessageAPI, roomID, userID string) *ChatFeed {
	return &ChatFeed{mgr: mgr, api: api, roomID: roomID, userID: userID}
}

// Open loads the persisted history (chronological ascending) and subscribes
// to live message events. Safe to call before the manager is connected.
func (f *ChatFeed) Open(ctx context.Context) error {
	history, err := f.api.ListMessages(ctx, f.roomID, nil, 0)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.messages = history
	f.mu.Unlock()

	f.sub = f.mgr.On("new_message", f.handleNewMessage)
	return nil
}

// Close detaches the live subscription. Required on unmount so the callback
// does not leak against a connection that outlives the feed.
func (f *ChatFeed) Close() {
	if f.sub != nil {
		f.mgr.Off(f.sub)
		f.sub = nil
	}
}

// Send persists the message, appends the canonical record locally, then
// emits the live relay event. If persistence fails nothing is emitted and
// the error is returned so the caller can restore the draft.
func (f *ChatFeed) Send(ctx context.Context, body, senderName, senderRole string) (Message, error) {
	msg, err := f.api.CreateMessage(ctx, f.roomID, CreateMessageRequest{
		SenderID:   f.userID,
		SenderRole: senderRole,
		SenderName: senderName,
		Message:    body,
	})
	if err != nil {
		return Message{}, err
	}

	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()

	f.mgr.SendMessage(f.roomID, msg.Message, f.userID, senderName, senderRole)
	return msg, nil
}

// MarkRead persists the read flags and announces them over the relay.
func (f *ChatFeed) MarkRead(ctx context.Context) (int64, error) {
	count, err := f.api.MarkMessagesRead(ctx, f.roomID, f.userID)
	if err != nil {
		return 0, err
	}
	f.mgr.MarkAsRead(f.roomID, f.userID, nil)
	return count, nil
}

// Messages returns a snapshot of the current view.
func (f *ChatFeed) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// handleNewMessage applies the dedupe rules: own broadcasts are ignored
// (the canonical record was appended in Send), and foreign envelopes are
// dropped when a message with the same id, or failing that the same body
// and sender, already exists locally. Live messages append at the tail;
// ordering across a reconnect window is reconciled by a fresh history load.
func (f *ChatFeed) handleNewMessage(raw json.RawMessage) {
	var envelope struct {
		RoomID  string `json:"room_id"`
		Message struct {
			ID         string    `json:"id"`
			SenderID   string    `json:"sender_id"`
			SenderRole string    `json:"sender_role"`
			SenderName string    `json:"sender_name"`
			Message    string    `json:"message"`
			CreatedAt  time.Time `json:"created_at"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}
	if envelope.RoomID != f.roomID {
		return
	}
	if envelope.Message.SenderID == f.userID {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.messages {
		if m.ID == envelope.Message.ID {
			return
		}
		if m.Message == envelope.Message.Message && m.SenderID == envelope.Message.SenderID {
			return
		}
	}

	f.messages = append(f.messages, Message{
		ID:         envelope.Message.ID,
		RoomID:     envelope.RoomID,
		SenderID:   envelope.Message.SenderID,
		SenderRole: envelope.Message.SenderRole,
		SenderName: envelope.Message.SenderName,
		Message:    envelope.Message.Message,
		Type:       "TEXT",
		CreatedAt:  envelope.Message.CreatedAt,
	})
}
