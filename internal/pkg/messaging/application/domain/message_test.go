package messaging

import (
	"errors"
	"testing"
	"time"
)

func TestNewMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      Message
		wantErr error
	}{
		{
			name:    "missing room",
			in:      Message{SenderID: "corp-1", SenderRole: RoleCorporate, Body: "hi"},
			wantErr: ErrInvalidRoom,
		},
		{
			name:    "missing sender",
			in:      Message{RoomID: "room-1", SenderRole: RoleCorporate, Body: "hi"},
			wantErr: ErrInvalidRoom,
		},
		{
			name:    "unknown role",
			in:      Message{RoomID: "room-1", SenderID: "corp-1", SenderRole: "WIZARD", Body: "hi"},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "empty body",
			in:      Message{RoomID: "room-1", SenderID: "corp-1", SenderRole: RoleCorporate, Body: "   "},
			wantErr: ErrEmptyMessage,
		},
		{
			name: "system messages may be bodyless",
			in:   Message{RoomID: "room-1", SenderID: "sys", SenderRole: RoleSystem, Type: MessageTypeSystem},
		},
		{
			name: "valid text message",
			in:   Message{RoomID: "room-1", SenderID: "corp-1", SenderRole: RoleCorporate, Body: "  hello  "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewMessage(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Body != "" && got.Body != "hello" {
				t.Fatalf("body not trimmed: %q", got.Body)
			}
		})
	}
}

func TestNewMessageDefaults(t *testing.T) {
	got, err := NewMessage(Message{RoomID: "room-1", SenderID: "corp-1", SenderRole: RoleCorporate, Body: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != MessageTypeText {
		t.Fatalf("want TEXT default, got %s", got.Type)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at was not defaulted")
	}
}

func TestNewMessageKeepsExplicitValues(t *testing.T) {
	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	got, err := NewMessage(Message{
		RoomID: "room-1", SenderID: "corp-1", SenderRole: RoleCorporate,
		Body: "hi", Type: MessageTypeFile, CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != MessageTypeFile || !got.CreatedAt.Equal(at) {
		t.Fatalf("explicit values were overwritten: %+v", got)
	}
}
