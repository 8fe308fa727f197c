package controller

import "time"

// Inbound event kinds accepted by the relay.
const (
	frameRegister        = "register"
	frameJoinRoom        = "join_room"
	frameLeaveRoom       = "leave_room"
	frameSendMessage     = "send_message"
	frameTyping          = "typing"
	frameStopTyping      = "stop_typing"
	frameMarkRead        = "mark_read"
	frameRequestDocument = "request_document"
	frameDocumentUpload  = "document_uploaded"
	frameTrancheRelease  = "tranche_release_request"
)

// inboundFrame is the superset of all client-to-server payloads; the Type
// field selects which subset is meaningful.
type inboundFrame struct {
	Type string `json:"type"`

	// register
	UserID   string `json:"user_id,omitempty"`
	UserRole string `json:"user_role,omitempty"`
	UserName string `json:"user_name,omitempty"`

	// room-scoped events
	RoomID     string   `json:"room_id,omitempty"`
	Message    string   `json:"message,omitempty"`
	SenderID   string   `json:"sender_id,omitempty"`
	SenderName string   `json:"sender_name,omitempty"`
	SenderRole string   `json:"sender_role,omitempty"`
	MessageIDs []string `json:"message_ids,omitempty"`

	// document / tranche notifications
	NgoID        string `json:"ngo_id,omitempty"`
	CorporateID  string `json:"corporate_id,omitempty"`
	ProposalID   string `json:"proposal_id,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
	TrancheID    string `json:"tranche_id,omitempty"`
	OrgName      string `json:"org_name,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// messageEnvelope announces a message creation over the relay. The ID is a
// relay-generated correlation id, not the persisted id; receivers reconcile
// the two client-side.
type messageEnvelope struct {
	Type    string         `json:"type"`
	RoomID  string         `json:"room_id"`
	Message messagePayload `json:"message"`
}

type messagePayload struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderRole string    `json:"sender_role"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type notificationFrame struct {
	Type             string `json:"type"`
	NotificationType string `json:"notification_type"`
	Title            string `json:"title"`
	Message          string `json:"message"`
	Link             string `json:"link,omitempty"`
	Priority         string `json:"priority,omitempty"`
}

type presenceFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

type typingFrame struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	UserName string `json:"user_name"`
}

type messagesReadFrame struct {
	Type       string   `json:"type"`
	RoomID     string   `json:"room_id"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids"`
}

type roomEventFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}
