package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"csrbridge/internal/infrastructure/logging"
	"csrbridge/internal/infrastructure/realtime"
	messaging "csrbridge/internal/pkg/messaging/application/domain"
)

// RelaySocketController is the live event relay: it accepts websocket
// connections, tracks identities and room memberships in the registry, and
// fans client events out to the right destinations. Delivery here is
// best-effort and at-most-once per recipient; persisted messages and
// notifications are written through the REST layer, never by the relay.
type RelaySocketController struct {
	registry *realtime.Registry
}

func NewRelaySocketController(registry *realtime.Registry) *RelaySocketController {
	return &RelaySocketController{registry: registry}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until
// the client disconnects.
func (ctl *RelaySocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; nothing more to do.
			return
		}

		conn := realtime.NewConnection(ws)
		ctl.registry.Attach(conn)
		defer func() {
			ctl.handleDisconnect(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.send(conn, ackFrame{Type: "connected"})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case frameRegister:
				ctl.handleRegister(conn, frame)
			case frameJoinRoom:
				ctl.handleJoin(conn, frame)
			case frameLeaveRoom:
				ctl.handleLeave(conn, frame)
			case frameSendMessage:
				ctl.handleSendMessage(conn, frame)
			case frameTyping, frameStopTyping:
				ctl.handleTyping(conn, frame)
			case frameMarkRead:
				ctl.handleMarkRead(conn, frame)
			case frameRequestDocument, frameDocumentUpload, frameTrancheRelease:
				ctl.handleRoleNotification(frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

// handleRegister binds an identity to the connection, overwriting any prior
// registration for the same user and closing the displaced socket. Presence
// goes to every live connection; malformed input is reported to the caller only.
func (ctl *RelaySocketController) handleRegister(conn *realtime.Connection, frame inboundFrame) {
	if frame.UserID == "" || frame.UserRole == "" {
		ctl.replyError(conn, "bad_request", "user_id and user_role are required")
		return
	}
	if !messaging.Role(frame.UserRole).Valid() {
		ctl.replyError(conn, "bad_request", "unknown user_role")
		return
	}

	replaced := ctl.registry.Register(conn, frame.UserID, frame.UserRole, frame.UserName)
	if replaced != nil {
		replaced.Close(4001, "session replaced")
	}

	ctl.send(conn, ackFrame{Type: "registered", UserID: frame.UserID})

	ctl.broadcastAll(presenceFrame{
		Type:   "user_status",
		UserID: frame.UserID,
		Status: "online",
		Role:   frame.UserRole,
		Name:   frame.UserName,
	}, "")
}

func (ctl *RelaySocketController) handleJoin(conn *realtime.Connection, frame inboundFrame) {
	if frame.RoomID == "" {
		ctl.replyError(conn, "bad_request", "room_id is required")
		return
	}

	ctl.registry.Join(frame.RoomID, conn)

	userID := frame.UserID
	if userID == "" {
		if id, ok := ctl.registry.Identity(conn.ID); ok {
			userID = id.UserID
		}
	}

	ctl.send(conn, ackFrame{Type: "room_joined", RoomID: frame.RoomID, UserID: userID})
	ctl.broadcast(frame.RoomID, roomEventFrame{Type: "user_joined", RoomID: frame.RoomID, UserID: userID}, conn.ID)
}

func (ctl *RelaySocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	if frame.RoomID == "" {
		ctl.replyError(conn, "bad_request", "room_id is required")
		return
	}
	ctl.registry.Leave(frame.RoomID, conn)
	ctl.send(conn, ackFrame{Type: "room_left", RoomID: frame.RoomID})
}

// handleSendMessage broadcasts the message envelope to every room member,
// sender included, and emits a notification event to the counterpart role's
// members. The envelope carries a relay-generated correlation id; the
// persisted record written via the REST layer is the source of truth.
func (ctl *RelaySocketController) handleSendMessage(conn *realtime.Connection, frame inboundFrame) {
	if frame.RoomID == "" || frame.Message == "" || frame.SenderID == "" {
		ctl.replyError(conn, "bad_request", "room_id, message and sender_id are required")
		return
	}

	envelope := messageEnvelope{
		Type:   "new_message",
		RoomID: frame.RoomID,
		Message: messagePayload{
			ID:         uuid.NewString(),
			RoomID:     frame.RoomID,
			SenderID:   frame.SenderID,
			SenderRole: frame.SenderRole,
			SenderName: frame.SenderName,
			Message:    frame.Message,
			CreatedAt:  time.Now().UTC(),
		},
	}
	ctl.broadcast(frame.RoomID, envelope, "")

	otherRole, ok := messaging.Counterpart(messaging.Role(frame.SenderRole))
	if !ok {
		return
	}
	payload, err := json.Marshal(notificationFrame{
		Type:             "notification",
		NotificationType: string(messaging.NotificationNewMessage),
		Title:            "New message from " + frame.SenderName,
		Message:          frame.Message,
		Link:             "/chat/" + frame.RoomID,
	})
	if err != nil {
		return
	}
	ctl.registry.BroadcastToRole(frame.RoomID, string(otherRole), payload)
}

func (ctl *RelaySocketController) handleTyping(conn *realtime.Connection, frame inboundFrame) {
	if frame.RoomID == "" {
		return
	}
	kind := "user_typing"
	if frame.Type == frameStopTyping {
		kind = "user_stopped_typing"
	}
	ctl.broadcast(frame.RoomID, typingFrame{Type: kind, RoomID: frame.RoomID, UserName: frame.UserName}, conn.ID)
}

func (ctl *RelaySocketController) handleMarkRead(conn *realtime.Connection, frame inboundFrame) {
	if frame.RoomID == "" {
		ctl.replyError(conn, "bad_request", "room_id is required")
		return
	}
	readerID := frame.UserID
	if readerID == "" {
		if id, ok := ctl.registry.Identity(conn.ID); ok {
			readerID = id.UserID
		}
	}
	ctl.broadcast(frame.RoomID, messagesReadFrame{
		Type:       "messages_read",
		RoomID:     frame.RoomID,
		ReaderID:   readerID,
		MessageIDs: frame.MessageIDs,
	}, conn.ID)
}

// handleRoleNotification routes document and tranche events to the first
// live connection holding the recipient role. When no such connection is
// live the event is dropped; durable delivery is the separate HTTP
// notification write the caller makes.
func (ctl *RelaySocketController) handleRoleNotification(frame inboundFrame) {
	var (
		role  messaging.Role
		kind  messaging.NotificationType
		title string
	)
	switch frame.Type {
	case frameRequestDocument:
		role = messaging.RoleNGO
		kind = messaging.NotificationDocumentRequest
		title = "Document requested: " + frame.DocumentType
	case frameDocumentUpload:
		role = messaging.RoleCorporate
		kind = messaging.NotificationDocumentUpload
		title = "Document uploaded: " + frame.DocumentName
	case frameTrancheRelease:
		role = messaging.RoleCorporate
		kind = messaging.NotificationTrancheRelease
		title = "Tranche release requested"
	default:
		return
	}

	target := ctl.registry.FirstByRole(string(role))
	if target == nil {
		l := logging.L()
		l.Debug().Str("event", frame.Type).Str("role", string(role)).Msg("no live recipient, dropping relay event")
		return
	}

	link := ""
	if frame.ProposalID != "" {
		link = "/proposals/" + frame.ProposalID
	}
	ctl.send(target, notificationFrame{
		Type:             "notification",
		NotificationType: string(kind),
		Title:            title,
		Message:          frame.OrgName,
		Link:             link,
		Priority:         "high",
	})
}

// handleDisconnect prunes the connection from all bookkeeping and, when the
// handle still carried the current registration, broadcasts offline presence.
func (ctl *RelaySocketController) handleDisconnect(conn *realtime.Connection) {
	identity, wasCurrent := ctl.registry.Detach(conn)
	if !wasCurrent {
		return
	}
	ctl.broadcastAll(presenceFrame{
		Type:   "user_status",
		UserID: identity.UserID,
		Status: "offline",
		Role:   identity.Role,
		Name:   identity.DisplayName,
	}, conn.ID)
}

func (ctl *RelaySocketController) replyError(conn *realtime.Connection, code string, message string) {
	ctl.send(conn, errorFrame{Type: "error", Code: code, Error: message})
}

func (ctl *RelaySocketController) send(conn *realtime.Connection, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}

func (ctl *RelaySocketController) broadcast(roomID string, v any, excludeConnID string) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctl.registry.Broadcast(roomID, payload, excludeConnID)
}

func (ctl *RelaySocketController) broadcastAll(v any, excludeConnID string) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctl.registry.BroadcastAll(payload, excludeConnID)
}
