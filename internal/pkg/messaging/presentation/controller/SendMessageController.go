package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"csrbridge/internal/infrastructure/logging"
	queueport "csrbridge/internal/infrastructure/queue/port"
	messaging "csrbridge/internal/pkg/messaging/application/domain"
	"csrbridge/internal/pkg/messaging/application/task"
	"csrbridge/internal/pkg/messaging/application/usecase"
	"csrbridge/internal/pkg/messaging/persistence/repository/adapter"
	repository "csrbridge/internal/pkg/messaging/persistence/repository/port"
)

// SendMessageController persists a chat message and enqueues the durable
// counterpart notification. Clients call this BEFORE emitting the live relay
// event; the returned record is the canonical message.
type SendMessageController struct {
	UC    *usecase.SendMessageUseCase
	Rooms repository.RoomRepository
	Q     queueport.Client // may be nil; notification fan-out is then skipped
}

func NewSendMessageController(pool *pgxpool.Pool, q queueport.Client) *SendMessageController {
	rooms := adapter.NewPgRoomRepository(pool)
	msgs := adapter.NewPgMessageRepository(pool)
	return &SendMessageController{
		UC:    usecase.NewSendMessageUseCase(rooms, msgs),
		Rooms: rooms,
		Q:     q,
	}
}

type sendMessageRequest struct {
	SenderID   string  `json:"sender_id" binding:"required"`
	SenderRole string  `json:"sender_role" binding:"required"`
	SenderName string  `json:"sender_name"`
	Message    string  `json:"message" binding:"required"`
	Type       string  `json:"message_type"`
	Metadata   *string `json:"metadata"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		if roomID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			RoomID:     roomID,
			SenderID:   req.SenderID,
			SenderRole: messaging.Role(req.SenderRole),
			SenderName: req.SenderName,
			Body:       req.Message,
			Type:       messaging.MessageType(req.Type),
			Metadata:   req.Metadata,
		})
		if err != nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			case errors.Is(err, messaging.ErrNotParticipant):
				status = http.StatusForbidden
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		h.notifyCounterpart(ctx, msg)

		c.JSON(http.StatusCreated, gin.H{
			"id":           msg.ID,
			"room_id":      msg.RoomID,
			"sender_id":    msg.SenderID,
			"sender_role":  msg.SenderRole,
			"sender_name":  msg.SenderName,
			"message":      msg.Body,
			"message_type": msg.Type,
			"metadata":     msg.Metadata,
			"is_read":      msg.IsRead,
			"created_at":   msg.CreatedAt,
		})
	}
}

// notifyCounterpart enqueues the durable notification row for the other side
// of the room. Best-effort: a queue failure is logged, not surfaced, since
// the message itself is already persisted.
func (h *SendMessageController) notifyCounterpart(ctx context.Context, msg *messaging.Message) {
	if h.Q == nil {
		return
	}
	otherRole, ok := messaging.Counterpart(msg.SenderRole)
	if !ok {
		return
	}
	room, err := h.Rooms.GetRoom(ctx, msg.RoomID)
	if err != nil {
		l := logging.L()
		l.Error().Err(err).Str("room_id", msg.RoomID).Msg("counterpart lookup failed")
		return
	}
	recipientID := room.CorporateID
	if otherRole == messaging.RoleNGO {
		recipientID = room.NgoID
	}

	link := "/chat/" + msg.RoomID
	_, err = task.EnqueueCreateNotification(ctx, h.Q, task.CreateNotificationPayload{
		UserID:   recipientID,
		UserRole: string(otherRole),
		Type:     string(messaging.NotificationNewMessage),
		Title:    "New message from " + msg.SenderName,
		Body:     msg.Body,
		Link:     &link,
	})
	if err != nil {
		l := logging.L()
		l.Error().Err(err).Str("room_id", msg.RoomID).Msg("notification enqueue failed")
	}
}
