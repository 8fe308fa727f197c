package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"csrbridge/internal/pkg/messaging/application/usecase"
	"csrbridge/internal/pkg/messaging/persistence/repository/adapter"
)

// GetMessagesController pages a room's history (one controller per endpoint).
type GetMessagesController struct {
	UC *usecase.GetMessagesUseCase
}

func NewGetMessagesController(pool *pgxpool.Pool) *GetMessagesController {
	repo := adapter.NewPgMessageRepository(pool)
	return &GetMessagesController{UC: usecase.NewGetMessagesUseCase(repo)}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		if roomID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
			return
		}

		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		var before *time.Time
		if v := c.Query("before"); v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "before must be RFC3339"})
				return
			}
			before = &t
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.GetMessagesInput{RoomID: roomID, Before: before, Limit: limit})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		out := make([]gin.H, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, gin.H{
				"id":           m.ID,
				"room_id":      m.RoomID,
				"sender_id":    m.SenderID,
				"sender_role":  m.SenderRole,
				"sender_name":  m.SenderName,
				"message":      m.Body,
				"message_type": m.Type,
				"metadata":     m.Metadata,
				"is_read":      m.IsRead,
				"created_at":   m.CreatedAt,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"messages": out,
			"count":    len(out),
			"limit":    limit,
		})
	}
}
