package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"csrbridge/internal/pkg/messaging/application/usecase"
	"csrbridge/internal/pkg/messaging/persistence/repository/adapter"
)

// MarkMessagesReadController persists the read-flag transition for a room.
type MarkMessagesReadController struct {
	UC *usecase.MarkMessagesReadUseCase
}

func NewMarkMessagesReadController(pool *pgxpool.Pool) *MarkMessagesReadController {
	repo := adapter.NewPgMessageRepository(pool)
	return &MarkMessagesReadController{UC: usecase.NewMarkMessagesReadUseCase(repo)}
}

type markMessagesReadRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *MarkMessagesReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		if roomID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
			return
		}

		var req markMessagesReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		count, err := h.UC.Execute(ctx, usecase.MarkMessagesReadInput{RoomID: roomID, UserID: req.UserID})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"updated": count})
	}
}
