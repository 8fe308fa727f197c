package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "csrbridge/internal/infrastructure/cache/port"
	"csrbridge/internal/pkg/messaging/application/usecase"
	"csrbridge/internal/pkg/messaging/persistence/repository/adapter"
)

// MarkNotificationsReadController flips notifications to read, by id list or
// all-at-once. isRead never transitions back.
type MarkNotificationsReadController struct {
	UC *usecase.MarkNotificationsReadUseCase
}

func NewMarkNotificationsReadController(pool *pgxpool.Pool, cache cacheport.Cache) *MarkNotificationsReadController {
	repo := adapter.NewPgNotificationRepository(pool, cache)
	return &MarkNotificationsReadController{UC: usecase.NewMarkNotificationsReadUseCase(repo)}
}

type markNotificationsReadRequest struct {
	UserID      string   `json:"user_id" binding:"required"`
	IDs         []string `json:"ids"`
	MarkAllRead bool     `json:"mark_all_read"`
}

func (h *MarkNotificationsReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markNotificationsReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		count, err := h.UC.Execute(ctx, usecase.MarkNotificationsReadInput{
			UserID:  req.UserID,
			IDs:     req.IDs,
			MarkAll: req.MarkAllRead,
		})
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
