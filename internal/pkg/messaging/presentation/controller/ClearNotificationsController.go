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

// ClearNotificationsController bulk-deletes a user's notifications.
type ClearNotificationsController struct {
	UC *usecase.ClearNotificationsUseCase
}

func NewClearNotificationsController(pool *pgxpool.Pool, cache cacheport.Cache) *ClearNotificationsController {
	repo := adapter.NewPgNotificationRepository(pool, cache)
	return &ClearNotificationsController{UC: usecase.NewClearNotificationsUseCase(repo)}
}

func (h *ClearNotificationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		count, err := h.UC.Execute(ctx, userID)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": count})
	}
}
