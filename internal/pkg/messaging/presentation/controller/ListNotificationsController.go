package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "csrbridge/internal/infrastructure/cache/port"
	"csrbridge/internal/pkg/messaging/application/usecase"
	"csrbridge/internal/pkg/messaging/persistence/repository/adapter"
)

// ListNotificationsController returns a user's feed plus the authoritative
// unread count.
type ListNotificationsController struct {
	UC *usecase.ListNotificationsUseCase
}

func NewListNotificationsController(pool *pgxpool.Pool, cache cacheport.Cache) *ListNotificationsController {
	repo := adapter.NewPgNotificationRepository(pool, cache)
	return &ListNotificationsController{UC: usecase.NewListNotificationsUseCase(repo)}
}

func (h *ListNotificationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		unreadOnly := c.Query("unread_only") == "true"

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.ListNotificationsInput{
			UserID:     userID,
			UnreadOnly: unreadOnly,
			Limit:      limit,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		items := make([]gin.H, 0, len(out.Items))
		for _, n := range out.Items {
			items = append(items, gin.H{
				"id":         n.ID,
				"user_id":    n.UserID,
				"user_role":  n.UserRole,
				"type":       n.Type,
				"title":      n.Title,
				"message":    n.Body,
				"link":       n.Link,
				"metadata":   n.Metadata,
				"is_read":    n.IsRead,
				"created_at": n.CreatedAt,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"notifications": items,
			"unread_count":  out.UnreadCount,
			"count":         len(items),
		})
	}
}
