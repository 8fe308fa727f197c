package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "csrbridge/internal/infrastructure/cache/port"
	messaging "csrbridge/internal/pkg/messaging/application/domain"
	"csrbridge/internal/pkg/messaging/application/usecase"
	"csrbridge/internal/pkg/messaging/persistence/repository/adapter"
)

// CreateNotificationController persists one notification row. REST callers
// use this as the durable leg alongside the best-effort live relay event.
type CreateNotificationController struct {
	UC *usecase.CreateNotificationUseCase
}

func NewCreateNotificationController(pool *pgxpool.Pool, cache cacheport.Cache) *CreateNotificationController {
	repo := adapter.NewPgNotificationRepository(pool, cache)
	return &CreateNotificationController{UC: usecase.NewCreateNotificationUseCase(repo)}
}

type createNotificationRequest struct {
	UserID   string  `json:"user_id" binding:"required"`
	UserRole string  `json:"user_role" binding:"required"`
	Type     string  `json:"type" binding:"required"`
	Title    string  `json:"title" binding:"required"`
	Message  string  `json:"message"`
	Link     *string `json:"link"`
	Metadata *string `json:"metadata"`
}

func (h *CreateNotificationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		n, err := h.UC.Execute(ctx, usecase.CreateNotificationInput{
			UserID:   req.UserID,
			UserRole: messaging.Role(req.UserRole),
			Type:     messaging.NotificationType(req.Type),
			Title:    req.Title,
			Body:     req.Message,
			Link:     req.Link,
			Metadata: req.Metadata,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
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
}
