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

// ResolveRoomController handles room resolution (one controller per endpoint).
type ResolveRoomController struct {
	UC *usecase.ResolveRoomUseCase
}

func NewResolveRoomController(pool *pgxpool.Pool) *ResolveRoomController {
	repo := adapter.NewPgRoomRepository(pool)
	return &ResolveRoomController{UC: usecase.NewResolveRoomUseCase(repo)}
}

type resolveRoomRequest struct {
	CorporateID string `json:"corporate_id" binding:"required"`
	NgoID       string `json:"ngo_id" binding:"required"`
}

func (h *ResolveRoomController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resolveRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		room, err := h.UC.Execute(ctx, usecase.ResolveRoomInput{
			CorporateID: req.CorporateID,
			NgoID:       req.NgoID,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           room.ID,
			"corporate_id": room.CorporateID,
			"ngo_id":       room.NgoID,
			"created_at":   room.CreatedAt,
		})
	}
}
