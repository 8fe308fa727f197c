package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "csrbridge/internal/infrastructure/cache/port"
	qport "csrbridge/internal/infrastructure/queue/port"
	"csrbridge/internal/infrastructure/realtime"
	httpHandler "csrbridge/internal/pkg/messaging/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1.
func RegisterRoutes(r *gin.Engine, pool *pgxpool.Pool, cache cacheport.Cache, q qport.Client, registry *realtime.Registry) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, pool, cache, q, registry)
}
