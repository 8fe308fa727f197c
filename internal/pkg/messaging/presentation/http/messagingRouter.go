package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "csrbridge/internal/infrastructure/cache/port"
	qport "csrbridge/internal/infrastructure/queue/port"
	"csrbridge/internal/infrastructure/realtime"
	"csrbridge/internal/pkg/messaging/presentation/controller"
)

// RegisterRoutes registers messaging HTTP endpoints under the given router
// group. It constructs per-endpoint controllers and binds them directly to
// routes.
func RegisterRoutes(g *gin.RouterGroup, pool *pgxpool.Pool, cache cacheport.Cache, q qport.Client, registry *realtime.Registry) {
	resolveRoomCtl := controller.NewResolveRoomController(pool)
	sendMsgCtl := controller.NewSendMessageController(pool, q)
	getMsgsCtl := controller.NewGetMessagesController(pool)
	markMsgsCtl := controller.NewMarkMessagesReadController(pool)
	createNotifCtl := controller.NewCreateNotificationController(pool, cache)
	listNotifCtl := controller.NewListNotificationsController(pool, cache)
	markNotifCtl := controller.NewMarkNotificationsReadController(pool, cache)
	clearNotifCtl := controller.NewClearNotificationsController(pool, cache)
	relayCtl := controller.NewRelaySocketController(registry)

	// POST /api/v1/rooms -> resolve-or-create the room for a corporate/NGO pair
	g.POST("/rooms", resolveRoomCtl.Handle())

	// POST /api/v1/rooms/:roomId/messages -> persist a message (canonical record)
	g.POST("/rooms/:roomId/messages", sendMsgCtl.Handle())

	// GET /api/v1/rooms/:roomId/messages -> page history backwards from ?before=
	g.GET("/rooms/:roomId/messages", getMsgsCtl.Handle())

	// PATCH /api/v1/rooms/:roomId/messages/read -> persist read flags
	g.PATCH("/rooms/:roomId/messages/read", markMsgsCtl.Handle())

	// notification persistence surface
	g.POST("/notifications", createNotifCtl.Handle())
	g.GET("/notifications", listNotifCtl.Handle())
	g.PATCH("/notifications/read", markNotifCtl.Handle())
	g.DELETE("/notifications", clearNotifCtl.Handle())

	// GET /api/v1/ws -> the live relay
	g.GET("/ws", relayCtl.Handle())
}
