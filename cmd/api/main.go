package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	v1 "csrbridge/cmd/api/router/v1"
	cacheAdapter "csrbridge/internal/infrastructure/cache/adapter"
	cacheport "csrbridge/internal/infrastructure/cache/port"
	"csrbridge/internal/infrastructure/database"
	"csrbridge/internal/infrastructure/logging"
	queueAdapter "csrbridge/internal/infrastructure/queue/adapter"
	"csrbridge/internal/infrastructure/realtime"
	"csrbridge/internal/pkg/messaging/application/task"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is optional; environment variables may be set directly.
		l := logging.L()
		l.Debug().Err(err).Msg(".env not loaded")
	}
	logging.Init()
	log := logging.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := database.NewPoolFromEnv(connectCtx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	var cache cacheport.Cache
	if rc, err := cacheAdapter.NewRedisAdapter(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, unread counts will be recomputed per request")
	} else {
		cache = rc
		defer rc.Close()
	}

	qclient, err := queueAdapter.NewAsynqClientFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create queue client")
	}
	defer qclient.Close()

	// Embedded worker for background notification persistence.
	qserver, err := queueAdapter.NewAsynqServer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create queue server")
	}
	task.RegisterCreateNotificationTask(qserver, pool, cache)
	go func() {
		if err := qserver.Run(ctx); err != nil {
			log.Error().Err(err).Msg("queue server stopped")
		}
	}()

	registry := realtime.NewRegistry()
	defer registry.Close()

	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		connections, users, rooms := registry.Counts()
		c.JSON(http.StatusOK, gin.H{
			"status":      "OK",
			"connections": connections,
			"users":       users,
			"rooms":       rooms,
		})
	})

	v1.RegisterRoutes(r, pool, cache, qclient, registry)

	addr := ":" + envOr("PORT", "8080")
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info().Str("addr", addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
