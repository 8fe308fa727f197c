package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "csrbridge/internal/infrastructure/cache/port"
	qport "csrbridge/internal/infrastructure/queue/port"
	messaging "csrbridge/internal/pkg/messaging/application/domain"
	"csrbridge/internal/pkg/messaging/application/usecase"
	repoAdapter "csrbridge/internal/pkg/messaging/persistence/repository/adapter"
)

// CreateNotificationTaskType is the queue task name for persisting a
// notification row in the background.
const CreateNotificationTaskType = "messaging:create_notification"

// CreateNotificationPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type CreateNotificationPayload struct {
	UserID   string  `json:"userId"`
	UserRole string  `json:"userRole"`
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Link     *string `json:"link"`
	Metadata *string `json:"metadata"`
}

// EnqueueCreateNotification puts a notification-create job on the notify queue.
func EnqueueCreateNotification(ctx context.Context, q qport.Client, p CreateNotificationPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return q.Enqueue(ctx, qport.Task{Type: CreateNotificationTaskType, Payload: b},
		qport.EnqueueOption{Queue: "notify", MaxRetry: 10})
}

// RegisterCreateNotificationTask binds the task handler to the worker server.
func RegisterCreateNotificationTask(srv qport.Server, pool *pgxpool.Pool, cache cacheport.Cache) {
	srv.Register(CreateNotificationTaskType, func(ctx context.Context, t qport.Task) error {
		var p CreateNotificationPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: retrying cannot help
			return err
		}

		repo := repoAdapter.NewPgNotificationRepository(pool, cache)
		uc := usecase.NewCreateNotificationUseCase(repo)

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, usecase.CreateNotificationInput{
			UserID:   p.UserID,
			UserRole: messaging.Role(p.UserRole),
			Type:     messaging.NotificationType(p.Type),
			Title:    p.Title,
			Body:     p.Body,
			Link:     p.Link,
			Metadata: p.Metadata,
		})
		return err
	})
}
