package adapter

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	cacheport "csrbridge/internal/infrastructure/cache/port"
	"csrbridge/internal/infrastructure/logging"
	messaging "csrbridge/internal/pkg/messaging/application/domain"
)

const unreadCountTTL = 30 * time.Second

// PgNotificationRepository persists notifications in Postgres and keeps the
// per-user unread count in the cache. The cache is an optimization only: on
// miss or cache failure the count is recomputed from the persisted rows, so
// the unread invariant can never drift.
type PgNotificationRepository struct {
	pool  *pgxpool.Pool
	cache cacheport.Cache // may be nil; all caching is best-effort
}

func NewPgNotificationRepository(pool *pgxpool.Pool, cache cacheport.Cache) *PgNotificationRepository {
	return &PgNotificationRepository{pool: pool, cache: cache}
}

func (r *PgNotificationRepository) Create(ctx context.Context, n messaging.Notification) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgNotificationRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messaging.notification (
			user_id, user_role, type, title, body, link, metadata, is_read, created_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, COALESCE($7::json, NULL), $8, $9)
		RETURNING id::text
	`, n.UserID, string(n.UserRole), string(n.Type), n.Title, n.Body, n.Link, n.Metadata, n.IsRead, n.CreatedAt).Scan(&id)
	if err != nil {
		return "", err
	}
	r.invalidateUnread(ctx, n.UserID)
	return id, nil
}

func (r *PgNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]messaging.Notification, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgNotificationRepository: nil pool")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, user_id::text, user_role, type, title, body, link, metadata, is_read, created_at
		FROM messaging.notification
		WHERE user_id = $1::uuid
		  AND (NOT $2::bool OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []messaging.Notification
	for rows.Next() {
		var (
			n    messaging.Notification
			role string
			typ  string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &role, &typ, &n.Title, &n.Body, &n.Link, &n.Metadata, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.UserRole = messaging.Role(role)
		n.Type = messaging.NotificationType(typ)
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *PgNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgNotificationRepository: nil pool")
	}

	key := unreadKey(userID)
	if r.cache != nil {
		if v, err := r.cache.Get(ctx, key); err == nil {
			if n, perr := strconv.ParseInt(v, 10, 64); perr == nil {
				return n, nil
			}
		}
	}

	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messaging.notification
		WHERE user_id = $1::uuid AND is_read = FALSE
	`, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, strconv.FormatInt(count, 10), unreadCountTTL); err != nil {
			l := logging.L()
			l.Warn().Err(err).Str("user_id", userID).Msg("unread count cache set failed")
		}
	}
	return count, nil
}

func (r *PgNotificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgNotificationRepository: nil pool")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE messaging.notification
		SET is_read = TRUE
		WHERE user_id = $1::uuid AND id = ANY($2::uuid[]) AND is_read = FALSE
	`, userID, ids)
	if err != nil {
		return 0, err
	}
	r.invalidateUnread(ctx, userID)
	return ct.RowsAffected(), nil
}

func (r *PgNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgNotificationRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE messaging.notification
		SET is_read = TRUE
		WHERE user_id = $1::uuid AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, err
	}
	r.invalidateUnread(ctx, userID)
	return ct.RowsAffected(), nil
}

func (r *PgNotificationRepository) ClearForUser(ctx context.Context, userID string) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgNotificationRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM messaging.notification WHERE user_id = $1::uuid
	`, userID)
	if err != nil {
		return 0, err
	}
	r.invalidateUnread(ctx, userID)
	return ct.RowsAffected(), nil
}

func (r *PgNotificationRepository) invalidateUnread(ctx context.Context, userID string) {
	if r.cache == nil {
		return
	}
	if _, err := r.cache.Del(ctx, unreadKey(userID)); err != nil {
		l := logging.L()
		l.Warn().Err(err).Str("user_id", userID).Msg("unread count cache invalidation failed")
	}
}

func unreadKey(userID string) string {
	return "notification:unread:" + userID
}
