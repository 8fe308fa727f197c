package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	messaging "csrbridge/internal/pkg/messaging/application/domain"
)

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) SaveMessage(ctx context.Context, m messaging.Message) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgMessageRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messaging.message (
			room_id, sender_id, sender_role, sender_name, body, msg_type, metadata, is_read, created_at
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, COALESCE($7::json, NULL), $8, $9)
		RETURNING id::text
	`, m.RoomID, m.SenderID, string(m.SenderRole), m.SenderName, m.Body, string(m.Type), m.Metadata, m.IsRead, m.CreatedAt).Scan(&id)
	return id, err
}

// ListByRoom fetches the newest messages before the cursor and returns them
// reversed into chronological ascending order.
func (r *PgMessageRepository) ListByRoom(ctx context.Context, roomID string, before *time.Time, limit int) ([]messaging.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, room_id::text, sender_id::text, sender_role, sender_name, body, msg_type, metadata, is_read, created_at
		FROM messaging.message
		WHERE room_id = $1::uuid
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, roomID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []messaging.Message
	for rows.Next() {
		var (
			msg  messaging.Message
			role string
			typ  string
		)
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &role, &msg.SenderName, &msg.Body, &typ, &msg.Metadata, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.SenderRole = messaging.Role(role)
		msg.Type = messaging.MessageType(typ)
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	// DESC query for the pagination window, ascending order for the reader.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *PgMessageRepository) MarkRead(ctx context.Context, roomID, userID string) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgMessageRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE messaging.message
		SET is_read = TRUE
		WHERE room_id = $1::uuid AND sender_id <> $2::uuid AND is_read = FALSE
	`, roomID, userID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
