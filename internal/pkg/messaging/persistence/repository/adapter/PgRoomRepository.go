package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	messaging "csrbridge/internal/pkg/messaging/application/domain"
)

type PgRoomRepository struct {
	pool *pgxpool.Pool
}

func NewPgRoomRepository(pool *pgxpool.Pool) *PgRoomRepository {
	return &PgRoomRepository{pool: pool}
}

// ResolveRoom returns the room for the (corporate, ngo) pair, creating it on
// first use. The unique composite constraint makes concurrent resolution
// settle on a single row.
func (r *PgRoomRepository) ResolveRoom(ctx context.Context, corporateID, ngoID string) (messaging.Room, error) {
	if r == nil || r.pool == nil {
		return messaging.Room{}, errors.New("PgRoomRepository: nil pool")
	}
	var room messaging.Room
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messaging.room (corporate_id, ngo_id)
		VALUES ($1::uuid, $2::uuid)
		ON CONFLICT (corporate_id, ngo_id)
		DO UPDATE SET corporate_id = EXCLUDED.corporate_id
		RETURNING id::text, corporate_id::text, ngo_id::text, created_at
	`, corporateID, ngoID).Scan(&room.ID, &room.CorporateID, &room.NgoID, &room.CreatedAt)
	return room, err
}

func (r *PgRoomRepository) GetRoom(ctx context.Context, roomID string) (messaging.Room, error) {
	if r == nil || r.pool == nil {
		return messaging.Room{}, errors.New("PgRoomRepository: nil pool")
	}
	var room messaging.Room
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, corporate_id::text, ngo_id::text, created_at
		FROM messaging.room
		WHERE id = $1::uuid
	`, roomID).Scan(&room.ID, &room.CorporateID, &room.NgoID, &room.CreatedAt)
	return room, err
}
