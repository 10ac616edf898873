package breakout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/pkg/database"
)

// ErrRoomFull is returned by Join when open memberships reached max_participants.
var ErrRoomFull = errors.New("room is full")

// Repository handles breakout_rooms and breakout_room_participants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a breakout repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roomSelect = `SELECT r.id, r.event_id, r.name, r.max_participants, r.is_active, r.created_at,
	(SELECT COUNT(*) FROM breakout_room_participants p WHERE p.room_id = r.id AND p.left_at IS NULL)
	FROM breakout_rooms r`

func scanRoom(row pgx.Row) (*models.BreakoutRoom, error) {
	var r models.BreakoutRoom
	if err := row.Scan(&r.ID, &r.EventID, &r.Name, &r.MaxParticipants, &r.IsActive, &r.CreatedAt, &r.ParticipantCount); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts an active room.
func (r *Repository) Create(ctx context.Context, room *models.BreakoutRoom) error {
	const q = `INSERT INTO breakout_rooms (event_id, name, max_participants) VALUES ($1, $2, $3)
		RETURNING id, is_active, created_at`
	return r.pool.QueryRow(ctx, q, room.EventID, room.Name, room.MaxParticipants).
		Scan(&room.ID, &room.IsActive, &room.CreatedAt)
}

// GetByID returns a room with its live occupancy.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.BreakoutRoom, error) {
	return scanRoom(r.pool.QueryRow(ctx, roomSelect+` WHERE r.id = $1`, id))
}

// ListActive returns the event's active rooms in creation order.
func (r *Repository) ListActive(ctx context.Context, eventID uuid.UUID) ([]models.BreakoutRoom, error) {
	rows, err := r.pool.Query(ctx, roomSelect+` WHERE r.event_id = $1 AND r.is_active ORDER BY r.created_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.BreakoutRoom{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *room)
	}
	return list, rows.Err()
}

const memberColumns = `id, room_id, user_id, joined_at, left_at`

// CurrentRoom returns the user's open membership among the event's rooms, or pgx.ErrNoRows.
func (r *Repository) CurrentRoom(ctx context.Context, eventID, userID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	const q = `SELECT p.id, p.room_id, p.user_id, p.joined_at, p.left_at
		FROM breakout_room_participants p JOIN breakout_rooms r ON r.id = p.room_id
		WHERE r.event_id = $1 AND p.user_id = $2 AND p.left_at IS NULL
		ORDER BY p.joined_at DESC LIMIT 1`
	var m models.BreakoutRoomParticipant
	if err := r.pool.QueryRow(ctx, q, eventID, userID).Scan(&m.ID, &m.RoomID, &m.UserID, &m.JoinedAt, &m.LeftAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Join closes the user's open memberships in the room's event and opens one in room, in one transaction.
// The room row is locked so concurrent joins cannot overfill it.
func (r *Repository) Join(ctx context.Context, room *models.BreakoutRoom, userID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	var m models.BreakoutRoomParticipant
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var max int
		if err := tx.QueryRow(ctx, `SELECT max_participants FROM breakout_rooms WHERE id = $1 FOR UPDATE`, room.ID).Scan(&max); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		var open int
		const countQ = `SELECT COUNT(*) FROM breakout_room_participants WHERE room_id = $1 AND left_at IS NULL AND user_id <> $2`
		if err := tx.QueryRow(ctx, countQ, room.ID, userID).Scan(&open); err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if open >= max {
			return ErrRoomFull
		}
		const closeQ = `UPDATE breakout_room_participants p SET left_at = NOW()
			FROM breakout_rooms r
			WHERE p.room_id = r.id AND r.event_id = $1 AND p.user_id = $2 AND p.left_at IS NULL`
		if _, err := tx.Exec(ctx, closeQ, room.EventID, userID); err != nil {
			return fmt.Errorf("close memberships: %w", err)
		}
		const insertQ = `INSERT INTO breakout_room_participants (room_id, user_id) VALUES ($1, $2) RETURNING ` + memberColumns
		return tx.QueryRow(ctx, insertQ, room.ID, userID).Scan(&m.ID, &m.RoomID, &m.UserID, &m.JoinedAt, &m.LeftAt)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Leave closes the user's open membership in roomID, or returns pgx.ErrNoRows.
func (r *Repository) Leave(ctx context.Context, roomID, userID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	const q = `UPDATE breakout_room_participants SET left_at = NOW()
		WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL RETURNING ` + memberColumns
	var m models.BreakoutRoomParticipant
	if err := r.pool.QueryRow(ctx, q, roomID, userID).Scan(&m.ID, &m.RoomID, &m.UserID, &m.JoinedAt, &m.LeftAt); err != nil {
		return nil, err
	}
	return &m, nil
}
