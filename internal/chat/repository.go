package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igot-live/backend/internal/models"
)

// Repository handles chat_messages and post_event_discussions; both share one shape.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends a message to the thread's table.
func (r *Repository) Insert(ctx context.Context, thread models.Thread, m *models.ChatMessage) error {
	q := `INSERT INTO ` + thread.Table() + ` (event_id, user_id, message, file_path, file_name, file_size)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.EventID, m.UserID, m.Message, m.FilePath, m.FileName, m.FileSize).
		Scan(&m.ID, &m.CreatedAt)
}

// ListByEvent returns the thread oldest first.
func (r *Repository) ListByEvent(ctx context.Context, thread models.Thread, eventID uuid.UUID) ([]models.ChatMessage, error) {
	q := `SELECT id, event_id, user_id, COALESCE(message, ''), file_path, file_name, file_size, created_at
		FROM ` + thread.Table() + ` WHERE event_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.EventID, &m.UserID, &m.Message, &m.FilePath, &m.FileName, &m.FileSize, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
