package recordings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igot-live/backend/internal/models"
)

// Repository handles event_recordings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordingColumns = `id, event_id, file_path, duration, file_size, format, created_at`

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var rec models.Recording
	if err := row.Scan(&rec.ID, &rec.EventID, &rec.FilePath, &rec.Duration, &rec.FileSize, &rec.Format, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a recording row. An empty Format is stored as mp4.
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	if rec.Format == "" {
		rec.Format = models.RecordingFormatMP4
	}
	const q = `INSERT INTO event_recordings (event_id, file_path, duration, file_size, format)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, rec.EventID, rec.FilePath, rec.Duration, rec.FileSize, rec.Format).
		Scan(&rec.ID, &rec.CreatedAt)
}

// GetByID returns a recording by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	return scanRecording(r.pool.QueryRow(ctx, `SELECT `+recordingColumns+` FROM event_recordings WHERE id = $1`, id))
}

// ListByEvent returns an event's recordings, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Recording, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordingColumns+` FROM event_recordings WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Recording{}
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}
