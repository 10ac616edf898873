package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igot-live/backend/internal/models"
)

// Repository handles events and event_participants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, organizer_id, title, description, event_type, scheduled_date, duration, status,
	stream_url, recording_url, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.EventType, &e.ScheduledDate, &e.Duration,
		&e.Status, &e.StreamURL, &e.RecordingURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event with status upcoming.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (organizer_id, title, description, event_type, scheduled_date, duration, status, stream_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	if e.Status == "" {
		e.Status = models.EventStatusUpcoming
	}
	return r.pool.QueryRow(ctx, q, e.OrganizerID, e.Title, e.Description, e.EventType, e.ScheduledDate, e.Duration, e.Status, e.StreamURL).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID. Missing rows surface as pgx.ErrNoRows.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// List returns events newest scheduled first, optionally only those organized by organizerID.
func (r *Repository) List(ctx context.Context, organizerID *uuid.UUID) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	var args []interface{}
	if organizerID != nil {
		q += ` WHERE organizer_id = $1`
		args = append(args, *organizerID)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY scheduled_date DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// UpdateStatus sets the status and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx,
		`UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING `+eventColumns, status, id))
}

// SetRecording sets recording_url and, when status is non-empty, the status too.
func (r *Repository) SetRecording(ctx context.Context, id uuid.UUID, recordingURL, status string) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx,
		`UPDATE events SET recording_url = $1, status = COALESCE(NULLIF($2, ''), status), updated_at = NOW()
		WHERE id = $3 RETURNING `+eventColumns, recordingURL, status, id))
}

// IsOrganizer reports whether userID organizes eventID. A missing event yields pgx.ErrNoRows.
func (r *Repository) IsOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var organizer uuid.UUID
	if err := r.pool.QueryRow(ctx, `SELECT organizer_id FROM events WHERE id = $1`, eventID).Scan(&organizer); err != nil {
		return false, err
	}
	return organizer == userID, nil
}

// AddParticipant inserts a participant row. Duplicates are not checked.
func (r *Repository) AddParticipant(ctx context.Context, eventID, userID uuid.UUID, role string) (*models.Participant, error) {
	p := models.Participant{EventID: eventID, UserID: userID, Role: role}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO event_participants (event_id, user_id, role) VALUES ($1, $2, $3) RETURNING id, joined_at`,
		eventID, userID, role).Scan(&p.ID, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns participants in join order.
func (r *Repository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, user_id, role, joined_at FROM event_participants WHERE event_id = $1 ORDER BY joined_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.Role, &p.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
