package polls

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igot-live/backend/internal/models"
)

// Repository handles event_polls and poll_responses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const pollColumns = `id, event_id, question, options, is_active, created_in_advance, scheduled_display_at, displayed_at, created_at`

func scanPoll(row pgx.Row) (*models.Poll, error) {
	var p models.Poll
	err := row.Scan(&p.ID, &p.EventID, &p.Question, &p.Options, &p.IsActive, &p.CreatedInAdvance,
		&p.ScheduledDisplayAt, &p.DisplayedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new poll; options are stored as a JSONB array.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	const query = `INSERT INTO event_polls (event_id, question, options, is_active, created_in_advance, scheduled_display_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, p.EventID, p.Question, p.Options, p.IsActive, p.CreatedInAdvance, p.ScheduledDisplayAt).
		Scan(&p.ID, &p.CreatedAt)
}

// GetByID returns a poll by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	return scanPoll(r.pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM event_polls WHERE id = $1`, id))
}

// ListByEvent returns polls newest first, optionally only active ones.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, activeOnly bool) ([]models.Poll, error) {
	q := `SELECT ` + pollColumns + ` FROM event_polls WHERE event_id = $1`
	if activeOnly {
		q += ` AND is_active`
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// SetActive opens or closes a poll. The first activation stamps displayed_at.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Poll, error) {
	const query = `UPDATE event_polls
		SET is_active = $1, displayed_at = CASE WHEN $1 THEN COALESCE(displayed_at, NOW()) ELSE displayed_at END
		WHERE id = $2 RETURNING ` + pollColumns
	return scanPoll(r.pool.QueryRow(ctx, query, active, id))
}

// InsertResponse records a vote. Nothing prevents a second row for the same (poll, user).
func (r *Repository) InsertResponse(ctx context.Context, resp *models.PollResponse) error {
	const query = `INSERT INTO poll_responses (poll_id, user_id, option_id) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, resp.PollID, resp.UserID, resp.OptionID).Scan(&resp.ID, &resp.CreatedAt)
}

// HasResponded reports whether the user has any response on the poll.
func (r *Repository) HasResponded(ctx context.Context, pollID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM poll_responses WHERE poll_id = $1 AND user_id = $2)`, pollID, userID).Scan(&exists)
	return exists, err
}

// ListResponses returns all votes on a poll oldest first.
func (r *Repository) ListResponses(ctx context.Context, pollID uuid.UUID) ([]models.PollResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, poll_id, user_id, option_id, created_at FROM poll_responses WHERE poll_id = $1 ORDER BY created_at ASC`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.PollResponse{}
	for rows.Next() {
		var resp models.PollResponse
		if err := rows.Scan(&resp.ID, &resp.PollID, &resp.UserID, &resp.OptionID, &resp.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, resp)
	}
	return list, rows.Err()
}
