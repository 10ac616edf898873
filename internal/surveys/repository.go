package surveys

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igot-live/backend/internal/models"
)

// Repository handles event_surveys and survey_responses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a surveys repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const surveyColumns = `id, event_id, title, questions, is_active, created_in_advance, scheduled_display_at, displayed_at, created_at`

func scanSurvey(row pgx.Row) (*models.Survey, error) {
	var s models.Survey
	err := row.Scan(&s.ID, &s.EventID, &s.Title, &s.Questions, &s.IsActive, &s.CreatedInAdvance,
		&s.ScheduledDisplayAt, &s.DisplayedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a survey; questions are stored as JSONB.
func (r *Repository) Create(ctx context.Context, s *models.Survey) error {
	const q = `INSERT INTO event_surveys (event_id, title, questions, is_active, created_in_advance, scheduled_display_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, s.EventID, s.Title, s.Questions, s.IsActive, s.CreatedInAdvance, s.ScheduledDisplayAt).
		Scan(&s.ID, &s.CreatedAt)
}

// GetByID returns a survey by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	return scanSurvey(r.pool.QueryRow(ctx, `SELECT `+surveyColumns+` FROM event_surveys WHERE id = $1`, id))
}

// ListByEvent returns surveys newest first, optionally only active ones.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, activeOnly bool) ([]models.Survey, error) {
	q := `SELECT ` + surveyColumns + ` FROM event_surveys WHERE event_id = $1`
	if activeOnly {
		q += ` AND is_active`
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Survey{}
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// InsertResponse stores one submission.
func (r *Repository) InsertResponse(ctx context.Context, resp *models.SurveyResponse) error {
	const q = `INSERT INTO survey_responses (survey_id, user_id, responses) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, resp.SurveyID, resp.UserID, []byte(resp.Responses)).Scan(&resp.ID, &resp.CreatedAt)
}
