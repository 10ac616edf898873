package activity

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igot-live/backend/internal/models"
)

// ListLimit caps the activity feed.
const ListLimit = 50

// Repository handles participant_activities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends an activity row.
func (r *Repository) Insert(ctx context.Context, a *models.ActivityLog) error {
	const q = `INSERT INTO participant_activities (event_id, user_id, activity_type, activity_data)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	var data []byte
	if len(a.ActivityData) > 0 {
		data = a.ActivityData
	}
	return r.pool.QueryRow(ctx, q, a.EventID, a.UserID, a.ActivityType, data).Scan(&a.ID, &a.CreatedAt)
}

// ListByEvent returns the newest ListLimit activities.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ActivityLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, event_id, user_id, activity_type, activity_data, created_at
		FROM participant_activities WHERE event_id = $1 ORDER BY created_at DESC LIMIT $2`, eventID, ListLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.ActivityLog{}
	for rows.Next() {
		var a models.ActivityLog
		var data []byte
		if err := rows.Scan(&a.ID, &a.EventID, &a.UserID, &a.ActivityType, &data, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			a.ActivityData = json.RawMessage(data)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Stats counts participants and per-type activities for the engagement panel.
func (r *Repository) Stats(ctx context.Context, eventID uuid.UUID) (*models.ActivityStats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM event_participants WHERE event_id = $1),
		COUNT(*) FILTER (WHERE activity_type = $2),
		COUNT(*) FILTER (WHERE activity_type = $3),
		COUNT(*) FILTER (WHERE activity_type = $4)
		FROM participant_activities WHERE event_id = $1`
	var s models.ActivityStats
	err := r.pool.QueryRow(ctx, q, eventID, models.ActivityChat, models.ActivityPollVote, models.ActivitySurveyResponse).
		Scan(&s.TotalParticipants, &s.ChatMessages, &s.PollVotes, &s.SurveyResponses)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
