package invitations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igot-live/backend/internal/models"
)

// Repository handles event_invitations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invitations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invitationColumns = `id, event_id, email, invited_by, status, error_message, sent_at, created_at`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	if err := row.Scan(&inv.ID, &inv.EventID, &inv.Email, &inv.InvitedBy, &inv.Status, &inv.ErrorMessage, &inv.SentAt, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a queued invitation.
func (r *Repository) Create(ctx context.Context, inv *models.Invitation) error {
	const q = `INSERT INTO event_invitations (event_id, email, invited_by) VALUES ($1, $2, $3)
		RETURNING id, status, created_at`
	return r.pool.QueryRow(ctx, q, inv.EventID, inv.Email, inv.InvitedBy).Scan(&inv.ID, &inv.Status, &inv.CreatedAt)
}

// GetByID returns an invitation by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM event_invitations WHERE id = $1`, id))
}

// ListByEvent returns invitations for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM event_invitations WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *inv)
	}
	return list, rows.Err()
}

// MarkSent records a delivered invitation.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE event_invitations SET status = $1, sent_at = NOW(), error_message = '' WHERE id = $2`,
		models.InvitationStatusSent, id)
	return err
}

// MarkFailed records the last delivery error.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE event_invitations SET status = $1, error_message = $2 WHERE id = $3`,
		models.InvitationStatusFailed, reason, id)
	return err
}
