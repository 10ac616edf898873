package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/pkg/queue"
)

// Jobs is the queue surface the processor needs; *queue.Queue implements it.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, key string, job *queue.Job) error
}

// Invitations persists delivery outcome; *invitations.Repository implements it.
type Invitations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// InvitationProcessor delivers queued invitation emails.
type InvitationProcessor struct {
	invites Invitations
	mailer  Mailer
	queue   Jobs
	backoff time.Duration
	logger  *zap.Logger
}

// NewInvitationProcessor creates an invitation processor.
func NewInvitationProcessor(invites Invitations, mailer Mailer, q Jobs, logger *zap.Logger) *InvitationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvitationProcessor{invites: invites, mailer: mailer, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one invitation job. A missing row is logged and skipped.
func (p *InvitationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeInvitation {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.InvitationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	inv, err := p.invites.GetByID(ctx, payload.InvitationID)
	if errors.Is(err, pgx.ErrNoRows) {
		p.logger.Warn("invitation not found, dropping job", zap.String("invitation_id", payload.InvitationID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load invitation: %w", err)
	}
	if inv.Status == models.InvitationStatusSent {
		p.logger.Info("invitation already sent", zap.String("invitation_id", inv.ID.String()))
		return nil
	}

	if err := p.mailer.Send(ctx, InvitationMessage(payload)); err != nil {
		if mErr := p.invites.MarkFailed(ctx, inv.ID, err.Error()); mErr != nil {
			p.logger.Error("mark invitation failed", zap.Error(mErr), zap.String("invitation_id", inv.ID.String()))
		}
		return fmt.Errorf("send invitation: %w", err)
	}
	if err := p.invites.MarkSent(ctx, inv.ID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	p.logger.Info("invitation sent", zap.String("invitation_id", inv.ID.String()), zap.String("email", payload.Email))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *InvitationProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("invitation worker stopping")
			return
		}

		job, key, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, key, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *InvitationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
