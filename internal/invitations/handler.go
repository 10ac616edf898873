package invitations

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/auth"
	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/pkg/queue"
	"github.com/igot-live/backend/pkg/response"
)

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, inv *models.Invitation) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invitation, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// EventGetter loads the event an invitation refers to.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Enqueuer hands invitations to the worker; *queue.Queue implements it.
type Enqueuer interface {
	EnqueueInvitation(ctx context.Context, payload queue.InvitationPayload) error
}

// SendRequest is the body for POST /events/:id/invitations. Email wins over Emails when both are set.
type SendRequest struct {
	Email  string `json:"email"`
	Emails string `json:"emails"` // newline-separated
}

// Handler handles invitation endpoints.
type Handler struct {
	repo    Store
	events  EventGetter
	queue   Enqueuer
	joinURL string
	logger  *zap.Logger
}

// NewHandler creates an invitations handler. appOrigin is the public site used to build join links.
func NewHandler(repo Store, eventStore EventGetter, q Enqueuer, appOrigin string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, events: eventStore, queue: q, joinURL: strings.TrimRight(appOrigin, "/") + "/event/", logger: logger}
}

// Send handles POST /events/:id/invitations (organizer).
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	emails, err := models.ParseInvitees(req.Email, req.Emails)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	eventID := events.EventID(c)
	userID, _ := auth.UserID(c)
	ev, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		h.logger.Error("load event for invitations", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "Failed to send invitations")
		return
	}

	sent := make([]models.Invitation, 0, len(emails))
	for _, email := range emails {
		inv := &models.Invitation{EventID: eventID, Email: email, InvitedBy: userID}
		if err := h.repo.Create(ctx, inv); err != nil {
			h.logger.Error("create invitation", zap.String("email", email), zap.Error(err))
			response.Internal(c, "Failed to send invitations")
			return
		}
		err := h.queue.EnqueueInvitation(ctx, queue.InvitationPayload{
			InvitationID:  inv.ID,
			EventID:       eventID,
			Email:         email,
			EventTitle:    ev.Title,
			ScheduledDate: ev.ScheduledDate,
			JoinURL:       h.joinURL + eventID.String(),
		})
		if err != nil {
			h.logger.Error("enqueue invitation", zap.String("invitation_id", inv.ID.String()), zap.Error(err))
			if mErr := h.repo.MarkFailed(ctx, inv.ID, err.Error()); mErr != nil {
				h.logger.Warn("mark invitation failed", zap.Error(mErr))
			}
			response.Internal(c, "Failed to send invitations")
			return
		}
		sent = append(sent, *inv)
	}
	h.logger.Info("invitations queued", zap.String("event_id", eventID.String()), zap.Int("count", len(sent)))
	response.Created(c, sent)
}

// List handles GET /events/:id/invitations (organizer).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListByEvent(c.Request.Context(), events.EventID(c))
	if err != nil {
		h.logger.Error("list invitations", zap.Error(err))
		response.Internal(c, "failed to load invitations")
		return
	}
	response.OK(c, list)
}
