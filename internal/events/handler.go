package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/auth"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
	"github.com/igot-live/backend/pkg/response"
)

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	OrganizerChecker
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, organizerID *uuid.UUID) ([]models.Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Event, error)
	AddParticipant(ctx context.Context, eventID, userID uuid.UUID, role string) (*models.Participant, error)
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]models.Participant, error)
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	EventType     string  `json:"event_type"`
	ScheduledDate string  `json:"scheduled_date"` // RFC3339
	Duration      int     `json:"duration"`
	StreamURL     *string `json:"stream_url"`
}

// StatusRequest is the body for PATCH /events/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   Store
	pub    realtime.Publisher
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo Store, pub realtime.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, pub: pub, logger: logger}
}

// Create handles POST /events. The caller becomes the organizer.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := auth.UserID(c)

	title, typ := strings.TrimSpace(req.Title), strings.TrimSpace(req.EventType)
	scheduled, err := time.Parse(time.RFC3339, req.ScheduledDate)
	if title == "" || typ == "" || err != nil || req.Duration <= 0 {
		response.BadRequest(c, models.ErrEmptyEventInfo.Error())
		return
	}

	e := &models.Event{
		OrganizerID:   userID,
		Title:         title,
		Description:   strings.TrimSpace(req.Description),
		EventType:     typ,
		ScheduledDate: scheduled,
		Duration:      req.Duration,
		StreamURL:     req.StreamURL,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	if _, err := h.repo.AddParticipant(c.Request.Context(), e.ID, userID, models.ParticipantRoleOrganizer); err != nil {
		h.logger.Warn("add organizer participant", zap.String("event_id", e.ID.String()), zap.Error(err))
	}
	h.logger.Info("event created", zap.String("event_id", e.ID.String()), zap.String("organizer_id", userID.String()))
	response.Created(c, e)
}

// List handles GET /events. Query ?mine=1 returns only events the caller organizes.
func (h *Handler) List(c *gin.Context) {
	var organizer *uuid.UUID
	if c.Query("mine") == "1" {
		uid, _ := auth.UserID(c)
		organizer = &uid
	}
	list, err := h.repo.List(c.Request.Context(), organizer)
	if err != nil {
		h.logger.Error("list events", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	e, err := h.repo.GetByID(c.Request.Context(), EventID(c))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("get event", zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, e)
}

// UpdateStatus handles PATCH /events/:id/status (organizer). Go live and end stream both land here.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !models.ValidEventStatus(req.Status) {
		response.BadRequest(c, "status must be one of upcoming, live, ended, completed")
		return
	}
	eventID := EventID(c)
	e, err := h.repo.UpdateStatus(c.Request.Context(), eventID, req.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("update event status", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to update status")
		return
	}
	h.pub.PublishChange(e.ID, models.TableEvents, realtime.ChangeUpdate, e)
	h.logger.Info("event status changed", zap.String("event_id", e.ID.String()), zap.String("status", e.Status))
	response.OK(c, e)
}

// Join handles POST /events/:id/join and records the caller as an attendee.
func (h *Handler) Join(c *gin.Context) {
	eventID := EventID(c)
	userID, _ := auth.UserID(c)
	if _, err := h.repo.GetByID(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	p, err := h.repo.AddParticipant(c.Request.Context(), eventID, userID, models.ParticipantRoleAttendee)
	if err != nil {
		h.logger.Error("join event", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to join event")
		return
	}
	h.pub.PublishChange(eventID, models.TableEventParticipants, realtime.ChangeInsert, p)
	response.Created(c, p)
}

// Participants handles GET /events/:id/participants.
func (h *Handler) Participants(c *gin.Context) {
	list, err := h.repo.ListParticipants(c.Request.Context(), EventID(c))
	if err != nil {
		h.logger.Error("list participants", zap.Error(err))
		response.Internal(c, "failed to list participants")
		return
	}
	response.OK(c, list)
}
