package polls

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/activity"
	"github.com/igot-live/backend/internal/auth"
	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
	"github.com/igot-live/backend/pkg/response"
)

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, activeOnly bool) ([]models.Poll, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Poll, error)
	InsertResponse(ctx context.Context, resp *models.PollResponse) error
	HasResponded(ctx context.Context, pollID, userID uuid.UUID) (bool, error)
	ListResponses(ctx context.Context, pollID uuid.UUID) ([]models.PollResponse, error)
}

// CreateRequest is the body for POST /events/:id/polls.
type CreateRequest struct {
	Question           string     `json:"question"`
	Options            []string   `json:"options"`
	CreatedInAdvance   bool       `json:"created_in_advance"`
	ScheduledDisplayAt *time.Time `json:"scheduled_display_at"`
}

// VoteRequest is the body for POST /polls/:id/vote.
type VoteRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	repo        Store
	organizers  events.OrganizerChecker
	pub         realtime.Publisher
	activity    activity.Recorder
	uniqueVotes bool
	logger      *zap.Logger
}

// NewHandler creates a polls handler. uniqueVotes rejects a second vote by the same user with 409.
func NewHandler(repo Store, organizers events.OrganizerChecker, pub realtime.Publisher, rec activity.Recorder, uniqueVotes bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, organizers: organizers, pub: pub, activity: rec, uniqueVotes: uniqueVotes, logger: logger}
}

// Create handles POST /events/:id/polls (organizer, enforced by route middleware).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	question := strings.TrimSpace(req.Question)
	opts, err := models.BuildPollOptions(req.Options)
	if question == "" || err != nil {
		response.BadRequest(c, models.ErrTooFewOptions.Error())
		return
	}

	eventID := events.EventID(c)
	p := &models.Poll{
		EventID:            eventID,
		Question:           question,
		Options:            opts,
		IsActive:           !req.CreatedInAdvance,
		CreatedInAdvance:   req.CreatedInAdvance,
		ScheduledDisplayAt: req.ScheduledDisplayAt,
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create poll", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to create poll")
		return
	}
	h.pub.PublishChange(eventID, models.TableEventPolls, realtime.ChangeInsert, p)
	response.Created(c, p)
}

// List handles GET /events/:id/polls. Query ?active=1 returns only active polls.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListByEvent(c.Request.Context(), events.EventID(c), c.Query("active") == "1")
	if err != nil {
		h.logger.Error("list polls", zap.Error(err))
		response.Internal(c, "failed to list polls")
		return
	}
	response.OK(c, list)
}

// loadPoll parses :id and loads the poll, writing 400/404/500 itself.
func (h *Handler) loadPoll(c *gin.Context) (*models.Poll, bool) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return nil, false
	}
	p, err := h.repo.GetByID(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "poll not found")
			return nil, false
		}
		h.logger.Error("get poll", zap.Error(err))
		response.Internal(c, "failed to load poll")
		return nil, false
	}
	return p, true
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	p, ok := h.loadPoll(c)
	if !ok {
		return
	}
	if !events.CheckOrganizer(c, h.organizers, p.EventID, "only the event organizer can manage polls", h.logger) {
		return
	}
	updated, err := h.repo.SetActive(c.Request.Context(), p.ID, active)
	if err != nil {
		h.logger.Error("set poll active", zap.String("poll_id", p.ID.String()), zap.Error(err))
		response.Internal(c, "failed to update poll")
		return
	}
	h.pub.PublishChange(updated.EventID, models.TableEventPolls, realtime.ChangeUpdate, updated)
	response.OK(c, updated)
}

// Activate handles POST /polls/:id/activate (organizer).
func (h *Handler) Activate(c *gin.Context) { h.setActive(c, true) }

// Close handles POST /polls/:id/close (organizer).
func (h *Handler) Close(c *gin.Context) { h.setActive(c, false) }

// Vote handles POST /polls/:id/vote. Each call inserts a response row unless unique votes are enforced.
func (h *Handler) Vote(c *gin.Context) {
	p, ok := h.loadPoll(c)
	if !ok {
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !p.IsActive {
		response.Conflict(c, "poll is not active")
		return
	}
	if !p.HasOption(req.OptionID) {
		response.BadRequest(c, models.ErrUnknownOption.Error())
		return
	}
	userID, _ := auth.UserID(c)
	if h.uniqueVotes {
		voted, err := h.repo.HasResponded(c.Request.Context(), p.ID, userID)
		if err != nil {
			h.logger.Error("check prior vote", zap.Error(err))
			response.Internal(c, "failed to record vote")
			return
		}
		if voted {
			response.Conflict(c, "you have already voted on this poll")
			return
		}
	}

	resp := &models.PollResponse{PollID: p.ID, UserID: userID, OptionID: req.OptionID}
	if err := h.repo.InsertResponse(c.Request.Context(), resp); err != nil {
		h.logger.Error("insert poll response", zap.String("poll_id", p.ID.String()), zap.Error(err))
		response.Internal(c, "failed to record vote")
		return
	}
	h.pub.PublishChange(p.EventID, models.TablePollResponses, realtime.ChangeInsert, resp)
	h.activity.Record(c.Request.Context(), p.EventID, userID, models.ActivityPollVote, map[string]any{
		"poll_id":   p.ID,
		"option_id": req.OptionID,
	})
	response.Created(c, resp)
}

// Results handles GET /polls/:id/results.
func (h *Handler) Results(c *gin.Context) {
	p, ok := h.loadPoll(c)
	if !ok {
		return
	}
	responses, err := h.repo.ListResponses(c.Request.Context(), p.ID)
	if err != nil {
		h.logger.Error("list poll responses", zap.Error(err))
		response.Internal(c, "failed to load results")
		return
	}
	response.OK(c, gin.H{
		"poll_id": p.ID,
		"total":   len(responses),
		"options": models.TallyResponses(p, responses),
	})
}
