package surveys

import (
	"context"
	"encoding/json"
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
	Create(ctx context.Context, s *models.Survey) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, activeOnly bool) ([]models.Survey, error)
	InsertResponse(ctx context.Context, resp *models.SurveyResponse) error
}

// CreateRequest is the body for POST /events/:id/surveys.
type CreateRequest struct {
	Title              string                       `json:"title"`
	Questions          []models.SurveyQuestionInput `json:"questions"`
	CreatedInAdvance   bool                         `json:"created_in_advance"`
	ScheduledDisplayAt *time.Time                   `json:"scheduled_display_at"`
}

// RespondRequest is the body for POST /surveys/:id/responses; keys are question ids.
type RespondRequest struct {
	Responses map[string]json.RawMessage `json:"responses" binding:"required"`
}

// Handler handles survey HTTP endpoints.
type Handler struct {
	repo     Store
	pub      realtime.Publisher
	activity activity.Recorder
	logger   *zap.Logger
}

// NewHandler creates a surveys handler.
func NewHandler(repo Store, pub realtime.Publisher, rec activity.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, pub: pub, activity: rec, logger: logger}
}

// Create handles POST /events/:id/surveys (organizer, enforced by route middleware).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	questions, err := models.BuildSurveyQuestions(req.Questions)
	if title == "" || err != nil {
		response.BadRequest(c, models.ErrNoQuestions.Error())
		return
	}
	eventID := events.EventID(c)
	s := &models.Survey{
		EventID:            eventID,
		Title:              title,
		Questions:          questions,
		IsActive:           !req.CreatedInAdvance,
		CreatedInAdvance:   req.CreatedInAdvance,
		ScheduledDisplayAt: req.ScheduledDisplayAt,
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		h.logger.Error("create survey", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to create survey")
		return
	}
	h.pub.PublishChange(eventID, models.TableEventSurveys, realtime.ChangeInsert, s)
	response.Created(c, s)
}

// List handles GET /events/:id/surveys. Query ?active=1 returns only active surveys.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListByEvent(c.Request.Context(), events.EventID(c), c.Query("active") == "1")
	if err != nil {
		h.logger.Error("list surveys", zap.Error(err))
		response.Internal(c, "failed to list surveys")
		return
	}
	response.OK(c, list)
}

// Respond handles POST /surveys/:id/responses.
func (h *Handler) Respond(c *gin.Context) {
	surveyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid survey id")
		return
	}
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Responses) == 0 {
		response.BadRequest(c, "responses are required")
		return
	}
	s, err := h.repo.GetByID(c.Request.Context(), surveyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "survey not found")
			return
		}
		h.logger.Error("get survey", zap.Error(err))
		response.Internal(c, "failed to load survey")
		return
	}
	if !s.IsActive {
		response.Conflict(c, "survey is not active")
		return
	}
	known := make(map[string]bool, len(s.Questions))
	for _, q := range s.Questions {
		known[q.ID] = true
	}
	for id := range req.Responses {
		if !known[id] {
			response.BadRequest(c, models.ErrInvalidSurvey.Error()+": "+id)
			return
		}
	}

	raw, err := json.Marshal(req.Responses)
	if err != nil {
		response.BadRequest(c, "invalid responses")
		return
	}
	userID, _ := auth.UserID(c)
	resp := &models.SurveyResponse{SurveyID: s.ID, UserID: userID, Responses: raw}
	if err := h.repo.InsertResponse(c.Request.Context(), resp); err != nil {
		h.logger.Error("insert survey response", zap.String("survey_id", s.ID.String()), zap.Error(err))
		response.Internal(c, "failed to submit survey")
		return
	}
	h.pub.PublishChange(s.EventID, models.TableSurveyResponses, realtime.ChangeInsert, resp)
	h.activity.Record(c.Request.Context(), s.EventID, userID, models.ActivitySurveyResponse, map[string]any{"survey_id": s.ID})
	response.Created(c, resp)
}
