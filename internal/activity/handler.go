package activity

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/pkg/response"
)

// Reader is the read side of Repository.
type Reader interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.ActivityLog, error)
	Stats(ctx context.Context, eventID uuid.UUID) (*models.ActivityStats, error)
}

// Handler serves the activity feed and engagement stats.
type Handler struct {
	repo   Reader
	logger *zap.Logger
}

// NewHandler creates an activity handler.
func NewHandler(repo Reader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /events/:id/activities.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListByEvent(c.Request.Context(), events.EventID(c))
	if err != nil {
		h.logger.Error("list activities", zap.Error(err))
		response.Internal(c, "failed to list activities")
		return
	}
	response.OK(c, list)
}

// Stats handles GET /events/:id/activities/stats.
func (h *Handler) Stats(c *gin.Context) {
	s, err := h.repo.Stats(c.Request.Context(), events.EventID(c))
	if err != nil {
		h.logger.Error("activity stats", zap.Error(err))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, s)
}
