package events

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/auth"
	"github.com/igot-live/backend/pkg/response"
)

// ContextEventID is the context key for the parsed :id event parameter.
const ContextEventID = "event_id"

// OrganizerChecker answers whether a user organizes an event.
type OrganizerChecker interface {
	IsOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

// CheckOrganizer writes the 404/403/500 response itself and returns false when the caller may not proceed.
func CheckOrganizer(c *gin.Context, checker OrganizerChecker, eventID uuid.UUID, denied string, logger *zap.Logger) bool {
	userID, ok := auth.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return false
	}
	isOrg, err := checker.IsOrganizer(c.Request.Context(), eventID, userID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.NotFound(c, "event not found")
		return false
	case err != nil:
		logger.Error("organizer check", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to load event")
		return false
	case !isOrg:
		response.Forbidden(c, denied)
		return false
	}
	return true
}

// EventParam parses :id and stores it under ContextEventID. Call after JWT.
func EventParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.Abort(c, http.StatusBadRequest, "invalid event id")
			return
		}
		c.Set(ContextEventID, id)
		c.Next()
	}
}

// EventID returns the id stored by EventParam.
func EventID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(ContextEventID)
	id, _ := v.(uuid.UUID)
	return id
}

// RequireOrganizer allows only the organizer of the :id event. Call after EventParam.
func RequireOrganizer(checker OrganizerChecker, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if !CheckOrganizer(c, checker, EventID(c), "only the event organizer can do this", logger) {
			c.Abort()
			return
		}
		c.Next()
	}
}
