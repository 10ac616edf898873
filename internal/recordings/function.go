package recordings

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/auth"
	"github.com/igot-live/backend/internal/middleware"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
)

const errOnlyOrganizer = "Unauthorized - only organizer can upload recordings"

// TokenValidator validates bearer tokens; *auth.JWTService implements it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// FunctionRequest is the body of POST /functions/upload-recording.
type FunctionRequest struct {
	EventID  string `json:"eventId"`
	FileName string `json:"fileName"`
	FileSize *int64 `json:"fileSize"`
	Duration int    `json:"duration"`
}

// FunctionHandler registers an already-stored recording file and completes the event.
// Responses are bare JSON ({success, recording} or {error}) rather than the API envelope.
type FunctionHandler struct {
	repo   Store
	events EventStore
	tokens TokenValidator
	pub    realtime.Publisher
	logger *zap.Logger
}

// NewFunctionHandler creates the recording uploader function.
func NewFunctionHandler(repo Store, eventStore EventStore, tokens TokenValidator, pub realtime.Publisher, logger *zap.Logger) *FunctionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FunctionHandler{repo: repo, events: eventStore, tokens: tokens, pub: pub, logger: logger}
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// UploadRecording handles POST /functions/upload-recording.
func (h *FunctionHandler) UploadRecording(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		fail(c, http.StatusUnauthorized, "Missing authorization header")
		return
	}
	token, ok := middleware.BearerToken(header)
	if !ok {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req FunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil || strings.TrimSpace(req.FileName) == "" {
		fail(c, http.StatusBadRequest, "eventId and fileName are required")
		return
	}
	h.logger.Info("uploading recording for event", zap.String("event_id", eventID.String()))

	ev, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		h.logger.Error("load event failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to load event")
		return
	}
	if ev == nil || ev.OrganizerID != claims.UserID {
		fail(c, http.StatusForbidden, errOnlyOrganizer)
		return
	}

	rec := &models.Recording{
		EventID:  eventID,
		FilePath: req.FileName,
		FileSize: req.FileSize,
		Duration: req.Duration,
		Format:   models.RecordingFormatMP4,
	}
	if err := h.repo.Create(c.Request.Context(), rec); err != nil {
		h.logger.Error("failed to create recording entry", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to create recording entry")
		return
	}
	h.pub.PublishChange(eventID, models.TableEventRecordings, realtime.ChangeInsert, rec)

	updated, err := h.events.SetRecording(c.Request.Context(), eventID, req.FileName, models.EventStatusCompleted)
	if err != nil {
		// The recording row exists; the event update is reported but not rolled back.
		h.logger.Error("complete event failed", zap.Error(err), zap.String("event_id", eventID.String()))
	} else {
		h.pub.PublishChange(eventID, models.TableEvents, realtime.ChangeUpdate, updated)
	}

	h.logger.Info("recording uploaded", zap.String("recording_id", rec.ID.String()))
	c.JSON(http.StatusOK, gin.H{"success": true, "recording": rec})
}
