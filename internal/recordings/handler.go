package recordings

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
	"github.com/igot-live/backend/pkg/response"
	"github.com/igot-live/backend/pkg/storage"
)

// maxUploadBody bounds a recording upload request.
const maxUploadBody = 4 << 30

// Store is the persistence the handlers need; *Repository implements it.
type Store interface {
	Create(ctx context.Context, rec *models.Recording) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Recording, error)
}

// EventStore updates the owning event; *events.Repository implements it.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	SetRecording(ctx context.Context, id uuid.UUID, recordingURL, status string) (*models.Event, error)
}

// FileStore is the object storage the handler needs; *storage.S3 implements it.
type FileStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error)
	SignedURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	RecordingsBucket() string
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	repo   Store
	events EventStore
	files  FileStore
	pub    realtime.Publisher
	urlTTL time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a recordings handler. urlTTL is the lifetime of download URLs.
func NewHandler(repo Store, eventStore EventStore, files FileStore, pub realtime.Publisher, urlTTL time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, events: eventStore, files: files, pub: pub, urlTTL: urlTTL, logger: logger, now: time.Now}
}

// List handles GET /events/:id/recordings.
func (h *Handler) List(c *gin.Context) {
	eventID := events.EventID(c)
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list recordings")
		return
	}
	response.OK(c, list)
}

// Upload handles POST /events/:id/recordings (organizer; multipart: file, duration).
func (h *Handler) Upload(c *gin.Context) {
	eventID := events.EventID(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, models.ErrNotVideo.Error())
		return
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = storage.ContentTypeForFilename(fh.Filename)
	}
	if !models.IsVideoContentType(ct) {
		response.BadRequest(c, models.ErrNotVideo.Error())
		return
	}
	duration, _ := strconv.Atoi(c.PostForm("duration"))

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "cannot read file")
		return
	}
	defer f.Close()

	key := storage.RecordingObjectKey(eventID.String(), h.now(), fh.Filename)
	bucket := h.files.RecordingsBucket()
	h.logger.Info("recording upload starting", zap.String("bucket", bucket), zap.String("key", key), zap.Int64("size", fh.Size))
	if _, err := h.files.Upload(c.Request.Context(), bucket, key, ct, f, fh.Size); err != nil {
		h.logger.Error("upload recording to S3 failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "Failed to upload recording")
		return
	}

	size := fh.Size
	rec := &models.Recording{EventID: eventID, FilePath: key, Duration: duration, FileSize: &size, Format: models.RecordingFormatMP4}
	if err := h.repo.Create(c.Request.Context(), rec); err != nil {
		h.logger.Error("create recording row failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "Failed to upload recording")
		return
	}
	h.pub.PublishChange(eventID, models.TableEventRecordings, realtime.ChangeInsert, rec)

	ev, err := h.events.SetRecording(c.Request.Context(), eventID, key, "")
	if err != nil {
		h.logger.Error("set event recording_url failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "Failed to upload recording")
		return
	}
	h.pub.PublishChange(eventID, models.TableEvents, realtime.ChangeUpdate, ev)
	response.Created(c, rec)
}

// DownloadURL handles GET /recordings/:id/download-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	rec, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		response.NotFound(c, "recording not found")
		return
	}
	if err != nil {
		h.logger.Error("get recording failed", zap.Error(err))
		response.Internal(c, "failed to load recording")
		return
	}
	url, err := h.files.SignedURL(c.Request.Context(), h.files.RecordingsBucket(), rec.FilePath, h.urlTTL)
	if err != nil {
		h.logger.Error("presign recording download failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(h.urlTTL.Seconds())})
}
