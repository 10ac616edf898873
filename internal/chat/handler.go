package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/activity"
	"github.com/igot-live/backend/internal/auth"
	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
	"github.com/igot-live/backend/pkg/response"
	"github.com/igot-live/backend/pkg/storage"
)

// maxRequestBody bounds the multipart body; the attachment itself is checked against MaxAttachmentSize.
const maxRequestBody = 2 * models.MaxAttachmentSize

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	Insert(ctx context.Context, thread models.Thread, m *models.ChatMessage) error
	ListByEvent(ctx context.Context, thread models.Thread, eventID uuid.UUID) ([]models.ChatMessage, error)
}

// FileStore is the object storage the handler needs; *storage.S3 implements it.
type FileStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error)
	SignedURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	ChatFilesBucket() string
	PresignExpire() time.Duration
}

// Handler serves chat and post-event discussion threads.
type Handler struct {
	repo     Store
	files    FileStore
	pub      realtime.Publisher
	activity activity.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a chat handler.
func NewHandler(repo Store, files FileStore, pub realtime.Publisher, rec activity.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, files: files, pub: pub, activity: rec, logger: logger, now: time.Now}
}

// Send handles POST /events/:id/messages and /events/:id/discussions (multipart: message, file).
func (h *Handler) Send(thread models.Thread) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID := events.EventID(c)
		userID, _ := auth.UserID(c)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody)

		text := strings.TrimSpace(c.PostForm("message"))
		fh, err := c.FormFile("file")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			response.BadRequest(c, "invalid upload: "+err.Error())
			return
		}
		if err := models.ValidateMessage(text, fh != nil); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		msg := &models.ChatMessage{EventID: eventID, UserID: userID, Message: text}
		if fh != nil {
			if err := models.CheckAttachmentSize(fh.Size); err != nil {
				response.BadRequest(c, err.Error())
				return
			}
			f, err := fh.Open()
			if err != nil {
				response.BadRequest(c, "cannot read file")
				return
			}
			defer f.Close()

			key := storage.ChatFileKey(eventID.String(), userID.String(), h.now(), fh.Filename)
			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = storage.ContentTypeForFilename(fh.Filename)
			}
			if _, err := h.files.Upload(c.Request.Context(), h.files.ChatFilesBucket(), key, ct, f, fh.Size); err != nil {
				h.logger.Error("chat upload", zap.String("event_id", eventID.String()), zap.Error(err))
				response.Internal(c, "Failed to send message")
				return
			}
			name, size := fh.Filename, fh.Size
			msg.FilePath, msg.FileName, msg.FileSize = &key, &name, &size
		}

		if err := h.repo.Insert(c.Request.Context(), thread, msg); err != nil {
			h.logger.Error("insert message", zap.String("table", thread.Table()), zap.Error(err))
			response.Internal(c, "Failed to send message")
			return
		}
		h.pub.PublishChange(eventID, thread.Table(), realtime.ChangeInsert, msg)
		if thread == models.ThreadChat {
			h.activity.Record(c.Request.Context(), eventID, userID, models.ActivityChat, map[string]any{
				"message_id": msg.ID,
				"has_file":   msg.HasFile(),
			})
		}
		response.Created(c, msg)
	}
}

// List handles GET /events/:id/messages and /events/:id/discussions.
func (h *Handler) List(thread models.Thread) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.repo.ListByEvent(c.Request.Context(), thread, events.EventID(c))
		if err != nil {
			h.logger.Error("list messages", zap.String("table", thread.Table()), zap.Error(err))
			response.Internal(c, "failed to list messages")
			return
		}
		response.OK(c, list)
	}
}

// Attachment handles GET /events/:id/attachments?path= and returns a signed download URL.
func (h *Handler) Attachment(c *gin.Context) {
	eventID := events.EventID(c)
	key := c.Query("path")
	if key == "" {
		response.BadRequest(c, "path is required")
		return
	}
	if !storage.KeyBelongsToEvent(key, eventID.String()) {
		response.Forbidden(c, "file does not belong to this event")
		return
	}
	url, err := h.files.SignedURL(c.Request.Context(), h.files.ChatFilesBucket(), key, h.files.PresignExpire())
	if err != nil {
		h.logger.Error("sign attachment", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to sign url")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in": int(h.files.PresignExpire().Seconds())})
}
