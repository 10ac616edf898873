// Package embed issues iframe embed snippets for an event's live stream.
package embed

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/models"
)

var snippet = template.Must(template.New("embed").Parse(`<div id="igot-live-stream-{{.EventID}}" style="width: 100%; max-width: 1280px; aspect-ratio: 16/9;">
  <iframe 
    src="{{.URL}}"
    frameborder="0"
    allow="autoplay; fullscreen; picture-in-picture"
    allowfullscreen
    style="width: 100%; height: 100%;"
  ></iframe>
</div>
<script>
  // Auto-resize handler
  window.addEventListener('message', (e) => {
    if (e.data.type === 'resize' && e.data.eventId === '{{.EventID}}') {
      const iframe = document.querySelector('#igot-live-stream-{{.EventID}} iframe');
      if (iframe) iframe.style.height = e.data.height + 'px';
    }
  });
</script>`))

// EventGetter loads events; *events.Repository implements it.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Request is the body of POST /functions/get-stream-embed.
type Request struct {
	EventID string `json:"eventId"`
}

// EventSummary is the event block of the response.
type EventSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	ScheduledDate time.Time `json:"scheduledDate"`
}

// Result is the success body.
type Result struct {
	EmbedCode string       `json:"embedCode"`
	EmbedURL  string       `json:"embedUrl"`
	Event     EventSummary `json:"event"`
}

// Handler serves the embed-code function.
type Handler struct {
	events        EventGetter
	defaultOrigin string
	logger        *zap.Logger
}

// NewHandler creates an embed handler. defaultOrigin is used when the request has no Origin header.
func NewHandler(eventStore EventGetter, defaultOrigin string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{events: eventStore, defaultOrigin: strings.TrimRight(defaultOrigin, "/"), logger: logger}
}

// cleanOrigin accepts only a bare http(s)://host[:port] origin.
func cleanOrigin(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" || u.Opaque != "" || (u.Path != "" && u.Path != "/") {
		return "", false
	}
	if strings.ContainsAny(u.Host, "\"'<> ") {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}

// URL returns the public embed page for an event.
func URL(origin string, eventID uuid.UUID) string {
	return strings.TrimRight(origin, "/") + "/embed/" + eventID.String()
}

// Code renders the embed snippet for an event.
func Code(origin string, eventID uuid.UUID) (string, error) {
	var b strings.Builder
	err := snippet.Execute(&b, struct {
		EventID string
		URL     string
	}{eventID.String(), URL(origin, eventID)})
	return b.String(), err
}

// GetStreamEmbed handles POST /functions/get-stream-embed.
func (h *Handler) GetStreamEmbed(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.logger.Info("fetching embed code", zap.String("event_id", req.EventID))

	id, err := uuid.Parse(req.EventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	ev, err := h.events.GetByID(c.Request.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		h.logger.Error("load event for embed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load event"})
		return
	}

	origin, ok := cleanOrigin(c.GetHeader("Origin"))
	if !ok {
		origin = h.defaultOrigin
	}
	code, err := Code(origin, ev.ID)
	if err != nil {
		h.logger.Error("render embed snippet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render embed code"})
		return
	}
	c.JSON(http.StatusOK, Result{
		EmbedCode: code,
		EmbedURL:  URL(origin, ev.ID),
		Event: EventSummary{
			ID:            ev.ID,
			Title:         ev.Title,
			Status:        ev.Status,
			ScheduledDate: ev.ScheduledDate,
		},
	})
}
