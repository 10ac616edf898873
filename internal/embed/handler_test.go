package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/testfixtures"
)

type eventMap map[uuid.UUID]*models.Event

func (m eventMap) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	if e, ok := m[id]; ok {
		return e, nil
	}
	return nil, pgx.ErrNoRows
}

func post(t *testing.T, h *Handler, origin string, body any) *httptest.ResponseRecorder {
	t.Helper()
	r := testfixtures.Router()
	r.POST("/functions/get-stream-embed", h.GetStreamEmbed)
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/functions/get-stream-embed", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetStreamEmbed(t *testing.T) {
	id := uuid.New()
	when := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	h := NewHandler(eventMap{id: {ID: id, Title: "Keynote", Status: models.EventStatusLive, ScheduledDate: when}}, "https://live.example/", nil)

	w := post(t, h, "https://partner.example", Request{EventID: id.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "https://partner.example/embed/"+id.String(), res.EmbedURL)
	assert.Contains(t, res.EmbedCode, `<div id="igot-live-stream-`+id.String()+`"`)
	assert.Contains(t, res.EmbedCode, `src="https://partner.example/embed/`+id.String()+`"`)
	assert.Contains(t, res.EmbedCode, `e.data.eventId === '`+id.String()+`'`)
	assert.Equal(t, "Keynote", res.Event.Title)
	assert.Equal(t, models.EventStatusLive, res.Event.Status)
	assert.True(t, when.Equal(res.Event.ScheduledDate))

	w = post(t, h, "", Request{EventID: id.String()})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "https://live.example/embed/"+id.String(), res.EmbedURL)
}

func TestGetStreamEmbedNotFound(t *testing.T) {
	h := NewHandler(eventMap{}, "https://live.example", nil)
	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		w := post(t, h, "", Request{EventID: id})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Event not found"}`, w.Body.String())
	}
}

func TestGetStreamEmbedRejectsUnsafeOrigin(t *testing.T) {
	id := uuid.New()
	h := NewHandler(eventMap{id: {ID: id, Title: "Keynote", Status: models.EventStatusLive}}, "https://live.example", nil)

	for _, origin := range []string{
		`https://evil.example"><script>alert(1)</script>`,
		"javascript:alert(1)",
		"https://evil.example/path",
		"https://user@evil.example",
		"not an origin",
	} {
		t.Run(origin, func(t *testing.T) {
			w := post(t, h, origin, Request{EventID: id.String()})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var res Result
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, "https://live.example/embed/"+id.String(), res.EmbedURL)
			assert.NotContains(t, res.EmbedCode, "evil")
			assert.NotContains(t, res.EmbedCode, "<script>alert")
		})
	}

	w := post(t, h, "http://localhost:5173", Request{EventID: id.String()})
	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "http://localhost:5173/embed/"+id.String(), res.EmbedURL)
}
