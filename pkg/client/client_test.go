package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
	"github.com/igot-live/backend/internal/session"
	"github.com/igot-live/backend/pkg/response"
)

const token = "test-token"

func platform(t *testing.T, setup func(r *gin.Engine)) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path != "/ws" && c.GetHeader("Authorization") != "Bearer "+token {
			response.Abort(c, http.StatusUnauthorized, "missing token")
			return
		}
		c.Next()
	})
	r.NoRoute(func(c *gin.Context) { response.NotFound(c, "not found") })
	setup(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL, token, srv.Client(), zap.NewNop())
}

func TestGetEventDecodesEnvelope(t *testing.T) {
	ev := models.Event{ID: uuid.New(), Title: "Town hall", Status: models.EventStatusLive}
	c := platform(t, func(r *gin.Engine) {
		r.GET("/events/:id", func(c *gin.Context) {
			if c.Param("id") != ev.ID.String() {
				response.NotFound(c, "event not found")
				return
			}
			response.OK(c, ev)
		})
	})

	got, err := c.GetEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Town hall", got.Title)

	_, err = c.GetEvent(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "event not found")
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	c := platform(t, func(r *gin.Engine) {})
	c.token = ""

	_, err := c.ListPolls(context.Background(), uuid.New())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestCurrentRoomNull(t *testing.T) {
	c := platform(t, func(r *gin.Engine) {
		r.GET("/events/:id/rooms/current", func(c *gin.Context) { response.OK(c, nil) })
	})

	m, err := c.CurrentRoom(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSendMessageUploadsMultipart(t *testing.T) {
	eventID := uuid.New()
	c := platform(t, func(r *gin.Engine) {
		r.POST("/events/:id/discussions", func(c *gin.Context) {
			fh, err := c.FormFile("file")
			if err != nil {
				response.BadRequest(c, err.Error())
				return
			}
			f, _ := fh.Open()
			body, _ := io.ReadAll(f)
			name, size := fh.Filename, int64(len(body))
			response.Created(c, models.ChatMessage{
				ID:       uuid.New(),
				Message:  c.PostForm("message"),
				FileName: &name,
				FileSize: &size,
				FilePath: &name,
			})
		})
	})

	file := &session.Attachment{Name: "notes.txt", ContentType: "text/plain", Size: 5, Body: strings.NewReader("hello")}
	m, err := c.SendMessage(context.Background(), eventID, models.ThreadDiscussion, "see notes", file)
	require.NoError(t, err)
	assert.Equal(t, "see notes", m.Message)
	assert.Equal(t, "notes.txt", *m.FileName)
	assert.Equal(t, int64(5), *m.FileSize)
}

func TestSendInvitationsBody(t *testing.T) {
	var (
		mu  sync.Mutex
		got []map[string]string
	)
	c := platform(t, func(r *gin.Engine) {
		r.POST("/events/:id/invitations", func(c *gin.Context) {
			var body map[string]string
			_ = c.ShouldBindJSON(&body)
			mu.Lock()
			got = append(got, body)
			mu.Unlock()
			response.Created(c, []models.Invitation{})
		})
	})

	_, err := c.SendInvitations(context.Background(), uuid.New(), []string{"a@x.com"})
	require.NoError(t, err)
	_, err = c.SendInvitations(context.Background(), uuid.New(), []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{"email": "a@x.com"}, got[0])
	assert.Equal(t, map[string]string{"emails": "a@x.com\nb@x.com"}, got[1])
}

func TestSetPollActiveRoutes(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c := platform(t, func(r *gin.Engine) {
		h := func(c *gin.Context) {
			mu.Lock()
			paths = append(paths, c.Request.URL.Path)
			mu.Unlock()
			response.OK(c, models.Poll{})
		}
		r.POST("/polls/:id/activate", h)
		r.POST("/polls/:id/close", h)
	})
	id := uuid.New()

	_, err := c.SetPollActive(context.Background(), id, true)
	require.NoError(t, err)
	_, err = c.SetPollActive(context.Background(), id, false)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/polls/" + id.String() + "/activate", "/polls/" + id.String() + "/close"}, paths)
}

func TestFeedDeliversHubChanges(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop(), nil, nil)
	userID := uuid.New()
	c := platform(t, func(r *gin.Engine) {
		r.GET("/ws", realtime.ServeWs(hub, zap.NewNop(), func(tok string) (uuid.UUID, error) {
			if tok != token {
				return uuid.Nil, assert.AnError
			}
			return userID, nil
		}))
	})
	eventID := uuid.New()

	sub, err := c.Feed().Subscribe(context.Background(), eventID, models.TableChatMessages)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.AudienceCount(eventID) == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.PublishChange(eventID, models.TableEventPolls, realtime.ChangeInsert, map[string]string{"id": "p1"})
	hub.PublishChange(eventID, models.TableChatMessages, realtime.ChangeInsert, map[string]string{"id": "m1"})

	select {
	case ch := <-sub.Changes():
		assert.Equal(t, models.TableChatMessages, ch.Table)
		assert.Equal(t, eventID, ch.EventID)
		assert.JSONEq(t, `{"id":"m1"}`, string(ch.Record))
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	require.NoError(t, sub.Close())
	_ = sub.Close()
	for range sub.Changes() {
	}
}

func TestFeedRejectsBadToken(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop(), nil, nil)
	c := platform(t, func(r *gin.Engine) {
		r.GET("/ws", realtime.ServeWs(hub, zap.NewNop(), func(string) (uuid.UUID, error) {
			return uuid.Nil, assert.AnError
		}))
	})

	_, err := c.Feed().Subscribe(context.Background(), uuid.New(), models.TableEvents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSessionOverClient(t *testing.T) {
	ev := models.Event{ID: uuid.New(), Title: "Webinar", Status: models.EventStatusEnded}
	c := platform(t, func(r *gin.Engine) {
		r.GET("/events/:id", func(c *gin.Context) { response.OK(c, ev) })
		r.GET("/events/:id/polls", func(c *gin.Context) { response.Internal(c, "boom") })
	})

	s, err := session.Open(context.Background(), session.Options{EventID: ev.ID, Backend: c})
	require.NoError(t, err)
	defer s.Close()

	snap := s.Snapshot()
	assert.Equal(t, session.PhaseEnded, snap.Phase)
	assert.Equal(t, "Webinar", snap.Event.Title)
	assert.Empty(t, snap.Polls)
}
