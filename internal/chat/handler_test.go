package chat

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/testfixtures"
)

type memStore struct {
	rows map[models.Thread][]models.ChatMessage
}

func (m *memStore) Insert(_ context.Context, thread models.Thread, msg *models.ChatMessage) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.rows[thread] = append(m.rows[thread], *msg)
	return nil
}

func (m *memStore) ListByEvent(_ context.Context, thread models.Thread, eventID uuid.UUID) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, r := range m.rows[thread] {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeFiles struct {
	uploads map[string][]byte
}

func (f *fakeFiles) Upload(_ context.Context, bucket, key, _ string, body io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploads[bucket+"/"+key] = b
	return key, nil
}

func (f *fakeFiles) SignedURL(_ context.Context, bucket, key string, expires time.Duration) (string, error) {
	return "https://signed.example/" + bucket + "/" + key + "?ttl=" + expires.String(), nil
}

func (f *fakeFiles) ChatFilesBucket() string      { return "chat-files" }
func (f *fakeFiles) PresignExpire() time.Duration    { return 15 * time.Minute }

type fixture struct {
	r        *gin.Engine
	store    *memStore
	files    *fakeFiles
	pub      *testfixtures.Publisher
	activity *testfixtures.Activity
	eventID  uuid.UUID
	userID   uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:    &memStore{rows: map[models.Thread][]models.ChatMessage{}},
		files:    &fakeFiles{uploads: map[string][]byte{}},
		pub:      &testfixtures.Publisher{},
		activity: &testfixtures.Activity{},
		eventID:  uuid.New(),
		userID:   uuid.New(),
	}
	h := NewHandler(f.store, f.files, f.pub, f.activity, nil)
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }
	f.r = testfixtures.Router()
	ev := f.r.Group("/events/:id", testfixtures.AsUser(f.userID), events.EventParam())
	ev.POST("/messages", h.Send(models.ThreadChat))
	ev.GET("/messages", h.List(models.ThreadChat))
	ev.POST("/discussions", h.Send(models.ThreadDiscussion))
	ev.GET("/discussions", h.List(models.ThreadDiscussion))
	ev.GET("/attachments", h.Attachment)
	return f
}

func (f *fixture) path(suffix string) string { return "/events/" + f.eventID.String() + suffix }

func TestOversizedFileRejectedBeforeUpload(t *testing.T) {
	f := newFixture()
	big := bytes.Repeat([]byte{'x'}, 11*1024*1024)

	w := testfixtures.DoMultipart(t, f.r, f.path("/messages"), map[string]string{"message": "see attached"},
		testfixtures.File{Field: "file", Name: "deck.pdf", ContentType: "application/pdf", Content: big})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File too large", testfixtures.Decode[any](t, w).Error)
	assert.Empty(t, f.files.uploads, "no storage call")
	assert.Empty(t, f.store.rows[models.ThreadChat], "no message row")
	assert.Empty(t, f.pub.Changes)
}

func TestSendRequiresTextOrFile(t *testing.T) {
	f := newFixture()
	w := testfixtures.DoMultipart(t, f.r, f.path("/messages"), map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.store.rows[models.ThreadChat])
}

func TestSendWithFileUploadsThenInserts(t *testing.T) {
	f := newFixture()
	w := testfixtures.DoMultipart(t, f.r, f.path("/messages"), nil,
		testfixtures.File{Field: "file", Name: "notes.txt", ContentType: "text/plain", Content: []byte("hello")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	wantKey := f.eventID.String() + "/" + f.userID.String() + "/1700000000000.txt"
	assert.Equal(t, []byte("hello"), f.files.uploads["chat-files/"+wantKey])

	msg := testfixtures.Decode[models.ChatMessage](t, w).Data
	require.NotNil(t, msg.FilePath)
	assert.Equal(t, wantKey, *msg.FilePath)
	assert.Equal(t, "notes.txt", *msg.FileName)
	assert.Equal(t, int64(5), *msg.FileSize)
	assert.Empty(t, msg.Message)

	assert.Equal(t, []string{models.TableChatMessages}, f.pub.Tables())
	assert.Equal(t, []string{models.ActivityChat}, f.activity.Types())
}

func TestDiscussionThreadIsSeparate(t *testing.T) {
	f := newFixture()
	w := testfixtures.DoMultipart(t, f.r, f.path("/discussions"), map[string]string{"message": " great talk "})
	require.Equal(t, http.StatusCreated, w.Code)

	w = testfixtures.DoJSON(t, f.r, http.MethodGet, f.path("/discussions"), nil)
	got := testfixtures.Decode[[]models.ChatMessage](t, w).Data
	require.Len(t, got, 1)
	assert.Equal(t, "great talk", got[0].Message)

	w = testfixtures.DoJSON(t, f.r, http.MethodGet, f.path("/messages"), nil)
	assert.Empty(t, testfixtures.Decode[[]models.ChatMessage](t, w).Data)

	assert.Equal(t, []string{models.TablePostEventDiscussions}, f.pub.Tables())
	assert.Empty(t, f.activity.Entries, "discussion posts are not chat activity")
}

func TestAttachmentScopedToEvent(t *testing.T) {
	f := newFixture()
	w := testfixtures.DoJSON(t, f.r, http.MethodGet, f.path("/attachments?path="+uuid.NewString()+"/u/1.png"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testfixtures.DoJSON(t, f.r, http.MethodGet, f.path("/attachments?path="+f.eventID.String()+"/u/1.png"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := testfixtures.Decode[map[string]any](t, w).Data
	assert.Contains(t, data["url"], "chat-files/"+f.eventID.String())
}
