package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recv(t *testing.T, c *Client) (Change, bool) {
	t.Helper()
	select {
	case msg := <-c.send:
		var ch Change
		require.Equal(t, EventChange, msg.Event)
		require.NoError(t, json.Unmarshal(msg.Data, &ch))
		return ch, true
	case <-time.After(50 * time.Millisecond):
		return Change{}, false
	}
}

func TestHubRoutesByEventAndTable(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	ev, other := uuid.New(), uuid.New()

	chat := NewClient(hub, nil, ev, uuid.New(), []string{"chat_messages"}, zap.NewNop())
	all := NewClient(hub, nil, ev, uuid.New(), nil, zap.NewNop())
	elsewhere := NewClient(hub, nil, other, uuid.New(), nil, zap.NewNop())
	for _, c := range []*Client{chat, all, elsewhere} {
		hub.Register(c)
	}
	assert.Equal(t, 2, hub.AudienceCount(ev))

	hub.PublishChange(ev, "event_polls", ChangeInsert, map[string]string{"id": "p1"})

	_, ok := recv(t, chat)
	assert.False(t, ok, "chat-only client must not see polls")
	got, ok := recv(t, all)
	require.True(t, ok)
	assert.Equal(t, "event_polls", got.Table)
	assert.Equal(t, ChangeInsert, got.Type)
	assert.JSONEq(t, `{"id":"p1"}`, string(got.Record))
	_, ok = recv(t, elsewhere)
	assert.False(t, ok)

	hub.PublishChange(ev, "chat_messages", ChangeInsert, map[string]string{"id": "m1"})
	_, ok = recv(t, chat)
	assert.True(t, ok)

	hub.Unregister(chat)
	hub.Unregister(chat) // second call is a no-op
	assert.Equal(t, 1, hub.AudienceCount(ev))
}

type loopbackRedis struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]func([]byte)
	publish  int
}

func (l *loopbackRedis) PublishEventChange(eventID uuid.UUID, payload []byte) error {
	l.mu.Lock()
	l.publish++
	h := l.handlers[eventID]
	l.mu.Unlock()
	if h != nil {
		h(payload)
	}
	return nil
}

func (l *loopbackRedis) SubscribeEvent(eventID uuid.UUID, handler func([]byte)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[eventID] = handler
	return func() {
		l.mu.Lock()
		delete(l.handlers, eventID)
		l.mu.Unlock()
	}, nil
}

func TestHubDeliversOnceThroughRedis(t *testing.T) {
	r := &loopbackRedis{handlers: map[uuid.UUID]func([]byte){}}
	hub := NewHub(zap.NewNop(), r, r)
	ev := uuid.New()
	c := NewClient(hub, nil, ev, uuid.New(), nil, zap.NewNop())
	hub.Register(c)

	hub.PublishChange(ev, "chat_messages", ChangeInsert, map[string]string{"id": "m1"})

	_, ok := recv(t, c)
	require.True(t, ok)
	_, ok = recv(t, c)
	assert.False(t, ok, "local clients get exactly one copy")
	assert.Equal(t, 1, r.publish)

	hub.Unregister(c)
	r.mu.Lock()
	assert.Empty(t, r.handlers, "last client leaving cancels the subscription")
	r.mu.Unlock()
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop(), nil, nil)
	uid := uuid.New()
	ev := uuid.New()

	r := gin.New()
	r.GET("/ws", ServeWs(hub, zap.NewNop(), func(token string) (uuid.UUID, error) {
		if token != "good" {
			return uuid.Nil, assert.AnError
		}
		return uid, nil
	}))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?event_id="+ev.String()+"&token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?event_id="+ev.String()+"&token=good&tables=event_recordings", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.AudienceCount(ev) == 1 }, time.Second, 10*time.Millisecond)
	hub.PublishChange(ev, "chat_messages", ChangeInsert, map[string]string{"id": "skip"})
	hub.PublishChange(ev, "event_recordings", ChangeInsert, map[string]string{"id": "rec"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	var ch Change
	require.NoError(t, json.Unmarshal(msg.Data, &ch))
	assert.Equal(t, "event_recordings", ch.Table)
	assert.Equal(t, ev, ch.EventID)
}

// flakyRedis fails the first subscribe attempts, then behaves like loopbackRedis.
type flakyRedis struct {
	loopbackRedis
	fail     int
	attempts int
}

func (f *flakyRedis) SubscribeEvent(eventID uuid.UUID, handler func([]byte)) (func(), error) {
	f.mu.Lock()
	f.attempts++
	failing := f.attempts <= f.fail
	f.mu.Unlock()
	if failing {
		return nil, assert.AnError
	}
	return f.loopbackRedis.SubscribeEvent(eventID, handler)
}

func TestHubDeliversLocallyWhenRedisSubscribeFails(t *testing.T) {
	r := &flakyRedis{loopbackRedis: loopbackRedis{handlers: map[uuid.UUID]func([]byte){}}, fail: 1}
	hub := NewHub(zap.NewNop(), r, r)
	ev := uuid.New()
	first := NewClient(hub, nil, ev, uuid.New(), nil, zap.NewNop())
	hub.Register(first)

	hub.PublishChange(ev, "chat_messages", ChangeInsert, map[string]string{"id": "m1"})
	got, ok := recv(t, first)
	require.True(t, ok, "local clients still get changes without a subscription")
	assert.JSONEq(t, `{"id":"m1"}`, string(got.Record))
	_, ok = recv(t, first)
	assert.False(t, ok)

	// the next client retries the subscription; delivery then runs through Redis once
	second := NewClient(hub, nil, ev, uuid.New(), nil, zap.NewNop())
	hub.Register(second)
	assert.Equal(t, 2, r.attempts)

	hub.PublishChange(ev, "event_polls", ChangeInsert, map[string]string{"id": "p1"})
	for _, c := range []*Client{first, second} {
		_, ok := recv(t, c)
		require.True(t, ok)
		_, ok = recv(t, c)
		assert.False(t, ok, "exactly one copy once Redis relays")
	}
	assert.Equal(t, 2, r.publish)
}

func TestHubRegisterDoesNotBlockBroadcast(t *testing.T) {
	release := make(chan struct{})
	r := &blockingRedis{
		loopbackRedis: loopbackRedis{handlers: map[uuid.UUID]func([]byte){}},
		release:       release,
		entered:       make(chan struct{}),
	}
	hub := NewHub(zap.NewNop(), r, r)
	ev, other := uuid.New(), uuid.New()
	local := NewClient(hub, nil, other, uuid.New(), nil, zap.NewNop())
	hub.events[other] = map[string]*Client{local.ID: local}

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Register(NewClient(hub, nil, ev, uuid.New(), nil, zap.NewNop()))
	}()
	<-r.entered

	hub.Broadcast(Change{Table: "events", Type: ChangeUpdate, EventID: other, Record: json.RawMessage(`{}`)})
	_, ok := recv(t, local)
	assert.True(t, ok, "broadcast proceeds while a subscribe is in flight")

	close(release)
	<-done
	assert.Equal(t, 1, hub.AudienceCount(ev))
}

// blockingRedis holds SubscribeEvent until release is closed.
type blockingRedis struct {
	loopbackRedis
	release <-chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (b *blockingRedis) SubscribeEvent(eventID uuid.UUID, handler func([]byte)) (func(), error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.loopbackRedis.SubscribeEvent(eventID, handler)
}
