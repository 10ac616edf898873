package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventChange is the WebSocket envelope event carrying a Change.
	EventChange = "change"
)

// ChangeType is the kind of row write a Change describes.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// Change is one row-change notification, scoped to an event.
type Change struct {
	Table   string          `json:"table"`
	Type    ChangeType      `json:"type"`
	EventID uuid.UUID       `json:"event_id"`
	Record  json.RawMessage `json:"record"`
}

// Publisher is what write paths use to announce row changes.
type Publisher interface {
	PublishChange(eventID uuid.UUID, table string, typ ChangeType, record interface{})
}

// Hub maintains event_id -> set of connections and fans out changes.
// Uses Redis pub/sub for horizontal scaling; with Redis configured every change goes through it once.
type Hub struct {
	// eventID -> map[clientID]*Client
	events map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func() // cancel Redis subscription per event
	// subscribing marks events whose Redis subscription is in flight
	subscribing map[uuid.UUID]bool
	mu          sync.RWMutex
	logger      *zap.Logger
	redis       RedisPublisher
	redisSub    RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishEventChange(eventID uuid.UUID, payload []byte) error
}

// RedisSubscriber subscribes to event channels and invokes handler for incoming changes.
type RedisSubscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		events:      make(map[uuid.UUID]map[string]*Client),
		subs:        make(map[uuid.UUID]func()),
		subscribing: make(map[uuid.UUID]bool),
		logger:      logger,
		redis:       redisPub,
		redisSub:    redisSub,
	}
}

// Register adds a client to an event room. The first client starts the Redis subscription for
// the event; a failed subscription is retried by the next Register.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.events[c.EventID] == nil {
		h.events[c.EventID] = make(map[string]*Client)
	}
	h.events[c.EventID][c.ID] = c
	count := len(h.events[c.EventID])
	needSub := h.redisSub != nil && h.subs[c.EventID] == nil && !h.subscribing[c.EventID]
	if needSub {
		h.subscribing[c.EventID] = true
	}
	h.mu.Unlock()

	if needSub {
		h.subscribe(c.EventID)
	}
	h.logger.Debug("client joined event",
		zap.String("client_id", c.ID),
		zap.String("event_id", c.EventID.String()),
		zap.Int("connected", count),
	)
}

// subscribe runs the Redis round-trip without holding the hub lock.
func (h *Hub) subscribe(eventID uuid.UUID) {
	cancel, err := h.redisSub.SubscribeEvent(eventID, func(payload []byte) {
		var ch Change
		if err := json.Unmarshal(payload, &ch); err != nil {
			h.logger.Warn("invalid change from redis", zap.Error(err))
			return
		}
		h.Broadcast(ch)
	})

	h.mu.Lock()
	delete(h.subscribing, eventID)
	if err == nil && h.events[eventID] != nil {
		h.subs[eventID] = cancel
		cancel = nil
	}
	h.mu.Unlock()

	if err != nil {
		h.logger.Error("redis subscribe failed, delivering locally", zap.String("event_id", eventID.String()), zap.Error(err))
		return
	}
	if cancel != nil {
		// every client left while subscribing
		cancel()
	}
}

// relayed reports whether this instance receives the event's changes back from Redis.
func (h *Hub) relayed(eventID uuid.UUID) bool {
	if h.redisSub == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs[eventID] != nil
}

// Unregister removes a client from an event room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.events[c.EventID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.events, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left event", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Broadcast delivers a change to local clients of its event that watch its table.
func (h *Hub) Broadcast(ch Change) {
	data, err := json.Marshal(ch)
	if err != nil {
		return
	}
	msg := WSMessage{Event: EventChange, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.events[ch.EventID] {
		if !c.Watches(ch.Table) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client buffer full, dropping change",
				zap.String("client_id", c.ID),
				zap.String("table", ch.Table),
			)
		}
	}
}

// PublishChange publishes to Redis when configured, so the subscriber callback performs the
// broadcast once for all instances (including this one). Local clients are served directly when
// there is no Redis, or when this instance holds no working subscription for the event.
func (h *Hub) PublishChange(eventID uuid.UUID, table string, typ ChangeType, record interface{}) {
	raw, err := json.Marshal(record)
	if err != nil {
		h.logger.Error("marshal change record", zap.String("table", table), zap.Error(err))
		return
	}
	ch := Change{Table: table, Type: typ, EventID: eventID, Record: raw}
	if h.redis != nil {
		data, err := json.Marshal(ch)
		if err != nil {
			return
		}
		err = h.redis.PublishEventChange(eventID, data)
		if err != nil {
			h.logger.Error("redis publish failed", zap.String("table", table), zap.Error(err))
		}
		if err == nil && h.relayed(eventID) {
			return
		}
	}
	h.Broadcast(ch)
}

// AudienceCount returns the number of connected clients in an event.
func (h *Hub) AudienceCount(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events[eventID])
}

// Nop discards changes. Used where no fan-out is wired.
type Nop struct{}

// PublishChange implements Publisher.
func (Nop) PublishChange(uuid.UUID, string, ChangeType, interface{}) {}
