package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // token in the query string authenticates; origin is not trusted anyway
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// subscribeRequest is the body of a client "subscribe" message replacing its table filter.
type subscribeRequest struct {
	Tables []string `json:"tables"`
}

// Client represents a single WebSocket connection watching one event.
type Client struct {
	ID      string
	EventID uuid.UUID
	UserID  uuid.UUID
	hub     *Hub
	conn    *websocket.Conn
	send    chan WSMessage
	logger  *zap.Logger

	mu     sync.RWMutex
	tables map[string]bool // empty means every table
}

// NewClient builds a client; conn may be nil when the client is only used for fan-out.
func NewClient(hub *Hub, conn *websocket.Conn, eventID, userID uuid.UUID, tables []string, logger *zap.Logger) *Client {
	c := &Client{
		ID:      uuid.New().String(),
		EventID: eventID,
		UserID:  userID,
		hub:     hub,
		conn:    conn,
		send:    make(chan WSMessage, 256),
		logger:  logger,
	}
	c.SetTables(tables)
	return c
}

// SetTables replaces the table filter.
func (c *Client) SetTables(tables []string) {
	m := make(map[string]bool, len(tables))
	for _, t := range tables {
		if t = strings.TrimSpace(t); t != "" {
			m[t] = true
		}
	}
	c.mu.Lock()
	c.tables = m
	c.mu.Unlock()
}

// Watches reports whether changes to table should reach this client.
func (c *Client) Watches(table string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables) == 0 || c.tables[table]
}

// ServeWs handles GET /ws?event_id=&token=&tables=a,b and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, jwtValidate func(token string) (uuid.UUID, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventIDStr := c.Query("event_id")
		token := c.Query("token")
		if eventIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_id and token required"})
			return
		}
		eventID, err := uuid.Parse(eventIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
		userID, err := jwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		var tables []string
		if q := c.Query("tables"); q != "" {
			tables = strings.Split(q, ",")
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(hub, conn, eventID, userID, tables, logger)
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "subscribe":
			var req subscribeRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				c.logger.Debug("bad subscribe message", zap.String("client_id", c.ID), zap.Error(err))
				continue
			}
			c.SetTables(req.Tables)
		default:
			// the feed is server-to-client only
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
