package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/realtime"
	"github.com/igot-live/backend/internal/session"
)

var _ session.Feed = (*Feed)(nil)

// Feed opens one websocket per subscription against GET /ws.
type Feed struct {
	baseURL string
	token   func() string
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

// Feed returns a change feed that authenticates with the client's current token.
func (c *Client) Feed() *Feed {
	return &Feed{baseURL: c.baseURL, token: c.Token, dialer: websocket.DefaultDialer, logger: c.logger}
}

func (f *Feed) wsURL(eventID uuid.UUID, table string) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := url.Values{}
	q.Set("event_id", eventID.String())
	q.Set("token", f.token())
	q.Set("tables", table)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe dials the feed for one table of one event.
func (f *Feed) Subscribe(ctx context.Context, eventID uuid.UUID, table string) (session.Subscription, error) {
	target, err := f.wsURL(eventID, table)
	if err != nil {
		return nil, err
	}
	conn, resp, err := f.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial change feed %s: status %d: %w", table, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial change feed %s: %w", table, err)
	}
	s := &subscription{
		conn:    conn,
		changes: make(chan realtime.Change, 64),
		done:    make(chan struct{}),
		logger:  f.logger.With(zap.String("table", table), zap.String("event_id", eventID.String())),
	}
	go s.readLoop()
	return s, nil
}

type subscription struct {
	conn    *websocket.Conn
	changes chan realtime.Change
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger
}

func (s *subscription) Changes() <-chan realtime.Change { return s.changes }

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *subscription) readLoop() {
	defer close(s.changes)
	for {
		var msg realtime.WSMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Debug("change feed closed", zap.Error(err))
			}
			return
		}
		if msg.Event != realtime.EventChange {
			continue
		}
		var ch realtime.Change
		if err := json.Unmarshal(msg.Data, &ch); err != nil {
			s.logger.Warn("bad change message", zap.Error(err))
			continue
		}
		select {
		case s.changes <- ch:
		case <-s.done:
			return
		}
	}
}
