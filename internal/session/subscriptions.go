package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/realtime"
)

type activeSub struct {
	sub    Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// subscriptions holds at most one feed per table for the current event.
type subscriptions struct {
	feed   Feed
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*activeSub
}

func newSubscriptions(feed Feed, logger *zap.Logger) *subscriptions {
	return &subscriptions{feed: feed, logger: logger, active: make(map[string]*activeSub)}
}

// subscribe replaces any existing feed for table and folds each change for eventID until stopped.
// fold runs on the feed's goroutine; changes for other events or tables are dropped.
func (m *subscriptions) subscribe(ctx context.Context, eventID uuid.UUID, table string, fold func(realtime.Change)) error {
	m.mu.Lock()
	prev := m.active[table]
	delete(m.active, table)
	m.mu.Unlock()
	if prev != nil {
		prev.stop()
	}

	sub, err := m.feed.Subscribe(ctx, eventID, table)
	if err != nil {
		return err
	}
	subCtx, cancel := context.WithCancel(ctx)
	a := &activeSub{sub: sub, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(a.done)
		for {
			select {
			case <-subCtx.Done():
				return
			case ch, ok := <-sub.Changes():
				if !ok {
					m.logger.Debug("change feed ended", zap.String("table", table))
					return
				}
				if ch.EventID != eventID || ch.Table != table {
					continue
				}
				fold(ch)
			}
		}
	}()

	m.mu.Lock()
	old := m.active[table]
	m.active[table] = a
	m.mu.Unlock()
	if old != nil {
		old.stop()
	}
	return nil
}

// closeAll releases every feed and waits for their goroutines.
func (m *subscriptions) closeAll() {
	m.mu.Lock()
	all := m.active
	m.active = make(map[string]*activeSub)
	m.mu.Unlock()
	for _, a := range all {
		a.stop()
	}
}

func (m *subscriptions) tables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.active))
	for t := range m.active {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (a *activeSub) stop() {
	a.cancel()
	_ = a.sub.Close()
	<-a.done
}
