package session

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
)

type foldStrategy int

const (
	// foldAppend appends the change's row, skipping ids already present.
	foldAppend foldStrategy = iota
	// foldRefetch reloads the entity because derived values (tallies, occupancy, stats) changed.
	foldRefetch
	// foldReplace swaps in the changed row.
	foldReplace
)

type watch struct {
	table    string
	strategy foldStrategy
	reload   func(s *Session, ctx context.Context, t target)
}

var watches = []watch{
	{table: models.TableEvents, strategy: foldReplace},
	{table: models.TableChatMessages, strategy: foldAppend},
	{table: models.TablePostEventDiscussions, strategy: foldAppend},
	{table: models.TableEventPolls, strategy: foldRefetch, reload: (*Session).loadPolls},
	{table: models.TablePollResponses, strategy: foldRefetch, reload: (*Session).loadPolls},
	{table: models.TableEventSurveys, strategy: foldRefetch, reload: (*Session).loadSurveys},
	{table: models.TableBreakoutRooms, strategy: foldRefetch, reload: (*Session).loadRooms},
	{table: models.TableBreakoutRoomParticipants, strategy: foldRefetch, reload: (*Session).loadRooms},
	{table: models.TableEventRecordings, strategy: foldRefetch, reload: (*Session).loadRecordings},
	{table: models.TableParticipantActivities, strategy: foldRefetch, reload: (*Session).loadActivities},
}

// WatchedTables lists the tables a session subscribes to, one feed each.
func WatchedTables() []string {
	out := make([]string, len(watches))
	for i, w := range watches {
		out[i] = w.table
	}
	return out
}

func (s *Session) subscribeAll(t target) {
	if s.subs == nil {
		return
	}
	for _, w := range watches {
		w := w
		fold := func(ch realtime.Change) { s.fold(t, w, ch) }
		if err := s.subs.subscribe(s.ctx, t.eventID, w.table, fold); err != nil {
			// the panel stays on its last fetch
			s.log(t).Warn("subscribe failed", zap.String("table", w.table), zap.Error(err))
		}
	}
}

func (s *Session) fold(t target, w watch, ch realtime.Change) {
	switch w.strategy {
	case foldRefetch:
		w.reload(s, s.ctx, t)
	case foldAppend:
		var m models.ChatMessage
		if err := json.Unmarshal(ch.Record, &m); err != nil {
			s.log(t).Warn("bad change record", zap.String("table", ch.Table), zap.Error(err))
			return
		}
		thread, kind := models.ThreadChat, KindMessages
		if w.table == models.TablePostEventDiscussions {
			thread, kind = models.ThreadDiscussion, KindDiscussions
		}
		s.apply(t, kind, func() bool { return s.thread(thread).Append(m) })
	case foldReplace:
		var ev models.Event
		if err := json.Unmarshal(ch.Record, &ev); err != nil {
			s.log(t).Warn("bad change record", zap.String("table", ch.Table), zap.Error(err))
			return
		}
		if ev.ID != t.eventID {
			return
		}
		s.apply(t, KindEvent, func() bool {
			s.event = &ev
			return true
		})
	}
}
