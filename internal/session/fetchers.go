package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/models"
)

// Fetchers never surface read errors: they log and store an empty result.

func (s *Session) loadAll(ctx context.Context, t target) {
	s.loadEvent(ctx, t)
	s.loadMessages(ctx, t, models.ThreadChat)
	s.loadMessages(ctx, t, models.ThreadDiscussion)
	s.loadPolls(ctx, t)
	s.loadSurveys(ctx, t)
	s.loadRooms(ctx, t)
	s.loadRecordings(ctx, t)
	s.loadActivities(ctx, t)
}

func (s *Session) fetchFailed(t target, entity string, err error) {
	s.log(t).Warn("fetch failed", zap.String("entity", entity), zap.Error(err))
}

func (s *Session) loadEvent(ctx context.Context, t target) {
	ev, err := s.backend.GetEvent(ctx, t.eventID)
	if err != nil {
		s.fetchFailed(t, "event", err)
		ev = nil
	}
	s.apply(t, KindEvent, func() bool {
		s.event = ev
		return true
	})
}

func (s *Session) loadMessages(ctx context.Context, t target, thread models.Thread) {
	list, err := s.backend.ListMessages(ctx, t.eventID, thread)
	if err != nil {
		s.fetchFailed(t, thread.Table(), err)
		list = nil
	}
	kind := KindMessages
	if thread == models.ThreadDiscussion {
		kind = KindDiscussions
	}
	s.apply(t, kind, func() bool {
		s.thread(thread).Replace(list)
		return true
	})
}

func (s *Session) loadPolls(ctx context.Context, t target) {
	list, err := s.backend.ListPolls(ctx, t.eventID)
	if err != nil {
		s.fetchFailed(t, "polls", err)
		list = []models.Poll{}
	}
	s.apply(t, KindPolls, func() bool {
		s.polls = list
		return true
	})
}

func (s *Session) loadSurveys(ctx context.Context, t target) {
	list, err := s.backend.ListSurveys(ctx, t.eventID)
	if err != nil {
		s.fetchFailed(t, "surveys", err)
		list = []models.Survey{}
	}
	s.apply(t, KindSurveys, func() bool {
		s.surveys = list
		return true
	})
}

// loadRooms refreshes the active rooms with their occupancy and the user's current room.
func (s *Session) loadRooms(ctx context.Context, t target) {
	list, err := s.backend.ListRooms(ctx, t.eventID)
	if err != nil {
		s.fetchFailed(t, "rooms", err)
		list = []models.BreakoutRoom{}
	}
	cur, err := s.backend.CurrentRoom(ctx, t.eventID)
	if err != nil {
		s.fetchFailed(t, "current room", err)
		cur = nil
	}
	s.apply(t, KindRooms, func() bool {
		s.rooms = list
		s.currentRoom = cur
		return true
	})
}

func (s *Session) loadRecordings(ctx context.Context, t target) {
	list, err := s.backend.ListRecordings(ctx, t.eventID)
	if err != nil {
		s.fetchFailed(t, "recordings", err)
		list = []models.Recording{}
	}
	s.apply(t, KindRecordings, func() bool {
		s.recordings = list
		return true
	})
}

// loadActivities refreshes the activity log together with the stats derived from it.
func (s *Session) loadActivities(ctx context.Context, t target) {
	list, err := s.backend.ListActivities(ctx, t.eventID)
	if err != nil {
		s.fetchFailed(t, "activities", err)
		list = []models.ActivityLog{}
	}
	stats, err := s.backend.ActivityStats(ctx, t.eventID)
	if err != nil {
		s.fetchFailed(t, "activity stats", err)
		stats = &models.ActivityStats{}
	}
	s.apply(t, KindActivities, func() bool {
		s.activities = list
		s.stats = stats
		return true
	})
}

func (s *Session) thread(th models.Thread) *List[models.ChatMessage] {
	if th == models.ThreadDiscussion {
		return s.discussions
	}
	return s.messages
}
