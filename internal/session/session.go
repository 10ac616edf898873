// Package session is the live-event view-model: it aggregates an event's entity lists,
// keeps them current from realtime change feeds, runs user actions against the platform,
// and derives the phase and panels a client renders.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/models"
)

// Kind names the part of the snapshot an update touched.
type Kind int

const (
	KindEvent Kind = iota
	KindMessages
	KindDiscussions
	KindPolls
	KindSurveys
	KindRooms
	KindRecordings
	KindActivities
	KindCaption
	KindDevice
	kindCount
)

var kindNames = [kindCount]string{"event", "messages", "discussions", "polls", "surveys", "rooms", "recordings", "activities", "caption", "device"}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Options configures Open. Backend and EventID are required.
type Options struct {
	EventID    uuid.UUID
	Backend    Backend
	Feed       Feed     // nil disables realtime updates
	Notifier   Notifier // nil logs notifications
	Devices    *DeviceController
	Speech     SpeechToText
	Translator Translator
	Logger     *zap.Logger
}

// target identifies one load generation; Retarget starts a new one and stale results are dropped.
type target struct {
	eventID uuid.UUID
	gen     uint64
}

// Session is one open event view. Create with Open and release with Close.
type Session struct {
	backend    Backend
	notifier   Notifier
	devices    *DeviceController
	speech     SpeechToText
	translator Translator
	logger     *zap.Logger
	subs       *subscriptions

	ctx    context.Context
	cancel context.CancelFunc

	lifecycle sync.Mutex // serializes Retarget and Close

	mu           sync.RWMutex
	closed       bool
	tgt          target
	event        *models.Event
	endedLocally bool
	messages     *List[models.ChatMessage]
	discussions  *List[models.ChatMessage]
	polls        []models.Poll
	surveys      []models.Survey
	rooms        []models.BreakoutRoom
	currentRoom  *models.BreakoutRoomParticipant
	recordings   []models.Recording
	activities   []models.ActivityLog
	stats        *models.ActivityStats
	caption      Caption
	captions     *captionRun

	pending [kindCount]atomic.Bool
	queue   chan Kind
	updates chan Kind
	done    chan struct{}
}

// Open loads the event's entities and subscribes to their change feeds.
// Read failures leave the affected list empty; they never fail Open.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Backend == nil {
		return nil, errors.New("session: backend is required")
	}
	if opts.EventID == uuid.Nil {
		return nil, errors.New("session: event id is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		backend:    opts.Backend,
		notifier:   notifier,
		devices:    opts.Devices,
		speech:     opts.Speech,
		translator: opts.Translator,
		logger:     logger,
		ctx:        base,
		cancel:     cancel,
		tgt:        target{eventID: opts.EventID, gen: 1},
		queue:      make(chan Kind, kindCount),
		updates:    make(chan Kind),
		done:       make(chan struct{}),
	}
	s.resetLocked()
	if opts.Feed != nil {
		s.subs = newSubscriptions(opts.Feed, s.logger)
	}
	if s.devices != nil {
		s.devices.onChange = func() { s.notify(KindDevice) }
	}
	go s.forward()

	s.loadAll(ctx, s.tgt)
	s.subscribeAll(s.tgt)
	return s, nil
}

func (s *Session) resetLocked() {
	s.event = nil
	s.endedLocally = false
	s.messages = NewList(messageID)
	s.discussions = NewList(messageID)
	s.polls, s.surveys, s.rooms = nil, nil, nil
	s.currentRoom = nil
	s.recordings, s.activities, s.stats = nil, nil, nil
	s.caption = Caption{}
}

// Retarget switches the session to another event: feeds are torn down, lists reloaded, feeds reopened.
func (s *Session) Retarget(ctx context.Context, eventID uuid.UUID) error {
	if eventID == uuid.Nil {
		return invalid("event id is required")
	}
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.StopCaptions()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.tgt = target{eventID: eventID, gen: s.tgt.gen + 1}
	t := s.tgt
	s.resetLocked()
	s.mu.Unlock()

	if s.subs != nil {
		s.subs.closeAll()
	}
	for k := Kind(0); k < kindCount; k++ {
		s.notify(k)
	}
	s.loadAll(ctx, t)
	s.subscribeAll(t)
	return nil
}

// Close releases feeds, captions and media tracks. It is safe to call more than once.
func (s *Session) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	run := s.captions
	s.captions = nil
	s.mu.Unlock()

	s.cancel()
	if run != nil {
		run.stop()
	}
	if s.subs != nil {
		s.subs.closeAll()
	}
	if s.devices != nil {
		s.devices.Release()
	}
	<-s.done
}

// EventID returns the event the session currently shows.
func (s *Session) EventID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tgt.eventID
}

// Updates delivers the kind of each change. Delivery never blocks the session; repeated
// updates of a kind that is still queued are merged. The channel is closed by Close.
func (s *Session) Updates() <-chan Kind {
	return s.updates
}

// Subscribed returns the tables with an open change feed.
func (s *Session) Subscribed() []string {
	if s.subs == nil {
		return nil
	}
	return s.subs.tables()
}

func (s *Session) notify(k Kind) {
	if !s.pending[k].CompareAndSwap(false, true) {
		return
	}
	select {
	case s.queue <- k:
	default:
		s.pending[k].Store(false)
	}
}

func (s *Session) forward() {
	defer close(s.done)
	defer close(s.updates)
	for {
		select {
		case <-s.ctx.Done():
			return
		case k := <-s.queue:
			s.pending[k].Store(false)
			select {
			case s.updates <- k:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

// apply runs fn under the write lock if t is still current, then announces kind when fn reports a change.
func (s *Session) apply(t target, kind Kind, fn func() bool) bool {
	s.mu.Lock()
	if s.closed || s.tgt != t {
		s.mu.Unlock()
		return false
	}
	changed := fn()
	s.mu.Unlock()
	if changed {
		s.notify(kind)
	}
	return changed
}

func (s *Session) log(t target) *zap.Logger {
	return s.logger.With(zap.String("event_id", t.eventID.String()))
}

func (s *Session) current() (target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return target{}, ErrClosed
	}
	return s.tgt, nil
}
