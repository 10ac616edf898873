package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
)

var errBackend = errors.New("backend unavailable")

// fakeBackend is an in-memory platform. Fail* fields inject errors per operation.
type fakeBackend struct {
	mu sync.Mutex

	events      map[uuid.UUID]*models.Event
	messages    map[models.Thread][]models.ChatMessage
	polls       []models.Poll
	rooms       []models.BreakoutRoom
	current     *models.BreakoutRoomParticipant
	calls       map[string]int
	pollDrafts  []PollDraft
	votes       []models.PollResponse
	invited     [][]string
	statusCalls []string

	failPolls  bool
	failStatus bool
}

func newFakeBackend(ev *models.Event) *fakeBackend {
	return &fakeBackend{
		events:   map[uuid.UUID]*models.Event{ev.ID: ev},
		messages: map[models.Thread][]models.ChatMessage{},
		calls:    map[string]int{},
	}
}

func (b *fakeBackend) count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *fakeBackend) call(op string) {
	b.mu.Lock()
	b.calls[op]++
	b.mu.Unlock()
}

func (b *fakeBackend) GetEvent(_ context.Context, id uuid.UUID) (*models.Event, error) {
	b.call("GetEvent")
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.events[id]
	if !ok {
		return nil, errBackend
	}
	cp := *ev
	return &cp, nil
}

func (b *fakeBackend) ListMessages(_ context.Context, _ uuid.UUID, th models.Thread) ([]models.ChatMessage, error) {
	b.call("ListMessages")
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ChatMessage(nil), b.messages[th]...), nil
}

func (b *fakeBackend) ListPolls(_ context.Context, _ uuid.UUID) ([]models.Poll, error) {
	b.call("ListPolls")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPolls {
		return nil, errBackend
	}
	return append([]models.Poll(nil), b.polls...), nil
}

func (b *fakeBackend) ListSurveys(context.Context, uuid.UUID) ([]models.Survey, error) {
	b.call("ListSurveys")
	return []models.Survey{}, nil
}

func (b *fakeBackend) ListRooms(context.Context, uuid.UUID) ([]models.BreakoutRoom, error) {
	b.call("ListRooms")
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.BreakoutRoom(nil), b.rooms...), nil
}

func (b *fakeBackend) CurrentRoom(context.Context, uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil, nil
	}
	cp := *b.current
	return &cp, nil
}

func (b *fakeBackend) ListRecordings(context.Context, uuid.UUID) ([]models.Recording, error) {
	b.call("ListRecordings")
	return []models.Recording{}, nil
}

func (b *fakeBackend) ListActivities(context.Context, uuid.UUID) ([]models.ActivityLog, error) {
	b.call("ListActivities")
	return []models.ActivityLog{}, nil
}

func (b *fakeBackend) ActivityStats(context.Context, uuid.UUID) (*models.ActivityStats, error) {
	return &models.ActivityStats{TotalParticipants: 3}, nil
}

func (b *fakeBackend) SendMessage(_ context.Context, eventID uuid.UUID, th models.Thread, text string, file *Attachment) (*models.ChatMessage, error) {
	b.call("SendMessage")
	m := models.ChatMessage{ID: uuid.New(), EventID: eventID, Message: text, CreatedAt: time.Now()}
	if file != nil {
		path, name, size := eventID.String()+"/u/1."+file.Name, file.Name, file.Size
		m.FilePath, m.FileName, m.FileSize = &path, &name, &size
	}
	b.mu.Lock()
	b.messages[th] = append(b.messages[th], m)
	b.mu.Unlock()
	return &m, nil
}

func (b *fakeBackend) AttachmentURL(_ context.Context, _ uuid.UUID, path string) (string, error) {
	return "https://signed/" + path, nil
}

func (b *fakeBackend) CreatePoll(_ context.Context, eventID uuid.UUID, d PollDraft) (*models.Poll, error) {
	b.call("CreatePoll")
	opts, err := models.BuildPollOptions(d.Options)
	if err != nil {
		return nil, err
	}
	p := models.Poll{ID: uuid.New(), EventID: eventID, Question: d.Question, Options: opts, IsActive: !d.CreatedInAdvance}
	b.mu.Lock()
	b.pollDrafts = append(b.pollDrafts, d)
	b.polls = append([]models.Poll{p}, b.polls...)
	b.mu.Unlock()
	return &p, nil
}

func (b *fakeBackend) SetPollActive(_ context.Context, id uuid.UUID, active bool) (*models.Poll, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.polls {
		if b.polls[i].ID == id {
			b.polls[i].IsActive = active
			p := b.polls[i]
			return &p, nil
		}
	}
	return nil, errBackend
}

func (b *fakeBackend) Vote(_ context.Context, pollID uuid.UUID, optionID string) (*models.PollResponse, error) {
	b.call("Vote")
	r := models.PollResponse{ID: uuid.New(), PollID: pollID, OptionID: optionID}
	b.mu.Lock()
	b.votes = append(b.votes, r)
	b.mu.Unlock()
	return &r, nil
}

func (b *fakeBackend) CreateSurvey(_ context.Context, eventID uuid.UUID, d SurveyDraft) (*models.Survey, error) {
	b.call("CreateSurvey")
	qs, err := models.BuildSurveyQuestions(d.Questions)
	if err != nil {
		return nil, err
	}
	return &models.Survey{ID: uuid.New(), EventID: eventID, Title: d.Title, Questions: qs}, nil
}

func (b *fakeBackend) RespondSurvey(_ context.Context, surveyID uuid.UUID, responses map[string]any) (*models.SurveyResponse, error) {
	raw, _ := json.Marshal(responses)
	return &models.SurveyResponse{ID: uuid.New(), SurveyID: surveyID, Responses: raw}, nil
}

func (b *fakeBackend) CreateRoom(_ context.Context, eventID uuid.UUID, name string, max int) (*models.BreakoutRoom, error) {
	b.call("CreateRoom")
	r := models.BreakoutRoom{ID: uuid.New(), EventID: eventID, Name: name, MaxParticipants: max, IsActive: true}
	b.mu.Lock()
	b.rooms = append(b.rooms, r)
	b.mu.Unlock()
	return &r, nil
}

func (b *fakeBackend) JoinRoom(_ context.Context, roomID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	b.call("JoinRoom")
	b.mu.Lock()
	defer b.mu.Unlock()
	m := &models.BreakoutRoomParticipant{ID: uuid.New(), RoomID: roomID, JoinedAt: time.Now()}
	b.current = m
	for i := range b.rooms {
		if b.rooms[i].ID == roomID {
			b.rooms[i].ParticipantCount++
		}
	}
	cp := *m
	return &cp, nil
}

func (b *fakeBackend) LeaveRoom(_ context.Context, roomID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	b.call("LeaveRoom")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil || b.current.RoomID != roomID {
		return nil, errBackend
	}
	now := time.Now()
	m := *b.current
	m.LeftAt = &now
	b.current = nil
	return &m, nil
}

func (b *fakeBackend) UploadRecording(_ context.Context, eventID uuid.UUID, f Attachment, duration int) (*models.Recording, error) {
	b.call("UploadRecording")
	return &models.Recording{ID: uuid.New(), EventID: eventID, FilePath: f.Name, Duration: duration, Format: models.RecordingFormatMP4}, nil
}

func (b *fakeBackend) RecordingURL(_ context.Context, id uuid.UUID) (string, error) {
	return "https://signed/" + id.String(), nil
}

func (b *fakeBackend) SendInvitations(_ context.Context, eventID uuid.UUID, emails []string) ([]models.Invitation, error) {
	b.mu.Lock()
	b.invited = append(b.invited, emails)
	b.mu.Unlock()
	out := make([]models.Invitation, len(emails))
	for i, e := range emails {
		out[i] = models.Invitation{ID: uuid.New(), EventID: eventID, Email: e, Status: models.InvitationStatusQueued}
	}
	return out, nil
}

func (b *fakeBackend) UpdateEventStatus(_ context.Context, id uuid.UUID, status string) (*models.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCalls = append(b.statusCalls, status)
	if b.failStatus {
		return nil, errBackend
	}
	ev := b.events[id]
	ev.Status = status
	cp := *ev
	return &cp, nil
}

// fakeFeed hands out one channel per (event, table) subscription.
type fakeFeed struct {
	mu     sync.Mutex
	subs   []*fakeSub
	failOn string
}

type fakeSub struct {
	eventID uuid.UUID
	table   string
	ch      chan realtime.Change
	once    sync.Once
	closed  chan struct{}
}

func (f *fakeFeed) Subscribe(_ context.Context, eventID uuid.UUID, table string) (Subscription, error) {
	if table == f.failOn {
		return nil, errBackend
	}
	s := &fakeSub{eventID: eventID, table: table, ch: make(chan realtime.Change, 8), closed: make(chan struct{})}
	f.mu.Lock()
	f.subs = append(f.subs, s)
	f.mu.Unlock()
	return s, nil
}

func (s *fakeSub) Changes() <-chan realtime.Change { return s.ch }

func (s *fakeSub) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSub) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// open returns the live subscription for eventID and table.
func (f *fakeFeed) open(eventID uuid.UUID, table string) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.subs) - 1; i >= 0; i-- {
		s := f.subs[i]
		if s.eventID == eventID && s.table == table && !s.isClosed() {
			return s
		}
	}
	return nil
}

func (f *fakeFeed) all() []*fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSub(nil), f.subs...)
}

func change(eventID uuid.UUID, table string, typ realtime.ChangeType, record any) realtime.Change {
	raw, _ := json.Marshal(record)
	return realtime.Change{Table: table, Type: typ, EventID: eventID, Record: raw}
}

// notes records notifications.
type notes struct {
	mu  sync.Mutex
	all []Notification
}

func (n *notes) Notify(x Notification) {
	n.mu.Lock()
	n.all = append(n.all, x)
	n.mu.Unlock()
}

func (n *notes) last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.all) == 0 {
		return Notification{}
	}
	return n.all[len(n.all)-1]
}

func (n *notes) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.all)
}

// fake media

type fakeTrack struct {
	kind    string
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTrack) Kind() string { return t.kind }

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type constAnalyser struct{ v byte }

func (a constAnalyser) FrequencyBinCount() int { return 4 }

func (a constAnalyser) ByteFrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = a.v
	}
}

type fakeStream struct {
	c      Constraints
	tracks []*fakeTrack
	level  byte
}

func (s *fakeStream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

func (s *fakeStream) Analyser() FrequencyAnalyser { return constAnalyser{v: s.level} }

type fakeDevices struct {
	mu      sync.Mutex
	err     error
	level   byte
	streams []*fakeStream
}

func (d *fakeDevices) Acquire(_ context.Context, c Constraints) (MediaStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	s := &fakeStream{c: c, level: d.level, tracks: []*fakeTrack{{kind: "video"}, {kind: "audio"}}}
	d.streams = append(d.streams, s)
	return s, nil
}
