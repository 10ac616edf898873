package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/igot-live/backend/internal/models"
)

// Actions validate locally, write through the backend in order and stop at the first failure.
// Each outcome emits one notification. Activity logging for chat, votes, survey responses and
// room moves happens on the platform and is best-effort there.

func (s *Session) reject(title string, err error) error {
	s.notifier.Notify(failure(title, err))
	return err
}

// SendMessage posts to the chat or the post-event discussion. text or file is required and
// the file size is checked before anything is uploaded.
func (s *Session) SendMessage(ctx context.Context, thread models.Thread, text string, file *Attachment) (*models.ChatMessage, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if err := models.ValidateMessage(text, file != nil); err != nil {
		return nil, s.reject("Message not sent", invalid(err.Error()))
	}
	if file != nil {
		if err := models.CheckAttachmentSize(file.Size); err != nil {
			s.notifier.Notify(Notification{Title: "File too large", Description: "Maximum file size is 10MB", Variant: VariantDestructive})
			return nil, ErrFileTooLarge
		}
	}

	m, err := s.backend.SendMessage(ctx, t.eventID, thread, text, file)
	if err != nil {
		return nil, s.reject("Failed to send message", err)
	}
	kind := KindMessages
	if thread == models.ThreadDiscussion {
		kind = KindDiscussions
	}
	s.apply(t, kind, func() bool { return s.thread(thread).Append(*m) })
	if file != nil {
		s.notifier.Notify(success("File uploaded", file.Name+" was shared"))
	}
	return m, nil
}

// AttachmentURL returns a signed download link for a chat attachment.
func (s *Session) AttachmentURL(ctx context.Context, path string) (string, error) {
	t, err := s.current()
	if err != nil {
		return "", err
	}
	url, err := s.backend.AttachmentURL(ctx, t.eventID, path)
	if err != nil {
		return "", s.reject("Download failed", err)
	}
	return url, nil
}

// CreatePoll validates and stores a poll. Blank options are dropped and at least two must remain.
func (s *Session) CreatePoll(ctx context.Context, draft PollDraft) (*models.Poll, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	draft.Question = strings.TrimSpace(draft.Question)
	opts, err := models.BuildPollOptions(draft.Options)
	if draft.Question == "" || err != nil {
		return nil, s.reject("Invalid poll", invalid(models.ErrTooFewOptions.Error()))
	}
	draft.Options = make([]string, len(opts))
	for i, o := range opts {
		draft.Options[i] = o.Text
	}

	p, err := s.backend.CreatePoll(ctx, t.eventID, draft)
	if err != nil {
		return nil, s.reject("Failed to create poll", err)
	}
	s.notifier.Notify(success("Poll created", p.Question))
	s.loadPolls(ctx, t)
	return p, nil
}

// SetPollActive launches or closes a poll.
func (s *Session) SetPollActive(ctx context.Context, pollID uuid.UUID, active bool) (*models.Poll, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	p, err := s.backend.SetPollActive(ctx, pollID, active)
	if err != nil {
		return nil, s.reject("Failed to update poll", err)
	}
	s.loadPolls(ctx, t)
	return p, nil
}

// Vote casts one response. Repeated votes each write a row unless the platform enforces uniqueness.
func (s *Session) Vote(ctx context.Context, pollID uuid.UUID, optionID string) (*models.PollResponse, error) {
	if _, err := s.current(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var poll *models.Poll
	for i := range s.polls {
		if s.polls[i].ID == pollID {
			p := s.polls[i]
			poll = &p
		}
	}
	s.mu.RUnlock()
	if poll != nil {
		if !poll.IsActive {
			return nil, s.reject("Vote not recorded", invalid("poll is closed"))
		}
		if !poll.HasOption(optionID) {
			return nil, s.reject("Vote not recorded", invalid(models.ErrUnknownOption.Error()))
		}
	}

	resp, err := s.backend.Vote(ctx, pollID, optionID)
	if err != nil {
		return nil, s.reject("Failed to submit vote", err)
	}
	s.notifier.Notify(success("Vote submitted", "Thank you for voting"))
	return resp, nil
}

// CreateSurvey validates and stores a survey. Blank questions are dropped and at least one must remain.
func (s *Session) CreateSurvey(ctx context.Context, draft SurveyDraft) (*models.Survey, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	draft.Title = strings.TrimSpace(draft.Title)
	qs, err := models.BuildSurveyQuestions(draft.Questions)
	if draft.Title == "" || err != nil {
		return nil, s.reject("Invalid survey", invalid(models.ErrNoQuestions.Error()))
	}
	draft.Questions = make([]models.SurveyQuestionInput, len(qs))
	for i, q := range qs {
		draft.Questions[i] = models.SurveyQuestionInput{Question: q.Question, Type: q.Type}
	}

	sv, err := s.backend.CreateSurvey(ctx, t.eventID, draft)
	if err != nil {
		return nil, s.reject("Failed to create survey", err)
	}
	s.notifier.Notify(success("Survey created", sv.Title))
	s.loadSurveys(ctx, t)
	return sv, nil
}

// RespondSurvey submits answers keyed by question id.
func (s *Session) RespondSurvey(ctx context.Context, surveyID uuid.UUID, responses map[string]any) (*models.SurveyResponse, error) {
	if _, err := s.current(); err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, s.reject("Survey not submitted", invalid("at least one answer is required"))
	}
	resp, err := s.backend.RespondSurvey(ctx, surveyID, responses)
	if err != nil {
		return nil, s.reject("Failed to submit survey", err)
	}
	s.notifier.Notify(success("Survey submitted", "Thank you for your feedback"))
	return resp, nil
}

// CreateRoom validates and stores a breakout room. maxParticipants 0 means the default capacity.
func (s *Session) CreateRoom(ctx context.Context, name string, maxParticipants int) (*models.BreakoutRoom, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	name, maxParticipants, err = models.ValidateRoom(name, maxParticipants)
	if err != nil {
		return nil, s.reject("Invalid room", invalid(err.Error()))
	}
	room, err := s.backend.CreateRoom(ctx, t.eventID, name, maxParticipants)
	if err != nil {
		return nil, s.reject("Failed to create room", err)
	}
	s.notifier.Notify(success("Room created", room.Name))
	s.loadRooms(ctx, t)
	return room, nil
}

// JoinRoom moves the user into roomID. The platform closes the previous membership first.
func (s *Session) JoinRoom(ctx context.Context, roomID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	cur := s.currentRoom
	var room *models.BreakoutRoom
	for i := range s.rooms {
		if s.rooms[i].ID == roomID {
			r := s.rooms[i]
			room = &r
		}
	}
	s.mu.RUnlock()
	if cur != nil && cur.RoomID == roomID {
		m := *cur
		return &m, nil
	}
	if room != nil && room.IsFull() {
		return nil, s.reject("Room is full", invalid("room is full"))
	}

	m, err := s.backend.JoinRoom(ctx, roomID)
	if err != nil {
		return nil, s.reject("Failed to join room", err)
	}
	s.apply(t, KindRooms, func() bool {
		s.currentRoom = m
		return true
	})
	if room != nil {
		s.notifier.Notify(success("Joined room", room.Name))
	}
	s.loadRooms(ctx, t)
	return m, nil
}

// LeaveRoom closes the user's current membership.
func (s *Session) LeaveRoom(ctx context.Context) error {
	t, err := s.current()
	if err != nil {
		return err
	}
	s.mu.RLock()
	cur := s.currentRoom
	s.mu.RUnlock()
	if cur == nil {
		return s.reject("Not in a room", invalid("not in a breakout room"))
	}
	if _, err := s.backend.LeaveRoom(ctx, cur.RoomID); err != nil {
		return s.reject("Failed to leave room", err)
	}
	s.apply(t, KindRooms, func() bool {
		s.currentRoom = nil
		return true
	})
	s.notifier.Notify(success("Left room", ""))
	s.loadRooms(ctx, t)
	return nil
}

// UploadRecording stores a video file and links it to the event.
func (s *Session) UploadRecording(ctx context.Context, file Attachment, duration int) (*models.Recording, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	if !models.IsVideoContentType(file.ContentType) {
		return nil, s.reject("Invalid file", invalid(models.ErrNotVideo.Error()))
	}
	rec, err := s.backend.UploadRecording(ctx, t.eventID, file, duration)
	if err != nil {
		return nil, s.reject("Upload failed", err)
	}
	s.notifier.Notify(success("Recording uploaded", file.Name))
	s.loadRecordings(ctx, t)
	return rec, nil
}

// RecordingURL returns a signed playback link.
func (s *Session) RecordingURL(ctx context.Context, recordingID uuid.UUID) (string, error) {
	if _, err := s.current(); err != nil {
		return "", err
	}
	url, err := s.backend.RecordingURL(ctx, recordingID)
	if err != nil {
		return "", s.reject("Failed to load recording", err)
	}
	return url, nil
}

// SendInvitations invites one address, or every non-blank line of bulk when single is blank.
func (s *Session) SendInvitations(ctx context.Context, single, bulk string) ([]models.Invitation, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	emails, err := models.ParseInvitees(single, bulk)
	if err != nil {
		return nil, s.reject("No recipients", invalid(err.Error()))
	}
	invs, err := s.backend.SendInvitations(ctx, t.eventID, emails)
	if err != nil {
		return nil, s.reject("Failed to send invitations", err)
	}
	s.notifier.Notify(success("Invitations sent", pluralInvites(len(invs))))
	return invs, nil
}

func pluralInvites(n int) string {
	if n == 1 {
		return "1 invitation queued"
	}
	return fmt.Sprintf("%d invitations queued", n)
}

// GoLive requires an acquired stream when a device controller is attached, then marks the event live.
// The controller only moves to Live once the status write succeeds.
func (s *Session) GoLive(ctx context.Context) error {
	t, err := s.current()
	if err != nil {
		return err
	}
	if s.devices != nil {
		if err := s.devices.requireStream(); err != nil {
			return err
		}
	}
	ev, err := s.backend.UpdateEventStatus(ctx, t.eventID, models.EventStatusLive)
	if err != nil {
		return s.reject("Failed to go live", err)
	}
	if s.devices != nil {
		if err := s.devices.GoLive(); err != nil {
			return err
		}
	}
	s.apply(t, KindEvent, func() bool {
		s.event = ev
		return true
	})
	s.notifier.Notify(success("Stream Started", "You are now broadcasting live!"))
	return nil
}

// EndStream flips the phase to ended before writing the status. A failed write is reported
// but the phase stays ended.
func (s *Session) EndStream(ctx context.Context) error {
	t, err := s.current()
	if err != nil {
		return err
	}
	s.apply(t, KindEvent, func() bool {
		s.endedLocally = true
		return true
	})
	if s.devices != nil {
		s.devices.End()
	}
	ev, err := s.backend.UpdateEventStatus(ctx, t.eventID, models.EventStatusEnded)
	if err != nil {
		return s.reject("Failed to end stream", err)
	}
	s.apply(t, KindEvent, func() bool {
		s.event = ev
		return true
	})
	s.notifier.Notify(success("Stream Ended", "Your broadcast has been stopped."))
	return nil
}
