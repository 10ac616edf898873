package session

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
)

// Attachment is a file picked by the user. Size is checked before Body is read.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PollDraft is a validated poll ready to be written.
type PollDraft struct {
	Question           string     `json:"question"`
	Options            []string   `json:"options"`
	CreatedInAdvance   bool       `json:"created_in_advance"`
	ScheduledDisplayAt *time.Time `json:"scheduled_display_at,omitempty"`
}

// SurveyDraft is a validated survey ready to be written.
type SurveyDraft struct {
	Title              string                       `json:"title"`
	Questions          []models.SurveyQuestionInput `json:"questions"`
	CreatedInAdvance   bool                         `json:"created_in_advance"`
	ScheduledDisplayAt *time.Time                   `json:"scheduled_display_at,omitempty"`
}

// Backend is the platform the session reads from and writes through.
// Implementations act as the signed-in user. CurrentRoom returns nil, nil when the user is in no room.
type Backend interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	ListMessages(ctx context.Context, eventID uuid.UUID, thread models.Thread) ([]models.ChatMessage, error)
	ListPolls(ctx context.Context, eventID uuid.UUID) ([]models.Poll, error)
	ListSurveys(ctx context.Context, eventID uuid.UUID) ([]models.Survey, error)
	ListRooms(ctx context.Context, eventID uuid.UUID) ([]models.BreakoutRoom, error)
	CurrentRoom(ctx context.Context, eventID uuid.UUID) (*models.BreakoutRoomParticipant, error)
	ListRecordings(ctx context.Context, eventID uuid.UUID) ([]models.Recording, error)
	ListActivities(ctx context.Context, eventID uuid.UUID) ([]models.ActivityLog, error)
	ActivityStats(ctx context.Context, eventID uuid.UUID) (*models.ActivityStats, error)

	SendMessage(ctx context.Context, eventID uuid.UUID, thread models.Thread, text string, file *Attachment) (*models.ChatMessage, error)
	AttachmentURL(ctx context.Context, eventID uuid.UUID, path string) (string, error)
	CreatePoll(ctx context.Context, eventID uuid.UUID, draft PollDraft) (*models.Poll, error)
	SetPollActive(ctx context.Context, pollID uuid.UUID, active bool) (*models.Poll, error)
	Vote(ctx context.Context, pollID uuid.UUID, optionID string) (*models.PollResponse, error)
	CreateSurvey(ctx context.Context, eventID uuid.UUID, draft SurveyDraft) (*models.Survey, error)
	RespondSurvey(ctx context.Context, surveyID uuid.UUID, responses map[string]any) (*models.SurveyResponse, error)
	CreateRoom(ctx context.Context, eventID uuid.UUID, name string, maxParticipants int) (*models.BreakoutRoom, error)
	JoinRoom(ctx context.Context, roomID uuid.UUID) (*models.BreakoutRoomParticipant, error)
	LeaveRoom(ctx context.Context, roomID uuid.UUID) (*models.BreakoutRoomParticipant, error)
	UploadRecording(ctx context.Context, eventID uuid.UUID, file Attachment, duration int) (*models.Recording, error)
	RecordingURL(ctx context.Context, recordingID uuid.UUID) (string, error)
	SendInvitations(ctx context.Context, eventID uuid.UUID, emails []string) ([]models.Invitation, error)
	UpdateEventStatus(ctx context.Context, eventID uuid.UUID, status string) (*models.Event, error)
}

// Subscription is one open change feed. Changes is closed when the feed ends.
type Subscription interface {
	Changes() <-chan realtime.Change
	Close() error
}

// Feed opens change feeds scoped to one table of one event.
type Feed interface {
	Subscribe(ctx context.Context, eventID uuid.UUID, table string) (Subscription, error)
}
