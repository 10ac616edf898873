package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/session"
)

var _ session.Backend = (*Client)(nil)

func eventPath(eventID uuid.UUID, rest string) string {
	return "/events/" + eventID.String() + rest
}

func threadPath(thread models.Thread) string {
	if thread == models.ThreadDiscussion {
		return "/discussions"
	}
	return "/messages"
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*models.SessionUser, error) {
	var u models.SessionUser
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var ev models.Event
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, ""), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) ListMessages(ctx context.Context, eventID uuid.UUID, thread models.Thread) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, threadPath(thread)), nil, &out)
	return out, err
}

func (c *Client) ListPolls(ctx context.Context, eventID uuid.UUID) ([]models.Poll, error) {
	var out []models.Poll
	err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/polls"), nil, &out)
	return out, err
}

func (c *Client) ListSurveys(ctx context.Context, eventID uuid.UUID) ([]models.Survey, error) {
	var out []models.Survey
	err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/surveys"), nil, &out)
	return out, err
}

func (c *Client) ListRooms(ctx context.Context, eventID uuid.UUID) ([]models.BreakoutRoom, error) {
	var out []models.BreakoutRoom
	err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/rooms"), nil, &out)
	return out, err
}

// CurrentRoom returns nil, nil when the user is in no room.
func (c *Client) CurrentRoom(ctx context.Context, eventID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	var out *models.BreakoutRoomParticipant
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/rooms/current"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRecordings(ctx context.Context, eventID uuid.UUID) ([]models.Recording, error) {
	var out []models.Recording
	err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/recordings"), nil, &out)
	return out, err
}

func (c *Client) ListActivities(ctx context.Context, eventID uuid.UUID) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/activities"), nil, &out)
	return out, err
}

func (c *Client) ActivityStats(ctx context.Context, eventID uuid.UUID) (*models.ActivityStats, error) {
	var out models.ActivityStats
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/activities/stats"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendMessage(ctx context.Context, eventID uuid.UUID, thread models.Thread, text string, file *session.Attachment) (*models.ChatMessage, error) {
	var part *filePart
	if file != nil {
		part = &filePart{field: "file", name: file.Name, contentType: file.ContentType, body: file.Body}
	}
	var m models.ChatMessage
	if err := c.doMultipart(ctx, eventPath(eventID, threadPath(thread)), map[string]string{"message": text}, part, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) AttachmentURL(ctx context.Context, eventID uuid.UUID, path string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID, "/attachments?path="+url.QueryEscape(path)), nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) CreatePoll(ctx context.Context, eventID uuid.UUID, draft session.PollDraft) (*models.Poll, error) {
	var p models.Poll
	if err := c.doJSON(ctx, http.MethodPost, eventPath(eventID, "/polls"), draft, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) SetPollActive(ctx context.Context, pollID uuid.UUID, active bool) (*models.Poll, error) {
	action := "/close"
	if active {
		action = "/activate"
	}
	var p models.Poll
	if err := c.doJSON(ctx, http.MethodPost, "/polls/"+pollID.String()+action, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Vote(ctx context.Context, pollID uuid.UUID, optionID string) (*models.PollResponse, error) {
	var r models.PollResponse
	if err := c.doJSON(ctx, http.MethodPost, "/polls/"+pollID.String()+"/vote", map[string]string{"option_id": optionID}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// PollResults returns the per-option tallies of a poll.
func (c *Client) PollResults(ctx context.Context, pollID uuid.UUID) ([]models.PollTally, error) {
	var out []models.PollTally
	err := c.doJSON(ctx, http.MethodGet, "/polls/"+pollID.String()+"/results", nil, &out)
	return out, err
}

func (c *Client) CreateSurvey(ctx context.Context, eventID uuid.UUID, draft session.SurveyDraft) (*models.Survey, error) {
	var s models.Survey
	if err := c.doJSON(ctx, http.MethodPost, eventPath(eventID, "/surveys"), draft, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) RespondSurvey(ctx context.Context, surveyID uuid.UUID, responses map[string]any) (*models.SurveyResponse, error) {
	var r models.SurveyResponse
	body := map[string]any{"responses": responses}
	if err := c.doJSON(ctx, http.MethodPost, "/surveys/"+surveyID.String()+"/responses", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) CreateRoom(ctx context.Context, eventID uuid.UUID, name string, maxParticipants int) (*models.BreakoutRoom, error) {
	var r models.BreakoutRoom
	body := map[string]any{"name": name, "max_participants": maxParticipants}
	if err := c.doJSON(ctx, http.MethodPost, eventPath(eventID, "/rooms"), body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	var m models.BreakoutRoomParticipant
	if err := c.doJSON(ctx, http.MethodPost, "/rooms/"+roomID.String()+"/join", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) LeaveRoom(ctx context.Context, roomID uuid.UUID) (*models.BreakoutRoomParticipant, error) {
	var m models.BreakoutRoomParticipant
	if err := c.doJSON(ctx, http.MethodPost, "/rooms/"+roomID.String()+"/leave", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) UploadRecording(ctx context.Context, eventID uuid.UUID, file session.Attachment, duration int) (*models.Recording, error) {
	part := &filePart{field: "file", name: file.Name, contentType: file.ContentType, body: file.Body}
	var rec models.Recording
	fields := map[string]string{"duration": strconv.Itoa(duration)}
	if err := c.doMultipart(ctx, eventPath(eventID, "/recordings"), fields, part, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) RecordingURL(ctx context.Context, recordingID uuid.UUID) (string, error) {
	var out struct {
		DownloadURL string `json:"download_url"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/recordings/"+recordingID.String()+"/download-url", nil, &out); err != nil {
		return "", err
	}
	return out.DownloadURL, nil
}

func (c *Client) SendInvitations(ctx context.Context, eventID uuid.UUID, emails []string) ([]models.Invitation, error) {
	body := map[string]string{"emails": strings.Join(emails, "\n")}
	if len(emails) == 1 {
		body = map[string]string{"email": emails[0]}
	}
	var out []models.Invitation
	err := c.doJSON(ctx, http.MethodPost, eventPath(eventID, "/invitations"), body, &out)
	return out, err
}

func (c *Client) UpdateEventStatus(ctx context.Context, eventID uuid.UUID, status string) (*models.Event, error) {
	var ev models.Event
	if err := c.doJSON(ctx, http.MethodPatch, eventPath(eventID, "/status"), map[string]string{"status": status}, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
