package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPollOptions(t *testing.T) {
	t.Run("morning and evening", func(t *testing.T) {
		opts, err := BuildPollOptions([]string{"Morning", "Evening"})
		require.NoError(t, err)
		assert.Equal(t, []PollOption{
			{ID: "option_0", Text: "Morning", Votes: 0},
			{ID: "option_1", Text: "Evening", Votes: 0},
		}, opts)
	})

	t.Run("blank entries dropped and ids follow kept order", func(t *testing.T) {
		opts, err := BuildPollOptions([]string{"  A ", "", "   ", "B", "C"})
		require.NoError(t, err)
		require.Len(t, opts, 3)
		for i, want := range []string{"A", "B", "C"} {
			assert.Equal(t, want, opts[i].Text)
			assert.Equal(t, "option_"+string(rune('0'+i)), opts[i].ID)
			assert.Zero(t, opts[i].Votes)
		}
	})

	t.Run("fewer than two non-blank", func(t *testing.T) {
		for _, in := range [][]string{nil, {"only"}, {"only", " "}} {
			_, err := BuildPollOptions(in)
			assert.ErrorIs(t, err, ErrTooFewOptions)
		}
	})
}

func TestBuildSurveyQuestions(t *testing.T) {
	qs, err := BuildSurveyQuestions([]SurveyQuestionInput{
		{Question: "How was it?", Type: QuestionTypeRating},
		{Question: "  "},
		{Question: "Comments", Type: "essay"},
	})
	require.NoError(t, err)
	assert.Equal(t, []SurveyQuestion{
		{ID: "question_0", Question: "How was it?", Type: QuestionTypeRating},
		{ID: "question_1", Question: "Comments", Type: QuestionTypeText},
	}, qs)

	_, err = BuildSurveyQuestions([]SurveyQuestionInput{{Question: ""}})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestAttachmentLimits(t *testing.T) {
	assert.NoError(t, CheckAttachmentSize(MaxAttachmentSize))
	assert.ErrorIs(t, CheckAttachmentSize(11*1024*1024), ErrFileTooLarge)
	assert.ErrorIs(t, ValidateMessage("   ", false), ErrEmptyMessage)
	assert.NoError(t, ValidateMessage("", true))
}

func TestValidateRoom(t *testing.T) {
	name, max, err := ValidateRoom(" Room A ", 0)
	require.NoError(t, err)
	assert.Equal(t, "Room A", name)
	assert.Equal(t, DefaultRoomCapacity, max)

	_, _, err = ValidateRoom("x", 51)
	assert.ErrorIs(t, err, ErrRoomCapacity)
	_, _, err = ValidateRoom("x", 1)
	assert.ErrorIs(t, err, ErrRoomCapacity)
	_, _, err = ValidateRoom("", 5)
	assert.ErrorIs(t, err, ErrEmptyRoomName)
}

func TestOccupancy(t *testing.T) {
	room, other := uuid.New(), uuid.New()
	left := time.Now()
	ms := []BreakoutRoomParticipant{
		{RoomID: room},
		{RoomID: room, LeftAt: &left},
		{RoomID: room},
		{RoomID: other},
	}
	assert.Equal(t, 2, Occupancy(ms, room))
	assert.Equal(t, 1, Occupancy(ms, other))
}

func TestTallyResponses(t *testing.T) {
	p := &Poll{Options: []PollOption{{ID: "option_0", Text: "Yes"}, {ID: "option_1", Text: "No"}}}
	rs := []PollResponse{{OptionID: "option_0"}, {OptionID: "option_0"}, {OptionID: "option_1"}}
	assert.Equal(t, []PollTally{
		{OptionID: "option_0", Text: "Yes", Votes: 2},
		{OptionID: "option_1", Text: "No", Votes: 1},
	}, TallyResponses(p, rs))
}

func TestParseInvitees(t *testing.T) {
	got, err := ParseInvitees("", "a@x.io\n\n  b@x.io \na@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.io", "b@x.io", "a@x.io"}, got)

	got, err = ParseInvitees(" solo@x.io ", "ignored@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{"solo@x.io"}, got)

	_, err = ParseInvitees(" ", "\n \n")
	assert.ErrorIs(t, err, ErrNoInvitees)
}

func TestEventPhaseHelpers(t *testing.T) {
	for status, ended := range map[string]bool{
		EventStatusUpcoming:  false,
		EventStatusLive:      false,
		EventStatusEnded:     true,
		EventStatusCompleted: true,
	} {
		e := Event{Status: status}
		assert.Equal(t, ended, e.IsEnded(), status)
		assert.True(t, ValidEventStatus(status))
	}
	assert.False(t, ValidEventStatus("paused"))
	assert.True(t, IsVideoContentType("video/mp4"))
	assert.False(t, IsVideoContentType("image/png"))
}
