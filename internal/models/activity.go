package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity types written to participant_activities.
const (
	ActivityChat           = "chat"
	ActivityPollVote       = "poll_vote"
	ActivitySurveyResponse = "survey_response"
	ActivityBreakoutJoin   = "breakout_join"
	ActivityBreakoutLeave  = "breakout_leave"
)

// ActivityLog is an append-only audit row.
type ActivityLog struct {
	ID           uuid.UUID       `json:"id"`
	EventID      uuid.UUID       `json:"event_id"`
	UserID       uuid.UUID       `json:"user_id"`
	ActivityType string          `json:"activity_type"`
	ActivityData json.RawMessage `json:"activity_data,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ActivityStats is the engagement panel summary for one event.
type ActivityStats struct {
	TotalParticipants int `json:"total_participants"`
	ChatMessages      int `json:"chat_messages"`
	PollVotes         int `json:"poll_votes"`
	SurveyResponses   int `json:"survey_responses"`
}
