package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Survey question types.
const (
	QuestionTypeText     = "text"
	QuestionTypeRating   = "rating"
	QuestionTypeMultiple = "multiple"
)

// SurveyQuestion is one entry of Survey.Questions.
type SurveyQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Type     string `json:"type"`
}

// Survey groups typed questions for an event.
type Survey struct {
	ID                 uuid.UUID        `json:"id"`
	EventID            uuid.UUID        `json:"event_id"`
	Title              string           `json:"title"`
	Questions          []SurveyQuestion `json:"questions"`
	IsActive           bool             `json:"is_active"`
	CreatedInAdvance   bool             `json:"created_in_advance"`
	ScheduledDisplayAt *time.Time       `json:"scheduled_display_at,omitempty"`
	DisplayedAt        *time.Time       `json:"displayed_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// SurveyResponse maps question id to answer.
type SurveyResponse struct {
	ID        uuid.UUID       `json:"id"`
	SurveyID  uuid.UUID       `json:"survey_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Responses json.RawMessage `json:"responses"`
	CreatedAt time.Time       `json:"created_at"`
}

// SurveyQuestionInput is the unnumbered form of a question.
type SurveyQuestionInput struct {
	Question string `json:"question"`
	Type     string `json:"type"`
}

// BuildSurveyQuestions keeps non-blank questions, numbers them question_0, question_1, ...
// and defaults unknown types to text.
func BuildSurveyQuestions(in []SurveyQuestionInput) ([]SurveyQuestion, error) {
	qs := make([]SurveyQuestion, 0, len(in))
	for _, q := range in {
		text := strings.TrimSpace(q.Question)
		if text == "" {
			continue
		}
		typ := q.Type
		switch typ {
		case QuestionTypeText, QuestionTypeRating, QuestionTypeMultiple:
		default:
			typ = QuestionTypeText
		}
		qs = append(qs, SurveyQuestion{ID: fmt.Sprintf("question_%d", len(qs)), Question: text, Type: typ})
	}
	if len(qs) == 0 {
		return nil, ErrNoQuestions
	}
	return qs, nil
}
