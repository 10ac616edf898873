package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinPollOptions is the smallest number of non-blank options a poll accepts.
const MinPollOptions = 2

// PollOption is one entry of Poll.Options. Votes is denormalized and never incremented atomically.
type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll is a multiple-choice question shown during an event.
type Poll struct {
	ID                 uuid.UUID    `json:"id"`
	EventID            uuid.UUID    `json:"event_id"`
	Question           string       `json:"question"`
	Options            []PollOption `json:"options"`
	IsActive           bool         `json:"is_active"`
	CreatedInAdvance   bool         `json:"created_in_advance"`
	ScheduledDisplayAt *time.Time   `json:"scheduled_display_at,omitempty"`
	DisplayedAt        *time.Time   `json:"displayed_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// HasOption reports whether id names one of the poll's options.
func (p *Poll) HasOption(id string) bool {
	for _, o := range p.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// PollResponse is one cast vote. Several rows per (poll, user) may exist.
type PollResponse struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	UserID    uuid.UUID `json:"user_id"`
	OptionID  string    `json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PollTally is the response count for one option.
type PollTally struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
	Votes    int    `json:"votes"`
}

// BuildPollOptions drops blank entries, trims the rest and numbers them option_0, option_1, ...
// in input order.
func BuildPollOptions(texts []string) ([]PollOption, error) {
	opts := make([]PollOption, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		opts = append(opts, PollOption{ID: fmt.Sprintf("option_%d", len(opts)), Text: t})
	}
	if len(opts) < MinPollOptions {
		return nil, ErrTooFewOptions
	}
	return opts, nil
}

// TallyResponses counts responses per option, keeping the poll's option order.
func TallyResponses(p *Poll, responses []PollResponse) []PollTally {
	counts := make(map[string]int, len(p.Options))
	for _, r := range responses {
		counts[r.OptionID]++
	}
	out := make([]PollTally, 0, len(p.Options))
	for _, o := range p.Options {
		out = append(out, PollTally{OptionID: o.ID, Text: o.Text, Votes: counts[o.ID]})
	}
	return out
}
