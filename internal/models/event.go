package models

import (
	"time"

	"github.com/google/uuid"
)

// Event status values. Completed is written by the recording uploader once a recording exists.
const (
	EventStatusUpcoming  = "upcoming"
	EventStatusLive      = "live"
	EventStatusEnded     = "ended"
	EventStatusCompleted = "completed"
)

// Event is one scheduled or live webinar; every child row is scoped to its ID.
type Event struct {
	ID            uuid.UUID `json:"id"`
	OrganizerID   uuid.UUID `json:"organizer_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	EventType     string    `json:"event_type"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Duration      int       `json:"duration"` // minutes
	Status        string    `json:"status"`
	StreamURL     *string   `json:"stream_url,omitempty"`
	RecordingURL  *string   `json:"recording_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsEnded reports whether the event is past its live phase.
func (e *Event) IsEnded() bool {
	return e.Status == EventStatusEnded || e.Status == EventStatusCompleted
}

// ValidEventStatus reports whether s is a known status.
func ValidEventStatus(s string) bool {
	switch s {
	case EventStatusUpcoming, EventStatusLive, EventStatusEnded, EventStatusCompleted:
		return true
	}
	return false
}
