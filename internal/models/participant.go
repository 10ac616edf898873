package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant roles.
const (
	ParticipantRoleOrganizer = "organizer"
	ParticipantRoleAttendee  = "attendee"
)

// Participant links a user to an event. One row per (event, user) is assumed, not enforced.
type Participant struct {
	ID       uuid.UUID `json:"id"`
	EventID  uuid.UUID `json:"event_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
