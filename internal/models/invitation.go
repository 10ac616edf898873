package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Invitation delivery status.
const (
	InvitationStatusQueued = "queued"
	InvitationStatusSent   = "sent"
	InvitationStatusFailed = "failed"
)

// Invitation records one email invite to an event.
type Invitation struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	Email        string     `json:"email"`
	InvitedBy    uuid.UUID  `json:"invited_by"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ParseInvitees returns the single address when set, otherwise the non-blank lines of bulk.
// Duplicates are kept.
func ParseInvitees(single, bulk string) ([]string, error) {
	var out []string
	if s := strings.TrimSpace(single); s != "" {
		out = append(out, s)
	} else {
		for _, line := range strings.Split(bulk, "\n") {
			if l := strings.TrimSpace(line); l != "" {
				out = append(out, l)
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoInvitees
	}
	return out, nil
}
