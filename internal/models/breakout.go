package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Breakout room capacity bounds.
const (
	DefaultRoomCapacity = 10
	MinRoomCapacity     = 2
	MaxRoomCapacity     = 50
)

// BreakoutRoom is a sub-room of an event. ParticipantCount is computed on read.
type BreakoutRoom struct {
	ID               uuid.UUID `json:"id"`
	EventID          uuid.UUID `json:"event_id"`
	Name             string    `json:"name"`
	MaxParticipants  int       `json:"max_participants"`
	IsActive         bool      `json:"is_active"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsFull reports whether the live occupancy has reached capacity.
func (r *BreakoutRoom) IsFull() bool {
	return r.ParticipantCount >= r.MaxParticipants
}

// BreakoutRoomParticipant is a membership row; LeftAt nil means present.
type BreakoutRoomParticipant struct {
	ID       uuid.UUID  `json:"id"`
	RoomID   uuid.UUID  `json:"room_id"`
	UserID   uuid.UUID  `json:"user_id"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

// ValidateRoom trims the name and applies the default capacity when max is zero.
func ValidateRoom(name string, max int) (string, int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, ErrEmptyRoomName
	}
	if max == 0 {
		max = DefaultRoomCapacity
	}
	if max < MinRoomCapacity || max > MaxRoomCapacity {
		return "", 0, ErrRoomCapacity
	}
	return name, max, nil
}

// Occupancy counts open memberships of roomID.
func Occupancy(memberships []BreakoutRoomParticipant, roomID uuid.UUID) int {
	n := 0
	for _, m := range memberships {
		if m.RoomID == roomID && m.LeftAt == nil {
			n++
		}
	}
	return n
}
