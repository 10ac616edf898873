package session

import (
	"github.com/google/uuid"

	"github.com/igot-live/backend/internal/models"
)

// Snapshot is a copy of the session state at one instant.
type Snapshot struct {
	EventID     uuid.UUID
	Event       *models.Event
	Phase       Phase
	Panels      []Panel
	Messages    []models.ChatMessage
	Discussions []models.ChatMessage
	Polls       []models.Poll
	Surveys     []models.Survey
	Rooms       []models.BreakoutRoom
	CurrentRoom *models.BreakoutRoomParticipant
	Recordings  []models.Recording
	Activities  []models.ActivityLog
	Stats       models.ActivityStats
	Caption     Caption
	Device      DeviceState
	AudioLevel  int
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		EventID:     s.tgt.eventID,
		Phase:       s.phaseLocked(),
		Messages:    s.messages.Items(),
		Discussions: s.discussions.Items(),
		Polls:       append([]models.Poll(nil), s.polls...),
		Surveys:     append([]models.Survey(nil), s.surveys...),
		Rooms:       append([]models.BreakoutRoom(nil), s.rooms...),
		Recordings:  append([]models.Recording(nil), s.recordings...),
		Activities:  append([]models.ActivityLog(nil), s.activities...),
		Caption:     s.caption,
	}
	if s.event != nil {
		ev := *s.event
		snap.Event = &ev
	}
	if s.currentRoom != nil {
		cur := *s.currentRoom
		snap.CurrentRoom = &cur
	}
	if s.stats != nil {
		snap.Stats = *s.stats
	}
	s.mu.RUnlock()

	snap.Panels = Panels(snap.Phase)
	if s.devices != nil {
		snap.Device = s.devices.State()
		snap.AudioLevel = s.devices.Level()
	}
	return snap
}

// ActivePolls returns the polls currently open for voting.
func (s Snapshot) ActivePolls() []models.Poll {
	var out []models.Poll
	for _, p := range s.Polls {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out
}

// Room returns the room with id, or nil.
func (s Snapshot) Room(id uuid.UUID) *models.BreakoutRoom {
	for i := range s.Rooms {
		if s.Rooms[i].ID == id {
			return &s.Rooms[i]
		}
	}
	return nil
}

// CurrentRoomDetails returns the room the user currently occupies, or nil.
func (s Snapshot) CurrentRoomDetails() *models.BreakoutRoom {
	if s.CurrentRoom == nil {
		return nil
	}
	return s.Room(s.CurrentRoom.RoomID)
}
