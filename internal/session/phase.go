package session

import "github.com/igot-live/backend/internal/models"

// Phase is the live/ended split that picks the communication panel.
type Phase string

const (
	PhaseLive  Phase = "live"
	PhaseEnded Phase = "ended"
)

// Panel is a view a client renders for the current phase.
type Panel string

const (
	PanelChat       Panel = "chat"
	PanelDiscussion Panel = "discussion"
	PanelRecordings Panel = "recordings"
)

// PhaseOf maps an event row to its phase. A missing event and upcoming events are live.
func PhaseOf(ev *models.Event) Phase {
	if ev != nil && ev.IsEnded() {
		return PhaseEnded
	}
	return PhaseLive
}

// Panels returns the panels shown in p.
func Panels(p Phase) []Panel {
	if p == PhaseEnded {
		return []Panel{PanelDiscussion, PanelRecordings}
	}
	return []Panel{PanelChat}
}

func (s *Session) phaseLocked() Phase {
	if s.endedLocally {
		return PhaseEnded
	}
	return PhaseOf(s.event)
}
