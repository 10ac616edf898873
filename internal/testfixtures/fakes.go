package testfixtures

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/igot-live/backend/internal/realtime"
)

// Publisher records published changes.
type Publisher struct {
	mu      sync.Mutex
	Changes []realtime.Change
}

// PublishChange implements realtime.Publisher.
func (p *Publisher) PublishChange(eventID uuid.UUID, table string, typ realtime.ChangeType, record interface{}) {
	raw, _ := json.Marshal(record)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Changes = append(p.Changes, realtime.Change{Table: table, Type: typ, EventID: eventID, Record: raw})
}

// Tables returns the table of every recorded change in order.
func (p *Publisher) Tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Changes))
	for _, c := range p.Changes {
		out = append(out, c.Table)
	}
	return out
}

// Organizers maps event id to organizer id. Unknown events answer pgx.ErrNoRows.
type Organizers map[uuid.UUID]uuid.UUID

// IsOrganizer implements events.OrganizerChecker.
func (o Organizers) IsOrganizer(_ context.Context, eventID, userID uuid.UUID) (bool, error) {
	org, ok := o[eventID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	return org == userID, nil
}

// ActivityEntry is one recorded activity.
type ActivityEntry struct {
	EventID uuid.UUID
	UserID  uuid.UUID
	Type    string
	Data    any
}

// Activity records best-effort activity writes.
type Activity struct {
	mu      sync.Mutex
	Entries []ActivityEntry
}

// Record implements activity.Recorder.
func (a *Activity) Record(_ context.Context, eventID, userID uuid.UUID, activityType string, data any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, ActivityEntry{EventID: eventID, UserID: userID, Type: activityType, Data: data})
}

// Types returns the recorded activity types in order.
func (a *Activity) Types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e.Type)
	}
	return out
}
