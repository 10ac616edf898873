package session

import (
	"github.com/google/uuid"

	"github.com/igot-live/backend/internal/models"
)

// List is an ordered list of rows that rejects a second row with the same id.
// It is not safe for concurrent use; Session guards it.
type List[T any] struct {
	id    func(T) uuid.UUID
	items []T
	seen  map[uuid.UUID]struct{}
}

// NewList creates an empty list keyed by id.
func NewList[T any](id func(T) uuid.UUID) *List[T] {
	return &List[T]{id: id, seen: make(map[uuid.UUID]struct{})}
}

// Replace swaps in a freshly fetched set. Duplicate ids in items keep their first occurrence.
func (l *List[T]) Replace(items []T) {
	l.items = make([]T, 0, len(items))
	l.seen = make(map[uuid.UUID]struct{}, len(items))
	for _, it := range items {
		l.Append(it)
	}
}

// Append adds item unless its id is already present and reports whether it was added.
func (l *List[T]) Append(item T) bool {
	id := l.id(item)
	if _, ok := l.seen[id]; ok {
		return false
	}
	l.seen[id] = struct{}{}
	l.items = append(l.items, item)
	return true
}

// Len returns the number of rows.
func (l *List[T]) Len() int { return len(l.items) }

// Items returns a copy of the rows in order.
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

func messageID(m models.ChatMessage) uuid.UUID { return m.ID }
