package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/igot-live/backend/internal/models"
)

func TestListDeduplicates(t *testing.T) {
	a := models.ChatMessage{ID: uuid.New(), Message: "a"}
	b := models.ChatMessage{ID: uuid.New(), Message: "b"}
	l := NewList(messageID)

	l.Replace([]models.ChatMessage{a, b, a})
	assert.Equal(t, 2, l.Len())

	assert.False(t, l.Append(b))
	assert.True(t, l.Append(models.ChatMessage{ID: uuid.New(), Message: "c"}))

	items := l.Items()
	items[0].Message = "changed"
	assert.Equal(t, "a", l.Items()[0].Message)
}

func TestPhasePanels(t *testing.T) {
	assert.Equal(t, PhaseLive, PhaseOf(nil))
	assert.Equal(t, PhaseLive, PhaseOf(&models.Event{Status: models.EventStatusUpcoming}))
	assert.Equal(t, PhaseEnded, PhaseOf(&models.Event{Status: models.EventStatusCompleted}))
	assert.Equal(t, []Panel{PanelChat}, Panels(PhaseLive))
	assert.Equal(t, []Panel{PanelDiscussion, PanelRecordings}, Panels(PhaseEnded))
}
