package activity

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/testfixtures"
)

type fakeRepo struct {
	inserted []models.ActivityLog
	fail     error
	stats    models.ActivityStats
}

func (f *fakeRepo) Insert(ctx context.Context, a *models.ActivityLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.fail != nil {
		return f.fail
	}
	a.ID = uuid.New()
	f.inserted = append(f.inserted, *a)
	return nil
}

func (f *fakeRepo) ListByEvent(context.Context, uuid.UUID) ([]models.ActivityLog, error) {
	return f.inserted, nil
}

func (f *fakeRepo) Stats(context.Context, uuid.UUID) (*models.ActivityStats, error) {
	return &f.stats, nil
}

func TestRecordSurvivesCancelledRequest(t *testing.T) {
	repo := &fakeRepo{}
	pub := &testfixtures.Publisher{}
	l := NewLogger(repo, pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Record(ctx, uuid.New(), uuid.New(), models.ActivityBreakoutJoin, map[string]string{"room_id": "r1"})

	require.Len(t, repo.inserted, 1)
	assert.JSONEq(t, `{"room_id":"r1"}`, string(repo.inserted[0].ActivityData))
	assert.Equal(t, []string{models.TableParticipantActivities}, pub.Tables())
}

func TestRecordSwallowsFailure(t *testing.T) {
	repo := &fakeRepo{fail: errors.New("db down")}
	pub := &testfixtures.Publisher{}
	l := NewLogger(repo, pub, zap.NewNop())

	assert.NotPanics(t, func() {
		l.Record(context.Background(), uuid.New(), uuid.New(), models.ActivityChat, nil)
	})
	assert.Empty(t, pub.Changes)
}

func TestStatsHandler(t *testing.T) {
	repo := &fakeRepo{stats: models.ActivityStats{TotalParticipants: 3, ChatMessages: 7, PollVotes: 2}}
	h := NewHandler(repo, nil)
	r := testfixtures.Router()
	ev := uuid.New()
	r.GET("/events/:id/activities/stats", testfixtures.AsUser(uuid.New()), events.EventParam(), h.Stats)

	w := testfixtures.DoJSON(t, r, http.MethodGet, "/events/"+ev.String()+"/activities/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := testfixtures.Decode[models.ActivityStats](t, w)
	assert.Equal(t, 7, env.Data.ChatMessages)
	assert.Equal(t, 3, env.Data.TotalParticipants)
}
