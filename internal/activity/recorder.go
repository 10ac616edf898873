package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/realtime"
)

// Recorder appends activity rows on a best-effort basis. Failures never reach the caller.
type Recorder interface {
	Record(ctx context.Context, eventID, userID uuid.UUID, activityType string, data any)
}

// Inserter is the write side of Repository.
type Inserter interface {
	Insert(ctx context.Context, a *models.ActivityLog) error
}

// Logger is the Recorder used by the server handlers.
type Logger struct {
	repo    Inserter
	pub     realtime.Publisher
	logger  *zap.Logger
	timeout time.Duration
}

// NewLogger creates a best-effort activity recorder.
func NewLogger(repo Inserter, pub realtime.Publisher, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{repo: repo, pub: pub, logger: logger, timeout: 5 * time.Second}
}

// Record writes the row detached from the request context so a client hanging up does not drop it.
func (l *Logger) Record(ctx context.Context, eventID, userID uuid.UUID, activityType string, data any) {
	a := &models.ActivityLog{EventID: eventID, UserID: userID, ActivityType: activityType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			l.logger.Warn("activity data not encodable", zap.String("type", activityType), zap.Error(err))
		} else {
			a.ActivityData = raw
		}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	if err := l.repo.Insert(ctx, a); err != nil {
		l.logger.Warn("activity log failed",
			zap.String("event_id", eventID.String()),
			zap.String("type", activityType),
			zap.Error(err),
		)
		return
	}
	l.pub.PublishChange(eventID, models.TableParticipantActivities, realtime.ChangeInsert, a)
}
