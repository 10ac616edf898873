// Package main opens a headless live-event session against the platform and logs every update.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/igot-live/backend/config"
	"github.com/igot-live/backend/internal/session"
	"github.com/igot-live/backend/pkg/client"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	eventID, err := uuid.Parse(cfg.Client.EventID)
	if err != nil {
		logger.Fatal("SESSION_EVENT_ID must be an event uuid", zap.Error(err))
	}
	if cfg.Client.Token == "" {
		logger.Fatal("PLATFORM_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Client.PlatformURL, cfg.Client.Token, nil, logger)
	me, err := api.Me(ctx)
	if err != nil {
		logger.Fatal("authenticate", zap.Error(err))
	}
	logger.Info("signed in", zap.String("user_id", me.ID.String()), zap.String("email", me.Email))

	s, err := session.Open(ctx, session.Options{
		EventID:  eventID,
		Backend:  api,
		Feed:     api.Feed(),
		Notifier: session.LogNotifier{Logger: logger},
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("open session", zap.Error(err))
	}
	defer s.Close()

	logSnapshot(logger, session.KindEvent, s.Snapshot())
	logger.Info("watching", zap.Strings("tables", s.Subscribed()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping")
			return
		case k, ok := <-s.Updates():
			if !ok {
				return
			}
			logSnapshot(logger, k, s.Snapshot())
		}
	}
}

func logSnapshot(logger *zap.Logger, k session.Kind, snap session.Snapshot) {
	fields := []zap.Field{zap.Stringer("kind", k), zap.String("phase", string(snap.Phase))}
	switch k {
	case session.KindEvent:
		if snap.Event != nil {
			fields = append(fields, zap.String("title", snap.Event.Title), zap.String("status", snap.Event.Status))
		}
	case session.KindMessages:
		fields = append(fields, zap.Int("messages", len(snap.Messages)))
		if n := len(snap.Messages); n > 0 {
			fields = append(fields, zap.String("latest", snap.Messages[n-1].Message))
		}
	case session.KindDiscussions:
		fields = append(fields, zap.Int("discussions", len(snap.Discussions)))
	case session.KindPolls:
		fields = append(fields, zap.Int("polls", len(snap.Polls)), zap.Int("active", len(snap.ActivePolls())))
	case session.KindSurveys:
		fields = append(fields, zap.Int("surveys", len(snap.Surveys)))
	case session.KindRooms:
		fields = append(fields, zap.Int("rooms", len(snap.Rooms)))
		if r := snap.CurrentRoomDetails(); r != nil {
			fields = append(fields, zap.String("current_room", r.Name))
		}
	case session.KindRecordings:
		fields = append(fields, zap.Int("recordings", len(snap.Recordings)))
	case session.KindActivities:
		fields = append(fields,
			zap.Int("participants", snap.Stats.TotalParticipants),
			zap.Int("chat_messages", snap.Stats.ChatMessages),
			zap.Int("poll_votes", snap.Stats.PollVotes),
		)
	}
	logger.Info("session update", fields...)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
