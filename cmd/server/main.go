// Package main runs the live-event platform HTTP server with WebSocket change feeds and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/igot-live/backend/config"
	"github.com/igot-live/backend/internal/activity"
	"github.com/igot-live/backend/internal/auth"
	"github.com/igot-live/backend/internal/breakout"
	"github.com/igot-live/backend/internal/chat"
	"github.com/igot-live/backend/internal/embed"
	"github.com/igot-live/backend/internal/events"
	"github.com/igot-live/backend/internal/invitations"
	"github.com/igot-live/backend/internal/middleware"
	"github.com/igot-live/backend/internal/models"
	"github.com/igot-live/backend/internal/polls"
	"github.com/igot-live/backend/internal/realtime"
	"github.com/igot-live/backend/internal/recordings"
	"github.com/igot-live/backend/internal/surveys"
	"github.com/igot-live/backend/pkg/database"
	"github.com/igot-live/backend/pkg/queue"
	"github.com/igot-live/backend/pkg/redis"
	"github.com/igot-live/backend/pkg/response"
	"github.com/igot-live/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:           cfg.AWS.Region,
		AccessKeyID:      cfg.AWS.AccessKeyID,
		SecretAccessKey:  cfg.AWS.SecretAccessKey,
		ChatFilesBucket:  cfg.AWS.ChatFilesBucket,
		RecordingsBucket: cfg.AWS.RecordingsBucket,
		PresignExpire:    cfg.AWS.PresignExpire(),
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, hub, logger)
	organizer := events.RequireOrganizer(eventRepo, logger)

	// Activity log, written best-effort by the other write paths
	activityRepo := activity.NewRepository(pool)
	activityLogger := activity.NewLogger(activityRepo, hub, logger)
	activityHandler := activity.NewHandler(activityRepo, logger)

	chatHandler := chat.NewHandler(chat.NewRepository(pool), s3Client, hub, activityLogger, logger)
	pollHandler := polls.NewHandler(polls.NewRepository(pool), eventRepo, hub, activityLogger, cfg.Polls.UniqueVotes, logger)
	surveyHandler := surveys.NewHandler(surveys.NewRepository(pool), hub, activityLogger, logger)
	roomHandler := breakout.NewHandler(breakout.NewRepository(pool), hub, activityLogger, logger)

	// Recordings
	recordingRepo := recordings.NewRepository(pool)
	recordingHandler := recordings.NewHandler(recordingRepo, eventRepo, s3Client, hub, cfg.AWS.RecordingURLTTL(), logger)
	recordingFunction := recordings.NewFunctionHandler(recordingRepo, eventRepo, jwtService, hub, logger)

	invitationHandler := invitations.NewHandler(invitations.NewRepository(pool), eventRepo, jobQueue, cfg.Embed.DefaultOrigin, logger)
	embedHandler := embed.NewHandler(eventRepo, cfg.Embed.DefaultOrigin, logger)

	jwtValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSByPath(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Serverless-style functions: permissive CORS, token checked in the handler
	functions := router.Group("/functions")
	{
		functions.POST("/get-stream-embed", embedHandler.GetStreamEmbed)
		functions.POST("/upload-recording", recordingFunction.UploadRecording)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected API (JWT required)
	api := router.Group("", middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.POST("/events", eventHandler.Create)
		api.GET("/events", eventHandler.List)

		ev := api.Group("/events/:id", events.EventParam())
		ev.GET("", eventHandler.Get)
		ev.PATCH("/status", organizer, eventHandler.UpdateStatus)
		ev.POST("/join", eventHandler.Join)
		ev.GET("/participants", eventHandler.Participants)

		// Chat (live) and discussion (after the event)
		ev.GET("/messages", chatHandler.List(models.ThreadChat))
		ev.POST("/messages", chatHandler.Send(models.ThreadChat))
		ev.GET("/discussions", chatHandler.List(models.ThreadDiscussion))
		ev.POST("/discussions", chatHandler.Send(models.ThreadDiscussion))
		ev.GET("/attachments", chatHandler.Attachment)

		// Polls
		ev.GET("/polls", pollHandler.List)
		ev.POST("/polls", organizer, pollHandler.Create)
		api.POST("/polls/:id/activate", pollHandler.Activate)
		api.POST("/polls/:id/close", pollHandler.Close)
		api.POST("/polls/:id/vote", pollHandler.Vote)
		api.GET("/polls/:id/results", pollHandler.Results)

		// Surveys
		ev.GET("/surveys", surveyHandler.List)
		ev.POST("/surveys", organizer, surveyHandler.Create)
		api.POST("/surveys/:id/responses", surveyHandler.Respond)

		// Breakout rooms
		ev.GET("/rooms", roomHandler.List)
		ev.GET("/rooms/current", roomHandler.Current)
		ev.POST("/rooms", organizer, roomHandler.Create)
		api.POST("/rooms/:id/join", roomHandler.Join)
		api.POST("/rooms/:id/leave", roomHandler.Leave)

		// Recordings
		ev.GET("/recordings", recordingHandler.List)
		ev.POST("/recordings", organizer, recordingHandler.Upload)
		api.GET("/recordings/:id/download-url", recordingHandler.DownloadURL)

		// Activity
		ev.GET("/activities", activityHandler.List)
		ev.GET("/activities/stats", activityHandler.Stats)

		// Invitations
		ev.GET("/invitations", organizer, invitationHandler.List)
		ev.POST("/invitations", organizer, invitationHandler.Send)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
