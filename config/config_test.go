package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POLL_UNIQUE_VOTES", "")
	t.Setenv("AWS_S3_CHAT_FILES_BUCKET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "chat-files", cfg.AWS.ChatFilesBucket)
	assert.False(t, cfg.Polls.UniqueVotes)
	assert.Equal(t, time.Hour, cfg.AWS.RecordingURLTTL())
	assert.Contains(t, cfg.Database.DSN(), "postgres://")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/live?sslmode=require")
	t.Setenv("POLL_UNIQUE_VOTES", "true")
	t.Setenv("AWS_PRESIGN_EXPIRE_MINUTES", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://db:5432/live?sslmode=require", cfg.Database.DSN())
	assert.True(t, cfg.Polls.UniqueVotes)
	assert.Equal(t, 5*time.Minute, cfg.AWS.PresignExpire())
}
