package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Embed    EmbedConfig
	Polls    PollsConfig
	Email    EmailConfig
	Client   ClientConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the two S3 buckets (chat attachments, recordings).
type AWSConfig struct {
	Region                 string
	AccessKeyID            string
	SecretAccessKey        string
	ChatFilesBucket        string
	RecordingsBucket       string
	PresignExpireMinutes   int
	RecordingURLTTLSeconds int
}

// EmbedConfig controls the embed-code issuer.
type EmbedConfig struct {
	DefaultOrigin string // used when the request carries no Origin header
}

// PollsConfig holds voting policy.
type PollsConfig struct {
	UniqueVotes bool // reject a second vote by the same user on the same poll
}

// EmailConfig for invitation delivery.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// ClientConfig is read by cmd/sessionwatch.
type ClientConfig struct {
	PlatformURL string
	Token       string
	EventID     string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// PresignExpire returns the signed URL lifetime for chat attachments.
func (c AWSConfig) PresignExpire() time.Duration {
	if c.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.PresignExpireMinutes) * time.Minute
}

// RecordingURLTTL returns the signed URL lifetime for recording playback.
func (c AWSConfig) RecordingURLTTL() time.Duration {
	if c.RecordingURLTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.RecordingURLTTLSeconds) * time.Second
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "igot_live"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:                 getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:            getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ChatFilesBucket:        getEnv("AWS_S3_CHAT_FILES_BUCKET", "chat-files"),
			RecordingsBucket:       getEnv("AWS_S3_RECORDINGS_BUCKET", "event-recordings"),
			PresignExpireMinutes:   getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
			RecordingURLTTLSeconds: getEnvInt("RECORDING_URL_TTL_SEC", 3600),
		},
		Embed: EmbedConfig{
			DefaultOrigin: getEnv("EMBED_DEFAULT_ORIGIN", "https://live.igot.example"),
		},
		Polls: PollsConfig{
			UniqueVotes: getEnvBool("POLL_UNIQUE_VOTES", false),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "iGOT Live"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Client: ClientConfig{
			PlatformURL: getEnv("PLATFORM_URL", "http://localhost:8080"),
			Token:       getEnv("PLATFORM_TOKEN", ""),
			EventID:     getEnv("SESSION_EVENT_ID", ""),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
