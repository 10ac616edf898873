package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordingFormatMP4 is what the recording uploader function writes.
const RecordingFormatMP4 = "mp4"

// Recording is an uploaded event recording stored in the recordings bucket.
type Recording struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	FilePath  string    `json:"file_path"`
	Duration  int       `json:"duration"` // seconds
	FileSize  *int64    `json:"file_size,omitempty"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

// IsVideoContentType reports whether ct is a video/* MIME type.
func IsVideoContentType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "video/")
}
