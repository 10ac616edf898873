package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxAttachmentSize is the client and server cap for chat and discussion files (10 MiB).
const MaxAttachmentSize int64 = 10 * 1024 * 1024

// Thread selects the table a message belongs to.
type Thread string

const (
	ThreadChat       Thread = "chat"       // chat_messages, live phase
	ThreadDiscussion Thread = "discussion" // post_event_discussions, ended phase
)

// Table returns the backing table name.
func (t Thread) Table() string {
	if t == ThreadDiscussion {
		return TablePostEventDiscussions
	}
	return TableChatMessages
}

// ChatMessage is an append-only chat or discussion row. Message or file (or both) is present.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message,omitempty"`
	FilePath  *string   `json:"file_path,omitempty"`
	FileName  *string   `json:"file_name,omitempty"`
	FileSize  *int64    `json:"file_size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasFile reports whether the message references an attachment.
func (m *ChatMessage) HasFile() bool { return m.FilePath != nil && *m.FilePath != "" }

// ValidateMessage checks that text or a file is present.
func ValidateMessage(text string, hasFile bool) error {
	if strings.TrimSpace(text) == "" && !hasFile {
		return ErrEmptyMessage
	}
	return nil
}

// CheckAttachmentSize rejects files above MaxAttachmentSize.
func CheckAttachmentSize(size int64) error {
	if size > MaxAttachmentSize {
		return ErrFileTooLarge
	}
	return nil
}
