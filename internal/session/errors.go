package session

import (
	"errors"
	"fmt"

	"github.com/igot-live/backend/internal/models"
)

var (
	// ErrValidation marks input rejected before any backend call.
	ErrValidation = errors.New("validation failed")
	// ErrFileTooLarge is returned for attachments above models.MaxAttachmentSize.
	ErrFileTooLarge = models.ErrFileTooLarge
	// ErrNoActiveStream is returned when going live without an acquired stream.
	ErrNoActiveStream = errors.New("no active stream")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("session closed")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
