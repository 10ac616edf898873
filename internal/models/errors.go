package models

import "errors"

// Validation failures raised before any write is attempted.
var (
	ErrEmptyMessage   = errors.New("message or file is required")
	ErrFileTooLarge   = errors.New("File too large")
	ErrTooFewOptions  = errors.New("Please provide a question and at least 2 options")
	ErrNoQuestions    = errors.New("Please provide a title and at least one question")
	ErrEmptyRoomName  = errors.New("Please provide a room name")
	ErrRoomCapacity   = errors.New("max participants must be between 2 and 50")
	ErrNoInvitees     = errors.New("Please enter at least one email address")
	ErrNotVideo       = errors.New("Please upload a video file (MP4)")
	ErrUnknownOption  = errors.New("unknown poll option")
	ErrInvalidSurvey  = errors.New("unknown survey question")
	ErrEmptyEventInfo = errors.New("title, event type, scheduled date and duration are required")
)
