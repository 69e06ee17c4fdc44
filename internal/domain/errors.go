package domain

import "errors"

// Sentinel errors surfaced by the API layer (errors.Is-comparable).
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidLanguage    = errors.New("unsupported language")
	ErrEmptySourceCode    = errors.New("source code must not be empty")
	ErrPayloadTooLarge    = errors.New("submission payload too large")
	ErrPublishFailed      = errors.New("failed to enqueue submission")
)
