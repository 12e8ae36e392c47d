package session

import "errors"

var (
	ErrEmptyName          = errors.New("session name cannot be empty")
	ErrInvalidFeedback    = errors.New("feedback needs a confirmed message id and a rating")
	ErrCreationInProgress = errors.New("session creation already in progress")
	ErrSessionNotFound    = errors.New("session not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrEmptyMessage       = errors.New("message cannot be empty")
	ErrNoAttachments      = errors.New("at least one file is required")
	// ErrStaleResponse is returned when a newer call of the same kind was
	// issued while this one was in flight; its result was dropped.
	ErrStaleResponse = errors.New("response superseded by a newer request")
	ErrIllegalState  = errors.New("illegal session state combination")
)
