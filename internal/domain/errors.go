package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrInvalidQueueID    = errors.New("queue id must be 1-128 characters without '/', '?', '#' or whitespace")
	ErrAlreadyMonitoring = errors.New("queue is already being monitored")
	ErrNotMonitoring     = errors.New("queue is not being monitored")
	ErrUnknownCommand    = errors.New("unknown command type")
	ErrStatusUnavailable = errors.New("queue status unavailable")
	ErrMalformedStatus   = errors.New("malformed queue status response")
	ErrSurfaceClosed     = errors.New("notification surface is closed")
)
