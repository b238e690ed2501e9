package worker

import "errors"

// Sentinel kinds for submission errors.
var (
	ErrStopped = errors.New("worker stopped")
	ErrFull    = errors.New("mailbox full")
)
