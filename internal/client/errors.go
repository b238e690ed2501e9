package client

import (
	"errors"
	"fmt"

	"github.com/okian/ghostslot/internal/domain/model"
)

// ErrUnexpectedStatus is returned when a response is neither a success nor a
// decodable error body.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// APIError is a non-2xx response from the reservation API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// codes maps wire error codes back to domain sentinels.
var codes = map[string]error{
	"storage_unavailable": model.ErrStorageUnavailable,
	"stopped":             model.ErrStopped,
	"bad_request":         model.ErrInvalidArgument,
	"not_found":           model.ErrNotFound,
	"pool_exhausted":      model.ErrPoolExhausted,
	"not_owner":           model.ErrNotOwner,
	"invalid_state":       model.ErrInvalidState,
	"expired":             model.ErrExpired,
	"conflict":            model.ErrConflict,
	"duplicate_skillset":  model.ErrDuplicateSkillset,
	"cohort_exists":       model.ErrCohortExists,
	"busy":                model.ErrBusy,
}

// Is lets callers match an APIError with errors.Is against model sentinels.
func (e *APIError) Is(target error) bool {
	sentinel, ok := codes[e.Code]
	return ok && sentinel == target
}

// Retryable reports whether the server asked the caller to try again later.
func (e *APIError) Retryable() bool {
	switch e.Code {
	case "storage_unavailable", "busy", "rate_limited":
		return true
	}
	return false
}
