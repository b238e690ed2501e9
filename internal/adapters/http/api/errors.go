package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/ghostslot/internal/auth"
	"github.com/okian/ghostslot/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limited")
)

// retryAfterSeconds is advertised on transient failures.
const retryAfterSeconds = "1"

// classify maps an error to its HTTP status and stable error code.
// Storage failures are checked first because they may wrap other kinds.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, model.ErrStopped):
		return http.StatusServiceUnavailable, "stopped"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrPoolExhausted):
		return http.StatusConflict, "pool_exhausted"
	case errors.Is(err, model.ErrNotOwner):
		return http.StatusForbidden, "not_owner"
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, model.ErrExpired):
		return http.StatusGone, "expired"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, model.ErrDuplicateSkillset):
		return http.StatusConflict, "duplicate_skillset"
	case errors.Is(err, model.ErrCohortExists):
		return http.StatusConflict, "cohort_exists"
	case errors.Is(err, model.ErrBusy):
		return http.StatusTooManyRequests, "busy"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "cancelled"
	}
	return http.StatusInternalServerError, "internal_error"
}
