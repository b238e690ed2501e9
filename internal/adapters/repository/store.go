// Package repository defines the reservation state store and its backends.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/ghostslot/internal/domain/model"
	"github.com/okian/ghostslot/pkg/metrics"
)

// Store provides durable, versioned storage of one ReservationState per cohort.
//
// Every successful mutation is persisted before it is returned to the caller.
type Store interface {
	// Create persists a new cohort. Returns model.ErrCohortExists if the
	// cohort is already stored.
	Create(ctx context.Context, state model.ReservationState) error

	// Read returns a consistent snapshot of a cohort.
	// Returns model.ErrNotFound if the cohort is unknown.
	Read(ctx context.Context, cohort int) (model.ReservationState, error)

	// ApplyTransition atomically applies ts to a cohort stored at
	// expectedVersion and returns the new state. Returns model.ErrConflict if
	// the version or any expected slot status no longer matches.
	ApplyTransition(ctx context.Context, cohort int, expectedVersion int64, ts ...model.Transition) (model.ReservationState, error)

	// Cohorts lists the stored cohort numbers in ascending order.
	Cohorts(ctx context.Context) ([]int, error)

	Close() error
}

// observe records latency and error kind of one store operation.
func observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if err == nil {
		return
	}
	kind := "other"
	switch {
	case errors.Is(err, model.ErrNotFound):
		kind = "not_found"
	case errors.Is(err, model.ErrConflict):
		kind = "conflict"
	case errors.Is(err, model.ErrCohortExists):
		kind = "exists"
	case errors.Is(err, model.ErrStorageUnavailable):
		kind = "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = "cancelled"
	}
	metrics.RecordStoreError(backend, op, kind)
}
