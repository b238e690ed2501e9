package model

import "errors"

// Sentinel kinds of the reservation error taxonomy. Every layer wraps these
// with context; callers match them with errors.Is.
var (
	// ErrNotFound reports an unknown cohort or slot.
	ErrNotFound = errors.New("not found")
	// ErrPoolExhausted reports that no slot is available after expiry reclamation.
	ErrPoolExhausted = errors.New("pool exhausted")
	// ErrNotOwner reports a mutation by a requester that does not hold the slot.
	ErrNotOwner = errors.New("slot not held by requester")
	// ErrInvalidState reports a transition the slot state machine forbids.
	ErrInvalidState = errors.New("invalid slot state")
	// ErrExpired reports a confirmation after the reservation deadline.
	ErrExpired = errors.New("reservation expired")
	// ErrConflict reports a failed optimistic concurrency check.
	ErrConflict = errors.New("concurrent modification")
	// ErrStorageUnavailable reports an unreachable durable store.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCohortExists reports an attempt to initialize a cohort twice.
	ErrCohortExists = errors.New("cohort already exists")
	// ErrDuplicateSkillset reports a skillset that already occupies a slot.
	ErrDuplicateSkillset = errors.New("skillset already submitted")
	// ErrInvalidArgument reports malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrBusy reports a cohort whose command mailbox is full.
	ErrBusy = errors.New("cohort busy")
	// ErrStopped reports a coordinator that is not running.
	ErrStopped = errors.New("coordinator stopped")
)
