package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/ghostslot/internal/domain/model"
)

const memoryBackend = "memory"

// MemoryStore keeps cohorts in process memory. It offers the same atomicity
// as the durable backends but loses everything on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	cohorts map[int]model.ReservationState
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cohorts: make(map[int]model.ReservationState)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, state model.ReservationState) (err error) {
	defer func(start time.Time) { observe(memoryBackend, "create", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = state.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.cohorts[state.Cohort]; ok {
		return fmt.Errorf("%w: cohort %d", model.ErrCohortExists, state.Cohort)
	}
	s.cohorts[state.Cohort] = state.Clone()
	return nil
}

// Read implements Store.
func (s *MemoryStore) Read(ctx context.Context, cohort int) (state model.ReservationState, err error) {
	defer func(start time.Time) { observe(memoryBackend, "read", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return model.ReservationState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return model.ReservationState{}, ErrClosed
	}
	cur, ok := s.cohorts[cohort]
	if !ok {
		return model.ReservationState{}, fmt.Errorf("%w: cohort %d", model.ErrNotFound, cohort)
	}
	return cur.Clone(), nil
}

// ApplyTransition implements Store.
func (s *MemoryStore) ApplyTransition(ctx context.Context, cohort int, expectedVersion int64, ts ...model.Transition) (state model.ReservationState, err error) {
	defer func(start time.Time) { observe(memoryBackend, "apply", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return model.ReservationState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.ReservationState{}, ErrClosed
	}
	cur, ok := s.cohorts[cohort]
	if !ok {
		return model.ReservationState{}, fmt.Errorf("%w: cohort %d", model.ErrNotFound, cohort)
	}
	next, err := cur.Apply(expectedVersion, ts...)
	if err != nil {
		return model.ReservationState{}, err
	}
	s.cohorts[cohort] = next
	return next.Clone(), nil
}

// Cohorts implements Store.
func (s *MemoryStore) Cohorts(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make([]int, 0, len(s.cohorts))
	for c := range s.cohorts {
		out = append(out, c)
	}
	sort.Ints(out)
	return out, nil
}

// Close implements Store. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
