// Package service wires the reservation coordinator to its store and exposes
// the operations the HTTP API depends on.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/ghostslot/internal/adapters/repository"
	"github.com/okian/ghostslot/internal/domain/model"
	"github.com/okian/ghostslot/internal/domain/types"
	"github.com/okian/ghostslot/pkg/logger"
)

const (
	defaultPoolSize    = 10
	defaultStopTimeout = 5 * time.Second
)

// Service implements the API dependencies for the reservation system.
type Service struct {
	mu sync.RWMutex

	store       repository.Store
	coordinator *Coordinator
	coordOpts   []CoordinatorOption

	// Configuration
	cohorts         map[int]int
	defaultPoolSize int
	stopTimeout     time.Duration

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the reservation state store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCoordinatorOptions passes options through to the coordinator.
func WithCoordinatorOptions(opts ...CoordinatorOption) Option {
	return func(s *Service) {
		s.coordOpts = append(s.coordOpts, opts...)
	}
}

// WithCohorts sets cohorts to create at start, keyed by cohort number with
// the pool size as value. Existing cohorts are left untouched.
func WithCohorts(cohorts map[int]int) Option {
	return func(s *Service) {
		for cohort, size := range cohorts {
			s.cohorts[cohort] = size
		}
	}
}

// WithDefaultPoolSize sets the pool size used when a cohort is created
// without one.
func WithDefaultPoolSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultPoolSize = n
		}
	}
}

// WithStopTimeout bounds how long Stop waits for queued commands.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cohorts:         make(map[int]int),
		defaultPoolSize: defaultPoolSize,
		stopTimeout:     defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates configured cohorts and starts the coordinator.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.logger.Info(ctx, "starting reservation service...", logger.String("store", backendOf(s.store)))

	opts := append([]CoordinatorOption{WithCoordinatorLogger(s.logger.Named("coordinator"))}, s.coordOpts...)
	coord := NewCoordinator(s.store, opts...)

	ids := make([]int, 0, len(s.cohorts))
	for cohort := range s.cohorts {
		ids = append(ids, cohort)
	}
	sort.Ints(ids)
	for _, cohort := range ids {
		size := s.cohorts[cohort]
		if size <= 0 {
			size = s.defaultPoolSize
		}
		_, err := coord.CreateCohort(ctx, cohort, size)
		switch {
		case err == nil:
		case errors.Is(err, model.ErrCohortExists):
			s.logger.Debug(ctx, "cohort already stored", logger.Int("cohort", cohort))
		default:
			return fmt.Errorf("create cohort %d: %w", cohort, err)
		}
	}

	if err := coord.Start(ctx); err != nil {
		return err
	}

	s.coordinator = coord
	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "reservation service started",
		logger.Int("cohorts", len(ids)),
		logger.String("ttl", coord.TTL().String()),
		logger.Int("maxConflictRetries", coord.maxRetries),
		logger.Int("mailboxSize", coord.mailbox),
	)
	return nil
}

// Stop drains the cohort actors and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping reservation service...")

	if err := s.coordinator.Stop(s.stopTimeout); err != nil {
		s.logger.Warn(ctx, "cohort actors did not drain", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "reservation service stopped")
}

func (s *Service) running() (*Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, model.ErrStopped
	}
	return s.coordinator, nil
}

// Reserve claims a slot of cohort for requester.
func (s *Service) Reserve(ctx context.Context, cohort int, requester string) (types.Slot, error) {
	c, err := s.running()
	if err != nil {
		return types.Slot{}, err
	}
	slot, err := c.Reserve(ctx, cohort, requester)
	if err != nil {
		return types.Slot{}, err
	}
	return types.FromSlot(slot), nil
}

// Release returns a reserved slot to the pool.
func (s *Service) Release(ctx context.Context, cohort int, slotID, requester string) (types.Slot, error) {
	c, err := s.running()
	if err != nil {
		return types.Slot{}, err
	}
	slot, err := c.Release(ctx, cohort, slotID, requester)
	if err != nil {
		return types.Slot{}, err
	}
	return types.FromSlot(slot), nil
}

// ConfirmSubmission occupies a reserved slot with a skillset.
func (s *Service) ConfirmSubmission(ctx context.Context, cohort int, slotID, requester, skillsetID string) (types.Slot, error) {
	c, err := s.running()
	if err != nil {
		return types.Slot{}, err
	}
	slot, err := c.ConfirmSubmission(ctx, cohort, slotID, requester, skillsetID)
	if err != nil {
		return types.Slot{}, err
	}
	return types.FromSlot(slot), nil
}

// Query returns the cohort as seen by requester, who may be empty.
func (s *Service) Query(ctx context.Context, cohort int, requester string) (types.ReservationState, error) {
	c, err := s.running()
	if err != nil {
		return types.ReservationState{}, err
	}
	v, err := c.Query(ctx, cohort, requester)
	if err != nil {
		return types.ReservationState{}, err
	}
	return types.FromView(v), nil
}

// CreateCohort initializes a new cohort. A zero total uses the default pool
// size; a negative one is rejected.
func (s *Service) CreateCohort(ctx context.Context, cohort, total int) (types.ReservationState, error) {
	c, err := s.running()
	if err != nil {
		return types.ReservationState{}, err
	}
	switch {
	case total < 0:
		return types.ReservationState{}, fmt.Errorf("%w: totalGhostSlots %d is negative", model.ErrInvalidArgument, total)
	case total == 0:
		total = s.defaultPoolSize
	}
	v, err := c.CreateCohort(ctx, cohort, total)
	if err != nil {
		return types.ReservationState{}, err
	}
	return types.FromView(v), nil
}

// Cohorts summarizes every stored cohort.
func (s *Service) Cohorts(ctx context.Context) ([]types.CohortSummary, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	views, err := c.Cohorts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.CohortSummary, len(views))
	for i, v := range views {
		out[i] = types.Summarize(v)
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"defaultPoolSize": s.defaultPoolSize,
	}
	if s.store != nil {
		stats["store"] = backendOf(s.store)
	}
	if s.started {
		c := s.coordinator
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["actors"] = c.Actors()
		stats["claimedSkillsets"] = c.Claims()
		stats["reservationTtlSeconds"] = c.ttl
		stats["maxConflictRetries"] = c.maxRetries
		stats["mailboxSize"] = c.mailbox
		if ids, err := s.store.Cohorts(context.Background()); err == nil {
			stats["cohorts"] = len(ids)
		}
	}
	return stats
}

func backendOf(store repository.Store) string {
	switch store.(type) {
	case *repository.MemoryStore:
		return "memory"
	case *repository.RedisStore:
		return "redis"
	}
	return fmt.Sprintf("%T", store)
}
