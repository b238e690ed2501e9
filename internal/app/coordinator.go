package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/ghostslot/internal/adapters/mq/worker"
	"github.com/okian/ghostslot/internal/adapters/repository"
	"github.com/okian/ghostslot/internal/domain/dedupe"
	"github.com/okian/ghostslot/internal/domain/model"
	"github.com/okian/ghostslot/pkg/logger"
	"github.com/okian/ghostslot/pkg/metrics"
)

// Default coordinator configuration.
const (
	DefaultReservationTTL     = 600 * time.Second
	DefaultMaxConflictRetries = 3
	DefaultMailboxSize        = 1024
)

type commandKind string

const (
	cmdReserve commandKind = "reserve"
	cmdRelease commandKind = "release"
	cmdSubmit  commandKind = "submit"
)

// command is one mutating request addressed to a cohort actor.
type command struct {
	ctx        context.Context
	kind       commandKind
	cohort     int
	requester  string
	slotID     string
	skillsetID string
	reply      chan result
}

type result struct {
	slot model.Slot
	err  error
}

// Coordinator sequences every mutation of a cohort through that cohort's
// actor. Actors for different cohorts run independently.
type Coordinator struct {
	store      repository.Store
	claims     dedupe.Deduper
	clock      func() int64
	ttl        int64
	maxRetries int
	mailbox    int
	// uniqueSkillsets keeps a skillset in at most one slot across cohorts.
	uniqueSkillsets bool
	logger          logger.Logger

	actors *worker.Pool[int, command]
	known  sync.Map
}

// CoordinatorOption applies a configuration option to the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock sets the time source in unix seconds.
func WithClock(clock func() int64) CoordinatorOption {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTTL sets how long a reservation is held.
func WithTTL(ttl time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if ttl >= time.Second {
			c.ttl = int64(ttl / time.Second)
		}
	}
}

// WithMaxConflictRetries bounds how often a conflicting write is retried.
func WithMaxConflictRetries(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithMailboxSize sets the pending command capacity of each cohort actor.
func WithMailboxSize(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.mailbox = n
		}
	}
}

// WithClaimIndex sets the index that keeps a skillset in at most one slot.
func WithClaimIndex(d dedupe.Deduper) CoordinatorOption {
	return func(c *Coordinator) {
		if d != nil {
			c.claims = d
		}
	}
}

// WithUniqueSkillsets toggles the rule that a skillset occupies at most one
// slot across all cohorts. It is on by default.
func WithUniqueSkillsets(on bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.uniqueSkillsets = on
	}
}

// WithCoordinatorLogger sets a custom logger.
func WithCoordinatorLogger(l logger.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator creates a coordinator over store. Call Start before use.
func NewCoordinator(store repository.Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:      store,
		clock:      func() int64 { return time.Now().Unix() },
		ttl:        int64(DefaultReservationTTL / time.Second),
		maxRetries: DefaultMaxConflictRetries,
		mailbox:    DefaultMailboxSize,

		uniqueSkillsets: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("coordinator")
	}
	if c.claims == nil {
		c.claims = dedupe.NewInMemoryDeduper()
	}
	c.actors = worker.NewPool[int, command](c.newActor,
		worker.WithName("cohort-actors"),
		worker.WithMailboxSize(c.mailbox),
		worker.WithLogger(c.logger),
	)
	return c
}

// Start seeds the skillset claim index from stored cohorts and starts
// accepting commands.
func (c *Coordinator) Start(ctx context.Context) error {
	cohorts, err := c.store.Cohorts(ctx)
	if err != nil {
		return fmt.Errorf("list cohorts: %w", err)
	}
	for _, cohort := range cohorts {
		state, err := c.store.Read(ctx, cohort)
		if err != nil {
			return fmt.Errorf("load cohort %d: %w", cohort, err)
		}
		if c.uniqueSkillsets {
			c.claims.Seed(ctx, state.SubmittedSkillsets()...)
		}
		c.known.Store(cohort, struct{}{})
	}
	metrics.UpdateCohortCount(len(cohorts))
	c.actors.Start(ctx)
	return nil
}

// Stop refuses new commands and waits for queued ones to finish.
func (c *Coordinator) Stop(timeout time.Duration) error {
	return c.actors.Stop(timeout)
}

// Now returns the coordinator clock in unix seconds.
func (c *Coordinator) Now() int64 {
	return c.clock()
}

// TTL returns the reservation hold duration.
func (c *Coordinator) TTL() time.Duration {
	return time.Duration(c.ttl) * time.Second
}

// Actors returns the number of running cohort actors.
func (c *Coordinator) Actors() int {
	return c.actors.Len()
}

// Claims returns the number of skillsets occupying a slot.
func (c *Coordinator) Claims() int64 {
	return c.claims.Size()
}

// Reserve claims the lowest available slot of cohort for requester,
// releasing any reservation requester already holds there.
func (c *Coordinator) Reserve(ctx context.Context, cohort int, requester string) (model.Slot, error) {
	if requester == "" {
		return model.Slot{}, fmt.Errorf("%w: requester is required", model.ErrInvalidArgument)
	}
	return c.dispatch(ctx, command{kind: cmdReserve, cohort: cohort, requester: requester})
}

// Release returns a slot reserved by requester to the pool.
func (c *Coordinator) Release(ctx context.Context, cohort int, slotID, requester string) (model.Slot, error) {
	if requester == "" || slotID == "" {
		return model.Slot{}, fmt.Errorf("%w: slot id and requester are required", model.ErrInvalidArgument)
	}
	return c.dispatch(ctx, command{kind: cmdRelease, cohort: cohort, slotID: slotID, requester: requester})
}

// ConfirmSubmission permanently occupies a slot reserved by requester.
func (c *Coordinator) ConfirmSubmission(ctx context.Context, cohort int, slotID, requester, skillsetID string) (model.Slot, error) {
	if skillsetID == "" {
		return model.Slot{}, fmt.Errorf("%w: skillset id is required", model.ErrInvalidArgument)
	}
	if requester == "" || slotID == "" {
		return model.Slot{}, fmt.Errorf("%w: slot id and requester are required", model.ErrInvalidArgument)
	}
	return c.dispatch(ctx, command{
		kind:       cmdSubmit,
		cohort:     cohort,
		slotID:     slotID,
		requester:  requester,
		skillsetID: skillsetID,
	})
}

// Query returns the current projection of cohort for requester. It reads a
// stored snapshot and never writes.
func (c *Coordinator) Query(ctx context.Context, cohort int, requester string) (model.View, error) {
	state, err := c.store.Read(ctx, cohort)
	if err != nil {
		return model.View{}, err
	}
	return state.View(requester, c.clock()), nil
}

// CreateCohort initializes a cohort with total slots, all available.
func (c *Coordinator) CreateCohort(ctx context.Context, cohort, total int) (model.View, error) {
	state, err := model.NewReservationState(cohort, total, c.clock())
	if err != nil {
		return model.View{}, err
	}
	if err := c.store.Create(ctx, state); err != nil {
		return model.View{}, err
	}
	c.known.Store(cohort, struct{}{})
	if cohorts, err := c.store.Cohorts(ctx); err == nil {
		metrics.UpdateCohortCount(len(cohorts))
	}
	c.logger.Info(ctx, "cohort created", logger.Int("cohort", cohort), logger.Int("totalGhostSlots", total))
	return state.View("", c.clock()), nil
}

// Cohorts returns a projection of every stored cohort in ascending order.
func (c *Coordinator) Cohorts(ctx context.Context) ([]model.View, error) {
	ids, err := c.store.Cohorts(ctx)
	if err != nil {
		return nil, err
	}
	now := c.clock()
	out := make([]model.View, 0, len(ids))
	for _, id := range ids {
		state, err := c.store.Read(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, state.View("", now))
	}
	return out, nil
}

// dispatch hands cmd to the cohort actor and waits for its reply or ctx.
func (c *Coordinator) dispatch(ctx context.Context, cmd command) (model.Slot, error) {
	if cmd.cohort <= 0 {
		return model.Slot{}, fmt.Errorf("%w: cohort must be positive", model.ErrInvalidArgument)
	}
	if err := c.ensureKnown(ctx, cmd.cohort); err != nil {
		return model.Slot{}, err
	}

	cmd.ctx = ctx
	cmd.reply = make(chan result, 1)
	label := strconv.Itoa(cmd.cohort)

	if err := c.actors.Submit(ctx, cmd.cohort, cmd); err != nil {
		switch {
		case errors.Is(err, worker.ErrFull):
			return model.Slot{}, fmt.Errorf("%w: cohort %d", model.ErrBusy, cmd.cohort)
		case errors.Is(err, worker.ErrStopped):
			return model.Slot{}, model.ErrStopped
		}
		return model.Slot{}, err
	}

	select {
	case r := <-cmd.reply:
		return r.slot, r.err
	case <-ctx.Done():
		metrics.RecordErrorByComponent("coordinator", "caller_gone")
		c.logger.Debug(ctx, "caller left before reply",
			logger.String("cohort", label),
			logger.String("command", string(cmd.kind)),
		)
		return model.Slot{}, ctx.Err()
	}
}

// ensureKnown keeps actors from being spawned for cohorts that do not exist.
func (c *Coordinator) ensureKnown(ctx context.Context, cohort int) error {
	if _, ok := c.known.Load(cohort); ok {
		return nil
	}
	if _, err := c.store.Read(ctx, cohort); err != nil {
		return err
	}
	c.known.Store(cohort, struct{}{})
	return nil
}

// newActor builds the handler owning cohort's writes.
func (c *Coordinator) newActor(cohort int) worker.Handler[command] {
	label := strconv.Itoa(cohort)
	seeded := !c.uniqueSkillsets

	return func(_ context.Context, cmd command) {
		if err := cmd.ctx.Err(); err != nil {
			cmd.reply <- result{err: err}
			return
		}
		start := time.Now()

		if !seeded {
			if state, err := c.store.Read(cmd.ctx, cohort); err == nil {
				c.claims.Seed(cmd.ctx, state.SubmittedSkillsets()...)
				seeded = true
			}
		}

		slot, err := c.handle(cmd, label)
		metrics.RecordCommandDuration(string(cmd.kind), float64(time.Since(start).Microseconds())/1000)
		record(cmd.kind, label, err)
		cmd.reply <- result{slot: slot, err: err}
	}
}

// handle applies cmd, retrying on conflicting writes with a fresh snapshot.
func (c *Coordinator) handle(cmd command, label string) (model.Slot, error) {
	ctx := cmd.ctx
	for attempt := 0; ; attempt++ {
		state, err := c.store.Read(ctx, cmd.cohort)
		if err != nil {
			return model.Slot{}, err
		}

		now := c.clock()
		var p plan
		switch cmd.kind {
		case cmdReserve:
			p, err = planReserve(state, cmd.requester, now, now+c.ttl)
		case cmdRelease:
			p, err = planRelease(state, cmd.slotID, cmd.requester, now)
		case cmdSubmit:
			p, err = planSubmit(state, cmd.slotID, cmd.requester, cmd.skillsetID, now)
		default:
			err = fmt.Errorf("%w: unknown command %q", model.ErrInvalidArgument, cmd.kind)
		}
		if err != nil {
			return model.Slot{}, err
		}

		claimed := cmd.kind == cmdSubmit && c.uniqueSkillsets
		if claimed && c.claims.SeenAndRecord(ctx, cmd.skillsetID) {
			return model.Slot{}, fmt.Errorf("%w: %s", model.ErrDuplicateSkillset, cmd.skillsetID)
		}

		next, err := c.store.ApplyTransition(ctx, cmd.cohort, state.Version, p.transitions...)
		if err == nil {
			for i := 0; i < p.reclaimed; i++ {
				metrics.RecordLazyReclaim(label)
			}
			available, reserved, submitted := next.Counts(now)
			metrics.UpdateSlotCounts(label, available, reserved, submitted)
			c.logger.Debug(ctx, "command applied",
				logger.String("cohort", label),
				logger.String("command", string(cmd.kind)),
				logger.String("slot", p.slotID),
				logger.Int64("version", next.Version),
			)
			return next.Slots[p.slotID], nil
		}

		if claimed {
			c.claims.Unrecord(ctx, cmd.skillsetID)
		}
		if !errors.Is(err, model.ErrConflict) || attempt >= c.maxRetries {
			if errors.Is(err, model.ErrConflict) {
				c.logger.Warn(ctx, "conflict retries exhausted",
					logger.String("cohort", label),
					logger.Int("attempts", attempt+1),
				)
			}
			return model.Slot{}, err
		}
		metrics.RecordConflictRetry(label)
	}
}

// record counts a command outcome.
func record(kind commandKind, cohort string, err error) {
	outcome := outcomeOf(err)
	switch kind {
	case cmdReserve:
		metrics.RecordReservation(cohort, outcome)
	case cmdRelease:
		metrics.RecordRelease(cohort, outcome)
	case cmdSubmit:
		metrics.RecordSubmission(cohort, outcome)
	}
	if err != nil {
		metrics.RecordErrorByComponent("coordinator", outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrPoolExhausted):
		return "exhausted"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, model.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, model.ErrExpired):
		return "expired"
	case errors.Is(err, model.ErrDuplicateSkillset):
		return "duplicate_skillset"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}
