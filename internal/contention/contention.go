// Package contention fires concurrent reservations at one cohort and checks
// that no ghost slot was handed out twice.
package contention

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/ghostslot/internal/client"
	"github.com/okian/ghostslot/internal/domain/model"
	"github.com/okian/ghostslot/internal/domain/types"
	"github.com/okian/ghostslot/pkg/logger"
)

// ErrViolation reports a broken reservation guarantee.
var ErrViolation = errors.New("reservation guarantee violated")

// Defaults for Config.
const (
	DefaultRequesters  = 50
	DefaultConcurrency = 16
)

// Config controls one contention run.
type Config struct {
	Cohort      int
	Requesters  int
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.Requesters <= 0 {
		c.Requesters = DefaultRequesters
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Grant is one successful reservation.
type Grant struct {
	Requester string `json:"requester" yaml:"requester"`
	SlotID    string `json:"slotId" yaml:"slotId"`
	ExpiresAt int64  `json:"expiresAt" yaml:"expiresAt"`
}

// Report is the outcome of a run.
type Report struct {
	Cohort          int           `json:"cohort" yaml:"cohort"`
	Requesters      int           `json:"requesters" yaml:"requesters"`
	AvailableBefore int           `json:"availableBefore" yaml:"availableBefore"`
	Granted         []Grant       `json:"granted" yaml:"granted"`
	Exhausted       int           `json:"exhausted" yaml:"exhausted"`
	Failures        []string      `json:"failures,omitempty" yaml:"failures,omitempty"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
	Violations      []string      `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// Err returns ErrViolation wrapped with every violation found, or nil.
func (r Report) Err() error {
	if len(r.Violations) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrViolation, r.Violations)
}

// Run reserves from cfg.Requesters distinct requesters at once and verifies
// the outcome against the cohort state read before and after.
func Run(ctx context.Context, c *client.Client, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("contention")

	before, err := c.Query(ctx, cfg.Cohort)
	if err != nil {
		return Report{}, fmt.Errorf("query cohort %d: %w", cfg.Cohort, err)
	}
	report := Report{Cohort: cfg.Cohort, Requesters: cfg.Requesters, AvailableBefore: before.Available}

	log.Info(ctx, "starting contention run",
		logger.Int("cohort", cfg.Cohort),
		logger.Int("requesters", cfg.Requesters),
		logger.Int("concurrency", cfg.Concurrency),
		logger.Int("available", before.Available))

	var mu sync.Mutex
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i := 0; i < cfg.Requesters; i++ {
		requester := "contender-" + uuid.NewString()
		g.Go(func() error {
			slot, err := c.As(requester).Reserve(gctx, cfg.Cohort)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Granted = append(report.Granted, Grant{Requester: requester, SlotID: slot.ID, ExpiresAt: slot.ExpiresAt})
			case errors.Is(err, model.ErrPoolExhausted):
				report.Exhausted++
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				report.Failures = append(report.Failures, err.Error())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("contention run: %w", err)
	}
	report.Duration = time.Since(start)
	sort.Slice(report.Granted, func(i, j int) bool { return report.Granted[i].SlotID < report.Granted[j].SlotID })

	after, err := c.Query(ctx, cfg.Cohort)
	if err != nil {
		return report, fmt.Errorf("query cohort %d: %w", cfg.Cohort, err)
	}
	report.Violations = verify(report, after)

	log.Info(ctx, "contention run finished",
		logger.Int("granted", len(report.Granted)),
		logger.Int("exhausted", report.Exhausted),
		logger.Int("failed", len(report.Failures)),
		logger.Int("violations", len(report.Violations)),
		logger.String("duration", report.Duration.String()))
	return report, nil
}

func verify(r Report, after types.ReservationState) []string {
	var out []string
	holders := make(map[string]string, len(r.Granted))
	for _, g := range r.Granted {
		if prev, dup := holders[g.SlotID]; dup {
			out = append(out, fmt.Sprintf("slot %s granted to %s and %s", g.SlotID, prev, g.Requester))
			continue
		}
		holders[g.SlotID] = g.Requester
	}
	if len(r.Granted) > r.AvailableBefore {
		out = append(out, fmt.Sprintf("%d grants exceed %d available slots", len(r.Granted), r.AvailableBefore))
	}
	for _, f := range r.Failures {
		out = append(out, "unexpected failure: "+f)
	}

	status := make(map[string]model.Status, len(after.Slots))
	for _, s := range after.Slots {
		status[s.ID] = s.Status
	}
	for slotID := range holders {
		if status[slotID] != model.StatusReserved {
			out = append(out, fmt.Sprintf("granted slot %s is %q after the run", slotID, status[slotID]))
		}
	}
	return out
}
