package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/ghostslot/internal/domain/model"
)

const redisBackend = "redis"

// RedisStore keeps one JSON record per cohort under <prefix>:cohort:<n>.
// ApplyTransition runs inside WATCH/MULTI so a concurrent writer makes the
// transaction fail with model.ErrConflict instead of overwriting.
type RedisStore struct {
	rdb       *redis.Client
	prefix    string
	scanCount int64
}

// NewRedisStore wraps an existing client. The store owns the client and
// closes it on Close.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:       rdb,
		prefix:    "ghostslot",
		scanCount: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) cohortKey(cohort int) string {
	return s.prefix + ":cohort:" + strconv.Itoa(cohort)
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, state model.ReservationState) (err error) {
	defer func(start time.Time) { observe(redisBackend, "create", start, err) }(time.Now())
	if err = state.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cohort %d: %w", state.Cohort, err)
	}
	ok, err := s.rdb.SetNX(ctx, s.cohortKey(state.Cohort), data, 0).Result()
	if err != nil {
		return classify(err)
	}
	if !ok {
		return fmt.Errorf("%w: cohort %d", model.ErrCohortExists, state.Cohort)
	}
	return nil
}

// Read implements Store.
func (s *RedisStore) Read(ctx context.Context, cohort int) (state model.ReservationState, err error) {
	defer func(start time.Time) { observe(redisBackend, "read", start, err) }(time.Now())
	return s.load(ctx, s.rdb, cohort)
}

// ApplyTransition implements Store.
func (s *RedisStore) ApplyTransition(ctx context.Context, cohort int, expectedVersion int64, ts ...model.Transition) (state model.ReservationState, err error) {
	defer func(start time.Time) { observe(redisBackend, "apply", start, err) }(time.Now())

	key := s.cohortKey(cohort)
	var out model.ReservationState
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, cohort)
		if err != nil {
			return err
		}
		next, err := cur.Apply(expectedVersion, ts...)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode cohort %d: %w", cohort, err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		out = next
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return model.ReservationState{}, fmt.Errorf("%w: cohort %d changed during write", model.ErrConflict, cohort)
	}
	if err != nil {
		return model.ReservationState{}, classify(err)
	}
	return out, nil
}

// Cohorts implements Store.
func (s *RedisStore) Cohorts(ctx context.Context) ([]int, error) {
	prefix := s.prefix + ":cohort:"
	var out []int
	iter := s.rdb.Scan(ctx, 0, prefix+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		n, err := strconv.Atoi(strings.TrimPrefix(iter.Val(), prefix))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	if err := iter.Err(); err != nil {
		return nil, classify(err)
	}
	sort.Ints(out)
	return out, nil
}

// Ping checks that the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, c redis.Cmdable, cohort int) (model.ReservationState, error) {
	raw, err := c.Get(ctx, s.cohortKey(cohort)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ReservationState{}, fmt.Errorf("%w: cohort %d", model.ErrNotFound, cohort)
	}
	if err != nil {
		return model.ReservationState{}, classify(err)
	}
	var state model.ReservationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.ReservationState{}, fmt.Errorf("%w: %w: cohort %d: %w",
			model.ErrStorageUnavailable, ErrCorruptRecord, cohort, err)
	}
	if err := state.Validate(); err != nil {
		return model.ReservationState{}, fmt.Errorf("%w: %w: %w",
			model.ErrStorageUnavailable, ErrCorruptRecord, err)
	}
	return state, nil
}

// classify keeps domain and context errors and reports everything else as
// storage unavailability.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrInvalidArgument),
		errors.Is(err, model.ErrStorageUnavailable):
		return err
	case errors.Is(err, redis.ErrClosed):
		return ErrClosed
	}
	return fmt.Errorf("%w: %w", model.ErrStorageUnavailable, err)
}
