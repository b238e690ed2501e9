package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ghostslot/internal/domain/model"
)

func newCohort(t *testing.T, cohort, total int) model.ReservationState {
	t.Helper()
	s, err := model.NewReservationState(cohort, total, 0)
	if err != nil {
		t.Fatalf("new cohort: %v", err)
	}
	return s
}

func reserve(id, holder string, expiresAt int64) model.Transition {
	return model.Transition{
		SlotID:   id,
		Expected: model.StatusAvailable,
		Next:     model.Slot{ID: id}.Reserved(holder, expiresAt),
	}
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, newStore func() Store) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := newStore()
		Reset(func() { _ = s.Close() })

		Convey("Reading an unknown cohort fails with not found", func() {
			_, err := s.Read(ctx, 7)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Applying to an unknown cohort fails with not found", func() {
			_, err := s.ApplyTransition(ctx, 7, 0, reserve("7.3.001", "A", 600))
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Creating a cohort makes it readable", func() {
			So(s.Create(ctx, newCohort(t, 2, 3)), ShouldBeNil)

			got, err := s.Read(ctx, 2)
			So(err, ShouldBeNil)
			So(got.Cohort, ShouldEqual, 2)
			So(got.TotalGhostSlots, ShouldEqual, 3)
			So(got.Version, ShouldEqual, 0)
			So(got.Slots, ShouldHaveLength, 3)
			So(got.Slots["2.3.001"].Status, ShouldEqual, model.StatusAvailable)

			Convey("Creating it again fails", func() {
				So(errors.Is(s.Create(ctx, newCohort(t, 2, 5)), model.ErrCohortExists), ShouldBeTrue)
			})

			Convey("A transition at the current version is persisted", func() {
				next, err := s.ApplyTransition(ctx, 2, 0, reserve("2.3.001", "A", 600))
				So(err, ShouldBeNil)
				So(next.Version, ShouldEqual, 1)

				got, err := s.Read(ctx, 2)
				So(err, ShouldBeNil)
				So(got.Version, ShouldEqual, 1)
				So(got.Slots["2.3.001"].Status, ShouldEqual, model.StatusReserved)
				So(got.Slots["2.3.001"].Holder, ShouldEqual, "A")
				So(got.Slots["2.3.001"].ExpiresAt, ShouldEqual, 600)
			})

			Convey("A stale version is rejected without changes", func() {
				_, err := s.ApplyTransition(ctx, 2, 0, reserve("2.3.001", "A", 600))
				So(err, ShouldBeNil)

				_, err = s.ApplyTransition(ctx, 2, 0, reserve("2.3.002", "B", 600))
				So(errors.Is(err, model.ErrConflict), ShouldBeTrue)

				got, _ := s.Read(ctx, 2)
				So(got.Version, ShouldEqual, 1)
				So(got.Slots["2.3.002"].Status, ShouldEqual, model.StatusAvailable)
			})

			Convey("A mismatched expected status is a conflict", func() {
				_, err := s.ApplyTransition(ctx, 2, 0, reserve("2.3.001", "A", 600))
				So(err, ShouldBeNil)

				_, err = s.ApplyTransition(ctx, 2, 1, reserve("2.3.001", "B", 600))
				So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
			})

			Convey("A failing batch leaves every slot untouched", func() {
				_, err := s.ApplyTransition(ctx, 2, 0,
					reserve("2.3.001", "A", 600),
					model.Transition{
						SlotID:   "2.3.002",
						Expected: model.StatusAvailable,
						Next:     model.Slot{ID: "2.3.002"}.Submitted("X"),
					},
				)
				So(errors.Is(err, model.ErrInvalidState), ShouldBeTrue)

				got, _ := s.Read(ctx, 2)
				So(got.Version, ShouldEqual, 0)
				So(got.Slots["2.3.001"].Status, ShouldEqual, model.StatusAvailable)
			})

			Convey("Mutating a returned snapshot does not leak into the store", func() {
				got, _ := s.Read(ctx, 2)
				got.Slots["2.3.001"] = model.Slot{ID: "2.3.001"}.Submitted("X")

				again, _ := s.Read(ctx, 2)
				So(again.Slots["2.3.001"].Status, ShouldEqual, model.StatusAvailable)
			})
		})

		Convey("Cohorts are listed in ascending order", func() {
			So(s.Create(ctx, newCohort(t, 9, 1)), ShouldBeNil)
			So(s.Create(ctx, newCohort(t, 2, 1)), ShouldBeNil)
			So(s.Create(ctx, newCohort(t, 5, 1)), ShouldBeNil)

			got, err := s.Cohorts(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []int{2, 5, 9})
		})

		Convey("An invalid state cannot be created", func() {
			bad := newCohort(t, 3, 2)
			delete(bad.Slots, "3.2.002")
			So(errors.Is(s.Create(ctx, bad), model.ErrInvalidState), ShouldBeTrue)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func() Store { return NewMemoryStore() })

	Convey("Given a closed memory store", t, func() {
		s := NewMemoryStore()
		So(s.Create(context.Background(), newCohort(t, 1, 1)), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("Every operation reports storage unavailability", func() {
			_, err := s.Read(context.Background(), 1)
			So(errors.Is(err, model.ErrStorageUnavailable), ShouldBeTrue)
			_, err = s.Cohorts(context.Background())
			So(errors.Is(err, model.ErrStorageUnavailable), ShouldBeTrue)
		})
	})

	Convey("A cancelled context is returned as is", t, func() {
		s := NewMemoryStore()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Read(ctx, 1)
		So(err, ShouldEqual, context.Canceled)
	})
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	storeContract(t, func() Store {
		mr.FlushAll()
		return NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), WithPrefix("test:"))
	})

	Convey("Given a redis store", t, func() {
		mr.FlushAll()
		s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), WithPrefix("gs"))
		Reset(func() { _ = s.Close() })
		ctx := context.Background()

		Convey("Records live under the configured prefix", func() {
			So(s.Create(ctx, newCohort(t, 4, 2)), ShouldBeNil)
			So(mr.Exists("gs:cohort:4"), ShouldBeTrue)
			So(s.Ping(ctx), ShouldBeNil)
		})

		Convey("A corrupt record surfaces as storage unavailability", func() {
			So(mr.Set("gs:cohort:4", "{not json"), ShouldBeNil)
			_, err := s.Read(ctx, 4)
			So(errors.Is(err, model.ErrStorageUnavailable), ShouldBeTrue)
			So(errors.Is(err, ErrCorruptRecord), ShouldBeTrue)
		})

		Convey("Unrelated keys are ignored when listing cohorts", func() {
			So(s.Create(ctx, newCohort(t, 4, 2)), ShouldBeNil)
			So(mr.Set("gs:cohort:oops", "x"), ShouldBeNil)
			So(mr.Set("other:cohort:8", "x"), ShouldBeNil)
			got, err := s.Cohorts(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []int{4})
		})
	})

	Convey("Given an unreachable server", t, func() {
		down := miniredis.RunT(t)
		s := NewRedisStore(redis.NewClient(&redis.Options{Addr: down.Addr(), MaxRetries: -1}))
		down.Close()
		Reset(func() { _ = s.Close() })

		Convey("Reads fail with storage unavailability", func() {
			_, err := s.Read(context.Background(), 1)
			So(errors.Is(err, model.ErrStorageUnavailable), ShouldBeTrue)
		})

		Convey("Writes fail with storage unavailability", func() {
			err := s.Create(context.Background(), newCohort(t, 1, 1))
			So(errors.Is(err, model.ErrStorageUnavailable), ShouldBeTrue)
		})
	})
}
