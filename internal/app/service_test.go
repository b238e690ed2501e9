package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ghostslot/internal/adapters/repository"
	service "github.com/okian/ghostslot/internal/app"
	"github.com/okian/ghostslot/internal/domain/model"
	"github.com/okian/ghostslot/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["defaultPoolSize"], ShouldEqual, 10)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithStore(repository.NewMemoryStore()),
			service.WithDefaultPoolSize(4),
			service.WithCohorts(map[int]int{1: 3}),
			service.WithStopTimeout(time.Second),
			service.WithCoordinatorOptions(
				service.WithTTL(time.Minute),
				service.WithMaxConflictRetries(5),
				service.WithMailboxSize(16),
			),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["store"], ShouldEqual, "memory")
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service configured with cohorts", t, func() {
		svc := service.New(
			service.WithDefaultPoolSize(4),
			service.WithCohorts(map[int]int{1: 3, 2: 0}),
			service.WithCoordinatorOptions(service.WithTTL(time.Minute), service.WithMailboxSize(16)),
		)
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And the configured cohorts should exist", func() {
				cohorts, err := svc.Cohorts(ctx)
				So(err, ShouldBeNil)
				So(cohorts, ShouldHaveLength, 2)
				So(cohorts[0].Cohort, ShouldEqual, 1)
				So(cohorts[0].TotalGhostSlots, ShouldEqual, 3)
				So(cohorts[1].TotalGhostSlots, ShouldEqual, 4)
			})

			Convey("And stats should report the running configuration", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["cohorts"], ShouldEqual, 2)
				So(stats["reservationTtlSeconds"], ShouldEqual, int64(60))
				So(stats["mailboxSize"], ShouldEqual, 16)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a store that already holds a configured cohort", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		state, err := model.NewReservationState(1, 5, 0)
		So(err, ShouldBeNil)
		So(store.Create(ctx, state), ShouldBeNil)

		svc := service.New(service.WithStore(store), service.WithCohorts(map[int]int{1: 3}))
		defer svc.Stop()

		Convey("Then start keeps the stored cohort as is", func() {
			So(svc.Start(ctx), ShouldBeNil)
			view, err := svc.Query(ctx, 1, "")
			So(err, ShouldBeNil)
			So(view.TotalGhostSlots, ShouldEqual, 5)
		})
	})

	Convey("Given a store that is unavailable", t, func() {
		store := repository.NewMemoryStore()
		So(store.Close(), ShouldBeNil)
		svc := service.New(service.WithStore(store))

		Convey("Then start fails", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, model.ErrStorageUnavailable), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithCohorts(map[int]int{1: 2}))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})

			Convey("Then operations are refused", func() {
				_, err := svc.Reserve(ctx, 1, "A")
				So(errors.Is(err, model.ErrStopped), ShouldBeTrue)
				_, err = svc.Query(ctx, 1, "")
				So(errors.Is(err, model.ErrStopped), ShouldBeTrue)
			})

			Convey("Then stopping again is harmless", func() {
				svc.Stop()
			})
		})
	})
}

func TestService_CreateCohort(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithDefaultPoolSize(7))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When creating a cohort without a size", func() {
			view, err := svc.CreateCohort(ctx, 3, 0)

			Convey("Then the default pool size is used", func() {
				So(err, ShouldBeNil)
				So(view.TotalGhostSlots, ShouldEqual, 7)
				So(view.Slots, ShouldHaveLength, 7)
				So(view.Slots[0].ID, ShouldEqual, "3.7.001")
				So(view.Available, ShouldEqual, 7)
				So(view.UserSlot, ShouldBeNil)
			})

			Convey("Then creating it again fails", func() {
				_, err := svc.CreateCohort(ctx, 3, 2)
				So(errors.Is(err, model.ErrCohortExists), ShouldBeTrue)
			})
		})

		Convey("When creating a cohort with a negative size", func() {
			_, err := svc.CreateCohort(ctx, 4, -2)

			Convey("Then it is rejected instead of falling back to the default", func() {
				So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
				cohorts, err := svc.Cohorts(ctx)
				So(err, ShouldBeNil)
				So(cohorts, ShouldBeEmpty)
			})
		})

		Convey("When creating a cohort with an invalid number", func() {
			_, err := svc.CreateCohort(ctx, 0, 3)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
				So(stats, ShouldNotContainKey, "actors")
			})
		})
	})
}
