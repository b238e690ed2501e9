package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/ghostslot/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it should start empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When claiming a new skillset", func() {
			seen := d.SeenAndRecord(ctx, "skillset-1")

			Convey("Then it should return false and record it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And claiming it again should report a duplicate", func() {
				So(d.SeenAndRecord(ctx, "skillset-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And unrecording it should make it claimable again", func() {
				d.Unrecord(ctx, "skillset-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "skillset-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then the size should not change", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When seeding ids loaded from storage", func() {
			d.Seed(ctx, "a", "b", "a")

			Convey("Then each id should be claimed once", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			})
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines claiming the same skillsets", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int64
		var wg sync.WaitGroup

		for g := 0; g < 20; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("skillset-%d", i)) {
						fresh.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each skillset should be won exactly once", func() {
			So(fresh.Load(), ShouldEqual, 50)
			So(d.Size(), ShouldEqual, 50)
		})
	})
}
