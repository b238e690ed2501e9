package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/ghostslot/internal/domain/model"
	types "github.com/okian/ghostslot/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromView(t *testing.T) {
	Convey("Given a view with a reserved slot", t, func() {
		state, err := model.NewReservationState(2, 2, 0)
		So(err, ShouldBeNil)
		state.Slots["2.2.001"] = state.Slots["2.2.001"].Reserved("alice", 600)
		view := state.View("alice", 10)

		Convey("When converting it to the wire shape", func() {
			out := types.FromView(view)
			raw, err := json.Marshal(out)
			So(err, ShouldBeNil)

			Convey("Then the holder should never be exposed", func() {
				So(string(raw), ShouldNotContainSubstring, "alice")
				So(string(raw), ShouldNotContainSubstring, "holder")
			})

			Convey("And the caller's slot and counts should be kept", func() {
				So(*out.UserSlot, ShouldEqual, "2.2.001")
				So(out.Slots[0].ExpiresAt, ShouldEqual, 600)
				So(out.Available, ShouldEqual, 1)
				So(out.Reserved, ShouldEqual, 1)
			})
		})

		Convey("When nobody holds a slot", func() {
			raw, err := json.Marshal(types.FromView(state.View("bob", 10)))
			So(err, ShouldBeNil)

			Convey("Then userSlot should be rendered as null", func() {
				So(string(raw), ShouldContainSubstring, `"userSlot":null`)
			})
		})

		Convey("When summarizing", func() {
			s := types.Summarize(view)
			So(s, ShouldResemble, types.CohortSummary{Cohort: 2, TotalGhostSlots: 2, Available: 1, Reserved: 1})
		})
	})
}
