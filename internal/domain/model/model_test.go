package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/salesboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestGoalActive(t *testing.T) {
	convey.Convey("Given a goal for July", t, func() {
		start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC)
		g := model.Goal{Label: "Target (Sohaila)", Target: 1000, Start: start, End: end}

		convey.Convey("Then both window ends are inclusive", func() {
			convey.So(g.Active(start), convey.ShouldBeTrue)
			convey.So(g.Active(end), convey.ShouldBeTrue)
			convey.So(g.Active(start.Add(10*24*time.Hour)), convey.ShouldBeTrue)
		})

		convey.Convey("Then instants outside the window are inactive", func() {
			convey.So(g.Active(start.Add(-time.Nanosecond)), convey.ShouldBeFalse)
			convey.So(g.Active(end.Add(time.Nanosecond)), convey.ShouldBeFalse)
		})
	})
}

func TestSnapshotLeader(t *testing.T) {
	convey.Convey("Given snapshots", t, func() {
		convey.Convey("When the snapshot is empty", func() {
			_, ok := model.Snapshot{}.Leader()

			convey.Convey("Then there is no leader", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the snapshot has entries", func() {
			leader, ok := model.Snapshot{{Name: "J", Sales: 500}, {Name: "K", Sales: 300}}.Leader()

			convey.Convey("Then index 0 leads", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(leader.Name, convey.ShouldEqual, "J")
			})
		})
	})
}

func TestWireShapes(t *testing.T) {
	convey.Convey("Given backend payloads", t, func() {
		convey.Convey("When decoding a goal record", func() {
			var g model.GoalRecord
			err := json.Unmarshal([]byte(`{"Goal Name":"Target (Sohaila)","Start":"2025-07-01","End":"2025-07-31","Target":"1000"}`), &g)

			convey.Convey("Then the spaced key maps to Name", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(g.Name, convey.ShouldEqual, "Target (Sohaila)")
				convey.So(g.Target, convey.ShouldEqual, "1000")
			})
		})

		convey.Convey("When encoding a signal", func() {
			b, err := json.Marshal(model.Signal{Name: "B", Kind: model.SignalRankUp, Rank: 0, PrevRank: 1})

			convey.Convey("Then the kind is rendered by name", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldContainSubstring, `"kind":"rank_up"`)
			})
		})

		convey.Convey("Then signal kinds have stable names", func() {
			convey.So(model.SignalNone.String(), convey.ShouldEqual, "none")
			convey.So(model.SignalSalesIncrease.String(), convey.ShouldEqual, "sales_increase")
		})
	})
}
