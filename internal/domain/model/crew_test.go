package model_test

import (
	"testing"
	"time"

	"github.com/okian/crewscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMembership_TenureAndFounding(t *testing.T) {
	Convey("Given a group created on the first of January", t, func() {
		created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		window := 30 * 24 * time.Hour

		Convey("When a member joins on day ten", func() {
			m := model.Membership{MemberID: "m1", Status: model.StatusApproved, JoinedAt: created.AddDate(0, 0, 10)}

			Convey("Then they are a founding member", func() {
				So(m.Founding(created, window), ShouldBeTrue)
			})

			Convey("And tenure counts whole days", func() {
				now := m.JoinedAt.Add(5*24*time.Hour + 3*time.Hour)
				So(m.TenureDays(now), ShouldEqual, 5)
			})
		})

		Convey("When a member joins exactly on the window edge", func() {
			m := model.Membership{JoinedAt: created.Add(window)}
			So(m.Founding(created, window), ShouldBeTrue)
		})

		Convey("When a member joins after the window", func() {
			m := model.Membership{JoinedAt: created.Add(window + time.Second)}
			So(m.Founding(created, window), ShouldBeFalse)
		})

		Convey("When the join time is unknown", func() {
			m := model.Membership{}
			So(m.Founding(created, window), ShouldBeFalse)
			So(m.TenureDays(created), ShouldEqual, 0)
		})

		Convey("When now precedes the join time", func() {
			m := model.Membership{JoinedAt: created}
			So(m.TenureDays(created.Add(-time.Hour)), ShouldEqual, 0)
		})
	})
}

func TestNewActivityRecord(t *testing.T) {
	Convey("Given a member without a stats row", t, func() {
		rec := model.NewActivityRecord("m1", nil, 12, true)

		Convey("Then all counters default to zero", func() {
			So(rec.MemberID, ShouldEqual, "m1")
			So(rec.AttendanceRate, ShouldEqual, 0.0)
			So(rec.EventsAttended, ShouldEqual, 0.0)
			So(rec.GuestConverts, ShouldEqual, 0.0)
			So(rec.TenureDays, ShouldEqual, 12.0)
			So(rec.FoundingMember, ShouldBeTrue)
		})
	})

	Convey("Given a member with stats", t, func() {
		stats := &model.MemberStats{AttendanceRate: 0.75, EventsAttended: 4, BestStreak: 3, MessagesSent: 10}
		rec := model.NewActivityRecord("m2", stats, 0, false)

		Convey("Then counters are copied as floats", func() {
			So(rec.AttendanceRate, ShouldEqual, 0.75)
			So(rec.EventsAttended, ShouldEqual, 4.0)
			So(rec.BestStreak, ShouldEqual, 3.0)
			So(rec.MessagesSent, ShouldEqual, 10.0)
		})
	})
}
