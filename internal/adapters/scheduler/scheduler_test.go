package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/crewscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler", t, func() {
		ctx := context.Background()
		var runs atomic.Int32

		Convey("When the cron expression is invalid", func() {
			_, err := New(ctx, "every tuesday", func(context.Context) error { return nil })
			So(err, ShouldNotBeNil)
		})

		Convey("When triggered by hand", func() {
			s, err := New(ctx, "@every 1h", func(rctx context.Context) error {
				runs.Add(1)
				if _, ok := rctx.Deadline(); !ok {
					return errors.New("run without deadline")
				}
				return nil
			}, WithRunTimeout(time.Minute), WithLogger(logger.NewNop()))
			So(err, ShouldBeNil)

			So(s.Trigger(ctx), ShouldBeNil)
			So(runs.Load(), ShouldEqual, int32(1))
		})

		Convey("When the run fails", func() {
			boom := errors.New("boom")
			s, err := New(ctx, "@every 1h", func(context.Context) error { return boom })
			So(err, ShouldBeNil)
			So(errors.Is(s.Trigger(ctx), boom), ShouldBeTrue)
		})

		Convey("When started with a one second schedule", func() {
			s, err := New(ctx, "@every 1s", func(context.Context) error {
				runs.Add(1)
				return nil
			})
			So(err, ShouldBeNil)
			s.Start()

			deadline := time.Now().Add(3 * time.Second)
			for runs.Load() == 0 && time.Now().Before(deadline) {
				time.Sleep(50 * time.Millisecond)
			}
			stopCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			Convey("Then it fires and stops cleanly", func() {
				So(runs.Load(), ShouldBeGreaterThan, int32(0))
				So(s.Stop(stopCtx), ShouldBeNil)
			})
		})
	})
}

func TestKVFields(t *testing.T) {
	Convey("Cron key/value pairs become fields", t, func() {
		f := kvFields([]interface{}{"entry", 3, "dangling"})
		So(len(f), ShouldEqual, 1)
		So(f[0].Key, ShouldEqual, "entry")
	})
}
