package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/crewscore/internal/adapters/repository"
	service "github.com/okian/crewscore/internal/app"
	"github.com/okian/crewscore/internal/app/recalc"
	"github.com/okian/crewscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openSQLite(t *testing.T) *repository.SQLStore {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "crew.db") + "?_pragma=busy_timeout(5000)"
	s, err := repository.Open(ctx, repository.DriverSQLite, dsn, repository.WithPingAttempts(1))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over a sqlite store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store := openSQLite(t)
		seedCohort(store)
		sender := &recordingSender{}
		svc := newService(store, service.WithPushSender(sender), service.WithChunkSize(2))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the group is recalculated end-to-end", func() {
			res, err := svc.Recalculate(ctx, "g1")
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then every approved member is persisted", func() {
				So(res.Members, ShouldEqual, 3)
				So(res.Upserted, ShouldEqual, 3)
				a, err := store.Score(ctx, "g1", "a")
				So(err, ShouldBeNil)
				So(a.Score, ShouldEqual, 970)
				So(a.TierName, ShouldEqual, "Icon")
				So(a.LastCalculatedAt.Equal(now), ShouldBeTrue)
			})

			Convey("Then each promotion is pushed once", func() {
				sent := sender.byMember()
				So(len(sent), ShouldEqual, 2)
				So(sent[0].MemberID, ShouldEqual, "a")
				So(sent[0].Title, ShouldEqual, "Tier up!")
				So(sent[0].Body, ShouldEqual, "Ana reached Icon")
				So(sent[0].Link, ShouldEqual, "/groups/g1/crew-score")
				So(sent[0].Category, ShouldEqual, "crew_promotion")
				So(sent[1].Body, ShouldEqual, "Bo reached Veteran")
			})

			Convey("Then promotions are announced in the group channel", func() {
				msgs, err := store.Messages(ctx, "chan-g1")
				So(err, ShouldBeNil)
				So(len(msgs), ShouldEqual, 2)
				for _, m := range msgs {
					So(m.ContentType, ShouldEqual, model.ContentTypeSystem)
				}
			})
		})

		Convey("When the group is recalculated twice", func() {
			_, err := svc.Recalculate(ctx, "g1")
			So(err, ShouldBeNil)
			res, err := svc.Recalculate(ctx, "g1")
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the second run promotes nobody", func() {
				So(res.Promotions, ShouldBeEmpty)
				So(len(sender.byMember()), ShouldEqual, 2)
			})
		})

		Convey("When every group is swept", func() {
			So(store.PutGroup(ctx, model.Group{ID: "g2", CreatedAt: days(10)}), ShouldBeNil)
			results, err := svc.RecalculateAll(ctx)
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then one result is returned per group", func() {
				So(len(results), ShouldEqual, 2)
				lb, err := svc.Leaderboard(ctx, "g1", 3)
				So(err, ShouldBeNil)
				So(len(lb.Entries), ShouldEqual, 3)
			})
		})

		Convey("When a member outside the cohort is scored", func() {
			_, err := svc.MemberScore(ctx, "g1", "p")
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it is reported as not found", func() {
				So(errors.Is(err, recalc.ErrMemberNotFound), ShouldBeTrue)
			})
		})
	})
}
