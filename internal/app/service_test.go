package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/okian/crewscore/internal/adapters/push"
	"github.com/okian/crewscore/internal/adapters/repository"
	service "github.com/okian/crewscore/internal/app"
	"github.com/okian/crewscore/internal/app/recalc"
	"github.com/okian/crewscore/internal/domain/model"
	"github.com/okian/crewscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// recordingSender captures pushes.
type recordingSender struct {
	mu   sync.Mutex
	sent []push.Notification
}

func (r *recordingSender) Send(_ context.Context, n push.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingSender) byMember() []push.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]push.Notification(nil), r.sent...)
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

// blockingStore parks every upsert until release is closed.
type blockingStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) UpsertScore(ctx context.Context, rec model.CrewScoreRecord) error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.MemoryStore.UpsertScore(ctx, rec)
}

func days(n int) time.Time {
	return now.Add(-time.Duration(n) * 24 * time.Hour)
}

// seedCohort writes group g1 where a outranks b outranks c, plus a pending member.
func seedCohort(s repository.Seeder) {
	ctx := context.Background()
	_ = s.PutGroup(ctx, model.Group{
		ID: "g1", Name: "Night Owls", TierTheme: "classic", CreatedAt: days(400),
		AnnouncePromotions: true, AnnouncementChannelID: "chan-g1",
	})
	_ = s.PutMembership(ctx, model.Membership{GroupID: "g1", MemberID: "a", DisplayName: "Ana", Status: model.StatusApproved, JoinedAt: days(300)})
	_ = s.PutMembership(ctx, model.Membership{GroupID: "g1", MemberID: "b", DisplayName: "Bo", Status: model.StatusApproved, JoinedAt: days(100)})
	_ = s.PutMembership(ctx, model.Membership{GroupID: "g1", MemberID: "c", Status: model.StatusApproved, JoinedAt: now})
	_ = s.PutMembership(ctx, model.Membership{GroupID: "g1", MemberID: "p", Status: model.StatusPending, JoinedAt: days(50)})
	_ = s.PutStats(ctx, model.MemberStats{
		GroupID: "g1", MemberID: "a", AttendanceRate: 1, EventsAttended: 10, CurrentStreak: 5, BestStreak: 8,
		SpiritPointsTotal: 100, MessagesSent: 50, ReactionsGiven: 40, GuestConverts: 3,
	})
	_ = s.PutStats(ctx, model.MemberStats{
		GroupID: "g1", MemberID: "b", AttendanceRate: 0.5, EventsAttended: 5, CurrentStreak: 2, BestStreak: 4,
		SpiritPointsTotal: 50, MessagesSent: 25, ReactionsGiven: 20, GuestConverts: 1,
	})
}

func newService(store repository.Store, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithLogger(logger.NewNop()),
		service.WithClock(func() time.Time { return now }),
		service.WithNotifyWorkers(2),
	}, opts...)
	return service.New(store, opts...)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(repository.NewMemoryStore())

		Convey("Then it reports sensible defaults", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["chunkSize"], ShouldEqual, 10)
			So(stats["dedupeSize"], ShouldEqual, 50_000)
			So(svc.MaxLeaderboardLimit(), ShouldEqual, 100)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(repository.NewMemoryStore(),
			service.WithChunkSize(4),
			service.WithQueueSize(50),
			service.WithDedupeSize(25),
			service.WithMaxLeaderboardLimit(20),
			service.WithChunkSize(-1),
		)

		Convey("Then valid options apply and invalid ones are ignored", func() {
			stats := svc.GetStats()
			So(stats["chunkSize"], ShouldEqual, 4)
			So(stats["queueSize"], ShouldEqual, 50)
			So(stats["dedupeSize"], ShouldEqual, 25)
			So(svc.MaxLeaderboardLimit(), ShouldEqual, 20)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		ctx := context.Background()
		svc := newService(repository.NewMemoryStore())

		Convey("Then engine operations are refused", func() {
			_, err := svc.Recalculate(ctx, "g1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.MemberScore(ctx, "g1", "a")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.RecalculateAll(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then stopping it is a no-op", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})

	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := newService(repository.NewMemoryStore(), service.WithSchedule("@every 1h"))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then it is marked as started and a second start is a no-op", func() {
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.GetStats()["pendingNotifications"], ShouldEqual, 0)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When stopping the service", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a started service with a recalculation in flight", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore()
		seedCohort(mem)
		store := &blockingStore{MemoryStore: mem, entered: make(chan struct{}), release: make(chan struct{})}
		sender := &recordingSender{}
		svc := newService(store, service.WithPushSender(sender))
		So(svc.Start(ctx), ShouldBeNil)

		type outcome struct {
			res recalc.Result
			err error
		}
		ran := make(chan outcome, 1)
		go func() {
			res, err := svc.Recalculate(ctx, "g1")
			ran <- outcome{res, err}
		}()
		<-store.entered

		stopped := make(chan error, 1)
		go func() { stopped <- svc.Stop(ctx) }()

		Convey("Then Stop returns only after the run has persisted and notified", func() {
			early := false
			select {
			case <-stopped:
				early = true
			case <-time.After(50 * time.Millisecond):
			}
			close(store.release)
			So(<-stopped, ShouldBeNil)
			So(early, ShouldBeFalse)

			out := <-ran
			So(out.err, ShouldBeNil)
			So(out.res.Upserted, ShouldEqual, 3)
			So(len(out.res.Promotions), ShouldEqual, 2)
			So(len(sender.byMember()), ShouldEqual, 2)
		})
	})

	Convey("Given a service with a malformed schedule", t, func() {
		svc := newService(repository.NewMemoryStore(), service.WithSchedule("every tuesday"))

		Convey("Then it refuses to start", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Scores(t *testing.T) {
	Convey("Given a started service over a seeded group", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seedCohort(store)
		svc := newService(store, service.WithMaxLeaderboardLimit(50))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a member is scored before any recalculation", func() {
			got, err := svc.MemberScore(ctx, "g1", "a")

			Convey("Then the fresh score is returned without a persisted record", func() {
				So(err, ShouldBeNil)
				So(got.Score, ShouldEqual, 970)
				So(got.Rank, ShouldEqual, 1)
				So(got.CohortSize, ShouldEqual, 3)
				So(got.Persisted, ShouldBeNil)
			})
		})

		Convey("When the group is recalculated", func() {
			res, err := svc.Recalculate(ctx, "g1")
			So(err, ShouldBeNil)
			So(res.Upserted, ShouldEqual, 3)

			Convey("Then the member score carries the persisted record", func() {
				got, err := svc.MemberScore(ctx, "g1", "b")
				So(err, ShouldBeNil)
				So(got.Persisted, ShouldNotBeNil)
				So(got.Persisted.Score, ShouldEqual, got.Score)
				So(got.Persisted.TierName, ShouldEqual, "Veteran")
			})

			Convey("Then the leaderboard is ordered by score", func() {
				lb, err := svc.Leaderboard(ctx, "g1", 10)
				So(err, ShouldBeNil)
				So(lb.GroupID, ShouldEqual, "g1")
				So(len(lb.Entries), ShouldEqual, 3)
				So(lb.Entries[0].MemberID, ShouldEqual, "a")
				So(lb.Entries[0].Rank, ShouldEqual, 1)
				So(lb.Entries[2].MemberID, ShouldEqual, "c")
				So(lb.Entries[2].Rank, ShouldEqual, 3)
			})

			Convey("Then the leaderboard honours the limit", func() {
				lb, err := svc.Leaderboard(ctx, "g1", 1)
				So(err, ShouldBeNil)
				So(len(lb.Entries), ShouldEqual, 1)
			})
		})

		Convey("Then leaderboard limits outside the accepted range are rejected", func() {
			_, err := svc.Leaderboard(ctx, "g1", 0)
			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
			_, err = svc.Leaderboard(ctx, "g1", 51)
			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("Then unknown groups and members are reported as not found", func() {
			_, err := svc.Leaderboard(ctx, "ghost", 10)
			So(errors.Is(err, recalc.ErrGroupNotFound), ShouldBeTrue)
			_, err = svc.MemberScore(ctx, "ghost", "a")
			So(errors.Is(err, recalc.ErrGroupNotFound), ShouldBeTrue)
			_, err = svc.MemberScore(ctx, "g1", "p")
			So(errors.Is(err, recalc.ErrMemberNotFound), ShouldBeTrue)
		})
	})
}
