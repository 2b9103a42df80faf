package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/crewscore/internal/adapters/push"
	"github.com/okian/crewscore/internal/adapters/repository"
	"github.com/okian/crewscore/internal/config"
	"github.com/okian/crewscore/internal/domain/model"
	"github.com/okian/crewscore/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestServerWiring(t *testing.T) {
	convey.Convey("Given a service built from the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.Addr = ":0"
		log := logger.NewNop()

		store := repository.NewMemoryStore()
		_ = store.PutGroup(ctx, model.Group{ID: "g1"})
		_ = store.PutMembership(ctx, model.Membership{GroupID: "g1", MemberID: "a", Status: model.StatusApproved})

		svc, err := newService(cfg, store, push.NewLogSender(log), log)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := newHTTPServer(cfg, svc)

		convey.Convey("Then the HTTP server uses the configured address and timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})

		convey.Convey("Then the API routes are mounted", func() {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/groups/g1/recalculate", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

			rec = httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/g1/leaderboard?limit=5", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"member_id":"a"`)
		})
	})

	convey.Convey("Given invalid tier thresholds", t, func() {
		cfg := config.New()
		cfg.TierThresholds = []int{0, 1}

		convey.Convey("Then the service cannot be built", func() {
			_, err := newService(cfg, repository.NewMemoryStore(), push.NewLogSender(logger.NewNop()), logger.NewNop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Updating system metrics does not panic", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
