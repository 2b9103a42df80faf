package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.recalcRuns.WithLabelValues(OutcomeOK).Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(families[0].GetName(), ShouldStartWith, "test_unit_")
			})
		})
	})
}

func TestGlobalManagerNaming(t *testing.T) {
	Convey("Given the process-wide metrics manager", t, func() {
		RecordRecalculation(OutcomeOK, 3, 4)

		Convey("Then every family carries the engine prefix", func() {
			families, err := customRegistry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(f.GetName(), ShouldStartWith, Namespace+"_"+Subsystem+"_")
			}
		})

		Convey("Then latency histograms use the configured buckets", func() {
			So(globalManager.histogramBuckets, ShouldResemble, LatencyBuckets)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording a recalculation", func() {
			before := testutil.ToFloat64(globalManager.recalcRuns.WithLabelValues(OutcomePartial))
			RecordRecalculation(OutcomePartial, 12, 25)

			Convey("Then the outcome counter increases", func() {
				after := testutil.ToFloat64(globalManager.recalcRuns.WithLabelValues(OutcomePartial))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording upserts and promotions", func() {
			beforeOK := testutil.ToFloat64(globalManager.upserts.WithLabelValues(StatusSent))
			beforeFail := testutil.ToFloat64(globalManager.upserts.WithLabelValues(StatusFailed))
			beforePromo := testutil.ToFloat64(globalManager.promotions)
			RecordUpsert(true)
			RecordUpsert(false)
			RecordPromotions(3)

			Convey("Then each counter moves by the recorded amount", func() {
				So(testutil.ToFloat64(globalManager.upserts.WithLabelValues(StatusSent))-beforeOK, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.upserts.WithLabelValues(StatusFailed))-beforeFail, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.promotions)-beforePromo, ShouldEqual, 3)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordSingleScore(OutcomeOK)
				RecordSchedulerRun(OutcomeError)
				RecordStoreLatency("load_stats", 3)
				RecordNotification(ChannelPush, StatusSent)
				RecordNotifyLatency(4)
				UpdateNotifyQueueSize(2)
				UpdateNotifyQueueCapacity(10)
				UpdateNotifyWorkers(4)
				RecordHTTPRequest("recalculate", "POST", "200")
				RecordHTTPRequestDuration("recalculate", "POST", "200", 5)
				RecordErrorByComponent("recalc", "upsert")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
