package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created and enabled", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.riskSpikes.Inc()

			Convey("Then metric names carry namespace, subsystem and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_x_risk_spikes_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
			})
		})
	})
}

func TestPackageRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline events", func() {
			before := testutil.ToFloat64(globalManager.riskSpikes)
			RecordRiskSpike()
			RecordHarvestRequest("languages", "ok")
			RecordHarvestSkipped("not_found")
			RecordHarvestDuration(12)
			AddHarvestInFlight(1)
			AddHarvestInFlight(-1)
			RecordManifestBytes(128)
			RecordFrameworkDetected("react")
			RecordDuplicateEvent()
			RecordForecast(0.2, 55, "MEDIUM")
			RecordModelFallback("risk", "artifact_missing")
			RecordCounterfactualAction("behavior")
			RecordPlanGenerated("GROWTH")
			RecordTaskVerification("completed")
			RecordBenchmark("burnout")
			RecordGovernanceEntry("CRITICAL")
			RecordRetention(3, nil)
			RecordRetention(0, errors.New("boom"))
			RecordStoreOp("append_risk_snapshot", 1.5, nil)
			UpdateQueueCapacity(10)
			UpdateQueueSize(5, 10)
			RecordQueueRejected("full")
			UpdateWorkerActiveCount(2)
			RecordJob(3, errors.New("job failed"))
			RecordHTTPRequest("/healthz", "200")
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(7)

			Convey("Then counters move and the registry gathers cleanly", func() {
				So(testutil.ToFloat64(globalManager.riskSpikes), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.5)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "careerpulse_pipeline_harvest_requests_total")
			})
		})

		Convey("When the manager is disabled", func() {
			prev := globalManager
			globalManager = NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
			defer func() { globalManager = prev }()

			RecordRiskSpike()

			Convey("Then recorders are no-ops", func() {
				So(testutil.ToFloat64(globalManager.riskSpikes), ShouldEqual, 0)
			})
		})
	})
}

func TestRefreshInterval(t *testing.T) {
	Convey("Given the global refresh interval", t, func() {
		prev := RefreshInterval()
		defer SetRefreshInterval(prev)

		Convey("When a positive interval is set", func() {
			SetRefreshInterval(2 * time.Second)
			So(RefreshInterval(), ShouldEqual, 2*time.Second)

			Convey("Then non-positive intervals leave it unchanged", func() {
				SetRefreshInterval(0)
				SetRefreshInterval(-time.Second)
				So(RefreshInterval(), ShouldEqual, 2*time.Second)
			})
		})
	})
}
