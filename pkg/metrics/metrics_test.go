package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// value reads a counter or gauge from the global registry. Missing series
// read as zero.
func value(name string, labels map[string]string) float64 {
	families, err := customRegistry.Gather()
	if err != nil {
		return 0
	}
	for _, f := range families {
		if f.GetName() != "drivescore_pipeline_"+name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.refreshInterval, ShouldEqual, time.Second)
			})

			Convey("Then metrics are registered with constant labels", func() {
				manager.tripsCreated.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() != "test_unit_trips_created_total" {
						continue
					}
					found = true
					labels := f.GetMetric()[0].GetLabel()
					So(labels, ShouldHaveLength, 1)
					So(labels[0].GetName(), ShouldEqual, "env")
					So(labels[0].GetValue(), ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When ignoring empty option values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "drivescore")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ingest metrics", func() {
			before := value("samples_ingested_total", nil)
			dupBefore := value("samples_duplicate_total", nil)
			RecordSamplesIngested(5, 2)
			RecordIngestRequest("ok")
			RecordTripCreated()

			Convey("Then counters increase", func() {
				So(value("samples_ingested_total", nil)-before, ShouldEqual, 5)
				So(value("samples_duplicate_total", nil)-dupBefore, ShouldEqual, 2)
			})
		})

		Convey("When recording finalize metrics", func() {
			before := value("trips_finalized_total", map[string]string{"outcome": OutcomeScored})
			RecordTripFinalized(OutcomeScored, 12)
			RecordFinalizeRun("ok", 40)
			RecordEventDetected("harsh_brake")
			RecordTripScore("high", 870)
			RecordDriverScore(790)
			UpdateTripsByStatus("open", 3)

			Convey("Then labelled series are updated", func() {
				So(value("trips_finalized_total", map[string]string{"outcome": OutcomeScored})-before, ShouldEqual, 1)
				So(value("trips", map[string]string{"status": "open"}), ShouldEqual, 3)
			})
		})

		Convey("When recording provider and repository metrics", func() {
			before := value("provider_errors_total", map[string]string{"provider": "weather"})
			RecordProviderCall("weather", 25, true)
			RecordProviderCall("weather", 5, false)
			RecordRepositoryLatency("insert_samples", 3)

			Convey("Then only failures count as errors", func() {
				So(value("provider_errors_total", map[string]string{"provider": "weather"})-before, ShouldEqual, 1)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("/ingest", "POST", "200")
				RecordHTTPRequestDuration("/ingest", "POST", "200", 4.2)
				RecordErrorByComponent("http", "client_error")
				RecordErrorByType("client_error", "warning")
				RecordErrorByEndpoint("/ingest", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1.5)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestRuntimeCollector(t *testing.T) {
	Convey("Given the runtime collector", t, func() {
		ctx, cancel := context.WithCancel(context.Background())

		Convey("When it is started", func() {
			So(StartRuntimeCollector(ctx), ShouldBeNil)

			Convey("Then a second collector is rejected", func() {
				So(StartRuntimeCollector(ctx), ShouldEqual, ErrCollectorRunning)
			})

			Convey("Then goroutines are reported", func() {
				So(func() bool {
					deadline := time.Now().Add(time.Second)
					for time.Now().Before(deadline) {
						if value("system_goroutine_count", nil) > 0 {
							return true
						}
						time.Sleep(10 * time.Millisecond)
					}
					return false
				}(), ShouldBeTrue)
			})

			Reset(func() {
				cancel()
				for collectorRunning.Load() {
					time.Sleep(time.Millisecond)
				}
			})
		})
	})
}
