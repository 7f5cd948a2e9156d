// Package metrics exports run results in the Prometheus text format, for
// collection through the node exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ioctest/internal/harness"
	"ioctest/internal/iocomm"
	"ioctest/pkg/logging"
)

const (
	MetricsNamespace = "ioctest"
)

// Recorder holds the metrics of one run in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	testResult   *prometheus.GaugeVec
	testDuration *prometheus.GaugeVec
	testsTotal   *prometheus.CounterVec
	runInfo      *prometheus.GaugeVec
	runDuration  prometheus.Gauge
	runTimestamp prometheus.Gauge
	dispatch     *prometheus.GaugeVec
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		testResult: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "test_passed",
			Help:      "1 if the test passed in the last run, 0 if it failed",
		}, []string{
			"test",
		}),
		testDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of each test in the last run",
		}, []string{
			"test",
		}),
		testsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Number of tests executed, by outcome",
		}, []string{
			"result",
		}),
		runInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_info",
			Help:      "Identifies the last run",
		}, []string{
			"run_id",
			"result",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		runTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_completed_timestamp_seconds",
			Help:      "Unix time the last run completed",
		}),
		dispatch: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "dispatch_events",
			Help:      "Controller event dispatch counters for the last run",
		}, []string{
			"kind",
		}),
	}
}

// ObserveResult records one test result. It matches harness.WithResultHook.
func (r *Recorder) ObserveResult(res harness.TestResult) {
	passed := 0.0
	if res.Passed() {
		passed = 1
	}
	r.testResult.WithLabelValues(res.Name).Set(passed)
	r.testDuration.WithLabelValues(res.Name).Set(res.Duration.Seconds())
	r.testsTotal.WithLabelValues(string(res.Outcome)).Inc()
}

// ObserveRun records the run summary.
func (r *Recorder) ObserveRun(summary harness.RunSummary) {
	result := "pass"
	if !summary.AllPassed() {
		result = "fail"
	}
	r.runInfo.WithLabelValues(summary.RunID, result).Set(1)
	r.runDuration.Set(summary.Duration.Seconds())
	if !summary.EndTime.IsZero() {
		r.runTimestamp.Set(float64(summary.EndTime.Unix()))
	}
}

// ObserveDispatch records controller dispatch counters.
func (r *Recorder) ObserveDispatch(stats iocomm.Stats) {
	r.dispatch.WithLabelValues("sent").Set(float64(stats.CommandsSent))
	r.dispatch.WithLabelValues("received").Set(float64(stats.EventsReceived))
	r.dispatch.WithLabelValues("delivered").Set(float64(stats.EventsDelivered))
	r.dispatch.WithLabelValues("unmatched").Set(float64(stats.EventsUnmatched))
	r.dispatch.WithLabelValues("handler_panics").Set(float64(stats.HandlerPanics))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	logging.Debug("Metrics", "metrics written to %s", path)
	return nil
}
