// Package metrics exposes smoke run outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/techblog-io/blog-smoke/internal/harness"
)

const namespace = "smoke"

// Run statuses used for the runs_total counter.
const (
	StatusPassed      = "passed"
	StatusFailed      = "failed"
	StatusSetupFailed = "setup_failed"
)

// Recorder keeps per-check and per-run metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	checkSuccess  *prometheus.GaugeVec
	checkDuration *prometheus.GaugeVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastSuccess   prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		checkSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_success",
			Help:      "Whether the check passed on the last run (1) or not (0)",
		}, []string{"priority", "check"}),
		checkDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of the check on the last run",
		}, []string{"priority", "check"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of smoke runs by status",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of complete smoke runs",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_last_success_timestamp_seconds",
			Help:      "Unix time of the last run in which every check passed",
		}),
	}
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records a run. runErr is the error returned by harness.Run.
func (r *Recorder) Observe(res *harness.Result, runErr error) {
	if runErr != nil || res == nil {
		r.runs.WithLabelValues(StatusSetupFailed).Inc()
		return
	}

	for _, o := range res.Outcomes {
		labels := []string{strconv.Itoa(o.Priority), o.Description}
		success := 0.0
		if o.Passed {
			success = 1
		}
		r.checkSuccess.WithLabelValues(labels...).Set(success)
		r.checkDuration.WithLabelValues(labels...).Set(o.Duration.Seconds())
	}

	r.runDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	if res.OK() {
		r.runs.WithLabelValues(StatusPassed).Inc()
		r.lastSuccess.Set(float64(res.FinishedAt.Unix()))
	} else {
		r.runs.WithLabelValues(StatusFailed).Inc()
	}
}

// Push sends the current metrics to a Pushgateway, grouped by target URL.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job, target string) error {
	if gatewayURL == "" {
		return errors.New("pushgateway url is empty")
	}
	err := push.New(gatewayURL, job).
		Gatherer(r.registry).
		Grouping("target", target).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
