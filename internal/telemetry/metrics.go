// Package telemetry holds the Prometheus metrics and OpenTelemetry spans
// recorded while a build executes.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/specialistvlad/buildgraph/internal/node"
)

const namespace = "buildgraph"

// Metrics is the set of build collectors registered on one registry.
type Metrics struct {
	steps         *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	stepsInFlight prometheus.Gauge
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
}

// Default is registered on the global Prometheus registry and served by the
// host's /metrics endpoint.
var Default = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates and registers the build collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "The total number of build steps that reached a terminal status.",
		}, []string{"status"}),

		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       namespace,
			Name:                            "step_duration_seconds",
			Help:                            "The time spent running a step body and committing its productions.",
			Buckets:                         prometheus.ExponentialBuckets(0.001, 4, 10),
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: time.Hour,
		}, []string{"status"}),

		stepsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "steps_in_flight",
			Help:      "The number of step bodies currently running.",
		}),

		builds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "The total number of graph executions by outcome.",
		}, []string{"result"}),

		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "The wall time of one graph execution.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
}

// StepStarted records a body that began running.
func (m *Metrics) StepStarted() {
	m.stepsInFlight.Inc()
}

// StepFinished records a body that returned, successfully or not.
func (m *Metrics) StepFinished(status node.Status, elapsed time.Duration) {
	m.stepsInFlight.Dec()
	m.steps.WithLabelValues(status.String()).Inc()
	m.stepDuration.WithLabelValues(status.String()).Observe(elapsed.Seconds())
}

// StepsSettled records steps that never ran: skipped or reused ones.
func (m *Metrics) StepsSettled(status node.Status, count int) {
	if count > 0 {
		m.steps.WithLabelValues(status.String()).Add(float64(count))
	}
}

// BuildFinished records one execution. result is "success" or "failure".
func (m *Metrics) BuildFinished(result string, elapsed time.Duration) {
	m.builds.WithLabelValues(result).Inc()
	m.buildDuration.Observe(elapsed.Seconds())
}
