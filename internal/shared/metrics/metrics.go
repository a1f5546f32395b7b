package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stages.
const (
	StageIssue    = "issue"
	StageRecord   = "record"
	StageDispatch = "dispatch"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds upload pipeline metrics.
type Metrics struct {
	// Invocation metrics
	InvocationsTotal    *prometheus.CounterVec
	InvocationDuration  prometheus.Histogram
	InvocationsInFlight prometheus.Gauge

	// Stage metrics
	StageTotal    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Event source metrics
	EventsReceivedTotal *prometheus.CounterVec
	EventsSkippedTotal  *prometheus.CounterVec

	// Dispatch breaker
	BreakerState *prometheus.GaugeVec
}

// New creates a Metrics instance registered on reg. A nil reg registers on
// the default registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "upload_notifier"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "invocations_total",
				Help:      "Total number of upload events processed",
			},
			[]string{"outcome", "code"},
		),
		InvocationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "invocation_duration_seconds",
				Help:      "Upload event processing duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		InvocationsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "invocations_in_flight",
				Help:      "Current number of upload events being processed",
			},
		),

		StageTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "executions_total",
				Help:      "Total number of pipeline stage executions",
			},
			[]string{"stage", "outcome"}, // stage: issue, record, dispatch
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"stage"},
		),

		EventsReceivedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "events_received_total",
				Help:      "Total number of upload events received",
			},
			[]string{"source"}, // source: lambda, sqs
		),
		EventsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "events_skipped_total",
				Help:      "Total number of received events that were not processed",
			},
			[]string{"source", "reason"},
		),

		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "breaker_state",
				Help:      "Dispatch circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
	}
}

// --- Convenience methods ---

// RecordInvocation records a finished pipeline invocation. code is empty on success.
func (m *Metrics) RecordInvocation(code string, duration time.Duration) {
	outcome := OutcomeSuccess
	if code != "" {
		outcome = OutcomeFailure
	}
	m.InvocationsTotal.WithLabelValues(outcome, code).Inc()
	m.InvocationDuration.Observe(duration.Seconds())
}

// RecordStage records one stage execution.
func (m *Metrics) RecordStage(stage string, err error, duration time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.StageTotal.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordEventReceived records an event delivered by a source.
func (m *Metrics) RecordEventReceived(source string) {
	m.EventsReceivedTotal.WithLabelValues(source).Inc()
}

// RecordEventSkipped records an event a source dropped without processing.
func (m *Metrics) RecordEventSkipped(source, reason string) {
	m.EventsSkippedTotal.WithLabelValues(source, reason).Inc()
}

// SetBreakerState sets the numeric state of a circuit breaker.
func (m *Metrics) SetBreakerState(name string, state float64) {
	m.BreakerState.WithLabelValues(name).Set(state)
}
