package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels runs and reasoning calls that produced a result.
	OutcomeSuccess = "success"
	// OutcomeError labels failed runs, and reasoning calls that fell back.
	OutcomeError = "error"
	// OutcomeCached labels reasoning verdicts served from the cache.
	OutcomeCached = "cached"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kpi_rca",
			Name:      "runs_total",
			Help:      "Total number of batch runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kpi_rca",
			Name:      "stage_seconds",
			Help:      "Pipeline stage latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	degradationsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kpi_rca",
			Name:      "degradations_detected_total",
			Help:      "Total degradation intervals emitted by the detector.",
		},
	)

	eventsCorrelated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kpi_rca",
			Name:      "events_correlated_total",
			Help:      "Total consolidated events matched to degradation intervals.",
		},
	)

	reasoningCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kpi_rca",
			Name:      "reasoning_calls_total",
			Help:      "Total reasoning evaluations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	reasoningDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kpi_rca",
			Name:      "reasoning_seconds",
			Help:      "Reasoning call latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 30, 60},
		},
	)
)

// Register attaches the engine's collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		stageDurationSeconds,
		degradationsDetected,
		eventsCorrelated,
		reasoningCallsTotal,
		reasoningDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a completed (or failed) batch run.
func ObserveRun(outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	runsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records a pipeline stage duration.
func ObserveStage(stage string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// AddDegradations counts detected intervals.
func AddDegradations(n int) {
	if n > 0 {
		degradationsDetected.Add(float64(n))
	}
}

// AddCorrelatedEvents counts consolidated events across one run.
func AddCorrelatedEvents(n int) {
	if n > 0 {
		eventsCorrelated.Add(float64(n))
	}
}

// ObserveReasoning records one reasoning evaluation with its outcome label.
func ObserveReasoning(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeError, OutcomeCached:
	default:
		outcome = OutcomeSuccess
	}
	reasoningCallsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	reasoningDurationSeconds.Observe(duration.Seconds())
}
