package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the payment gate.
type Metrics struct {
	// Decisions by outcome and reason
	Decisions *prometheus.CounterVec

	// Gate failures (no decision reached)
	Failures prometheus.Counter

	// Facilitator round trips by operation and result
	FacilitatorLatency *prometheus.HistogramVec
}

// New creates and registers the gate metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "animal_gate_decisions_total",
			Help: "Payment gate decisions by outcome and reason",
		}, []string{"outcome", "reason"}),

		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "animal_gate_failures_total",
			Help: "Gate checks that failed before reaching a decision",
		}),

		FacilitatorLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "animal_gate_facilitator_duration_seconds",
			Help:    "Duration of facilitator verify and settle calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "result"}), // operation: "verify", "settle"
	}
}

// IncrementDecision records a gate decision.
func (m *Metrics) IncrementDecision(outcome, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome, reason).Inc()
	}
}

// IncrementFailure records a gate check that errored.
func (m *Metrics) IncrementFailure() {
	if m != nil {
		m.Failures.Inc()
	}
}

// ObserveFacilitator records a facilitator call.
func (m *Metrics) ObserveFacilitator(operation, result string, d time.Duration) {
	if m != nil {
		m.FacilitatorLatency.WithLabelValues(operation, result).Observe(d.Seconds())
	}
}
