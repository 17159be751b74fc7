package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for animal retrieval.
type Metrics struct {
	// Responses by representation ("data", "document") and result
	Responses *prometheus.CounterVec

	// Size of the tie set for served matches
	TieSetSize prometheus.Histogram

	// Match latency, excluding the payment gate
	MatchLatency prometheus.Histogram
}

// New creates and registers the retrieval metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "animal_retrieval_responses_total",
			Help: "Retrieval responses by representation and result",
		}, []string{"representation", "result"}),

		TieSetSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "animal_match_tie_set_size",
			Help:    "Number of catalog animals sharing the minimum distance",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),

		MatchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "animal_match_duration_seconds",
			Help:    "Duration of scoring a name against the catalog",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
	}
}

// IncrementResponse records a served retrieval response.
func (m *Metrics) IncrementResponse(representation, result string) {
	if m != nil {
		m.Responses.WithLabelValues(representation, result).Inc()
	}
}

// ObserveMatch records one match.
func (m *Metrics) ObserveMatch(ties int, d time.Duration) {
	if m != nil {
		m.TieSetSize.Observe(float64(ties))
		m.MatchLatency.Observe(d.Seconds())
	}
}
