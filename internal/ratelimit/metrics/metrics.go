package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitRejections prometheus.Counter
	RateLimitTrackedIPs prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RateLimitRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "animal_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the per-IP rate limiter",
		}),
		RateLimitTrackedIPs: f.NewGauge(prometheus.GaugeOpts{
			Name: "animal_ratelimit_tracked_ips",
			Help: "Current number of client IPs with a live token bucket",
		}),
	}
}

func (m *Metrics) IncrementRejections() {
	if m != nil {
		m.RateLimitRejections.Inc()
	}
}

func (m *Metrics) SetTrackedIPs(count int) {
	if m != nil {
		m.RateLimitTrackedIPs.Set(float64(count))
	}
}
