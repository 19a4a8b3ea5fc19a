package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitAllowedTotal     *prometheus.CounterVec
	RateLimitRejectedTotal    *prometheus.CounterVec
	RateLimitStoreErrorsTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RateLimitAllowedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_ratelimit_allowed_total",
			Help: "Total number of requests admitted by the rate limiter",
		}, []string{"class"}),
		RateLimitRejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_ratelimit_rejected_total",
			Help: "Total number of requests rejected with 429",
		}, []string{"class"}),
		RateLimitStoreErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_ratelimit_store_errors_total",
			Help: "Total number of bucket store failures (requests were let through)",
		}),
	}
}

func (m *Metrics) IncrementAllowed(class string) {
	m.RateLimitAllowedTotal.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementRejected(class string) {
	m.RateLimitRejectedTotal.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.RateLimitStoreErrorsTotal.Inc()
}
