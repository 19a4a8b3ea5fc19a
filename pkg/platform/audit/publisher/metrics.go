package publisher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "attest/pkg/platform/audit"
)

// Metrics describe audit persistence. A nil *Metrics records nothing.
type Metrics struct {
	reg       prometheus.Registerer
	Dropped   prometheus.Counter
	Persisted *prometheus.HistogramVec
}

// NewMetrics registers with reg, or the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "attest_audit_events_dropped_total",
			Help: "Audit events dropped because the queue was full",
		}),
		Persisted: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attest_audit_persist_duration_seconds",
			Help:    "Audit store append latency by outcome",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"outcome"}),
	}
}

func (m *Metrics) trackQueue(queue chan audit.Event) {
	if m == nil {
		return
	}
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "attest_audit_queue_depth",
		Help: "Audit events waiting to be persisted",
	}, func() float64 { return float64(len(queue)) })
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) persisted(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Persisted.WithLabelValues(outcome).Observe(d.Seconds())
}
