// Package metrics provides Prometheus metrics for the outbound event queue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"attest/pkg/platform/circuit"
)

type Metrics struct {
	QueueDepth        prometheus.Gauge
	Dropped           prometheus.Counter
	Delivered         prometheus.Counter
	DeliveryFailures  prometheus.Counter
	BreakerState      prometheus.Gauge
	BreakerTransition *prometheus.CounterVec
}

// New registers the event metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "attest_events_queue_depth",
			Help: "Events buffered for outbound delivery",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "attest_events_dropped_total",
			Help: "Events dropped because the queue was full",
		}),
		Delivered: f.NewCounter(prometheus.CounterOpts{
			Name: "attest_events_delivered_total",
			Help: "Events delivered to the outbound sink",
		}),
		DeliveryFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "attest_events_delivery_failures_total",
			Help: "Events the outbound sink rejected",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "attest_events_breaker_state",
			Help: "Outbound sink breaker position (0 closed, 1 open, 2 half open)",
		}),
		BreakerTransition: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_events_breaker_transitions_total",
			Help: "Outbound sink breaker transitions by target state",
		}, []string{"to"}),
	}
}

func (m *Metrics) IncQueueDepth() {
	if m != nil {
		m.QueueDepth.Inc()
	}
}

func (m *Metrics) DecQueueDepth() {
	if m != nil {
		m.QueueDepth.Dec()
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) IncDelivered() {
	if m != nil {
		m.Delivered.Inc()
	}
}

func (m *Metrics) IncDeliveryFailure() {
	if m != nil {
		m.DeliveryFailures.Inc()
	}
}

// ObserveBreaker records a breaker transition. Its signature matches
// circuit.WithStateChange.
func (m *Metrics) ObserveBreaker(_ string, _, to circuit.State) {
	if m != nil {
		m.BreakerState.Set(float64(to))
		m.BreakerTransition.WithLabelValues(to.String()).Inc()
	}
}
