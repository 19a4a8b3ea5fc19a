// Package metrics provides Prometheus metrics for the revocation ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds revocation collectors. A nil *Metrics records nothing.
type Metrics struct {
	Revocations     *prometheus.CounterVec // by reason
	RevokeConflicts prometheus.Counter
	LedgerLookups   *prometheus.CounterVec // by result
}

func New() *Metrics {
	return &Metrics{
		Revocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_revocations_total",
			Help: "Total number of credentials revoked by reason",
		}, []string{"reason"}),
		RevokeConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_revocation_conflicts_total",
			Help: "Revocation attempts rejected because the credential was already revoked",
		}),
		LedgerLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_revocation_ledger_lookups_total",
			Help: "Revocation ledger lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncRevoked(reason string) {
	if m == nil {
		return
	}
	m.Revocations.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.RevokeConflicts.Inc()
}

func (m *Metrics) IncLookup(revoked bool) {
	if m == nil {
		return
	}
	result := "clear"
	if revoked {
		result = "revoked"
	}
	m.LedgerLookups.WithLabelValues(result).Inc()
}
