// Package metrics provides Prometheus metrics for stack evaluation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds stack collectors. A nil *Metrics records nothing.
type Metrics struct {
	Evaluations    prometheus.Counter
	Completions    prometheus.Counter
	ClaimConflicts prometheus.Counter
	MetaFailures   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_stack_evaluations_total",
			Help: "Stack evaluations triggered by issued credentials",
		}),
		Completions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_stack_completions_total",
			Help: "Stacks completed with a meta-credential issued",
		}),
		ClaimConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_stack_claim_conflicts_total",
			Help: "Completion claims lost to a concurrent evaluation",
		}),
		MetaFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_stack_meta_issue_failures_total",
			Help: "Meta-credential issuances that failed and released their claim",
		}),
	}
}

func (m *Metrics) IncEvaluation() {
	if m == nil {
		return
	}
	m.Evaluations.Inc()
}

func (m *Metrics) IncCompletion() {
	if m == nil {
		return
	}
	m.Completions.Inc()
}

func (m *Metrics) IncClaimConflict() {
	if m == nil {
		return
	}
	m.ClaimConflicts.Inc()
}

func (m *Metrics) IncMetaFailure() {
	if m == nil {
		return
	}
	m.MetaFailures.Inc()
}
