// Package metrics provides Prometheus metrics for credential issuance,
// verification and the issuer profile cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the credential context collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	CredentialsIssued  *prometheus.CounterVec // by achievement kind
	IssueFailures      *prometheus.CounterVec // by domain error code
	IssueDuration      prometheus.Histogram
	VerificationsTotal *prometheus.CounterVec // by outcome
	VerifyDuration     prometheus.Histogram
	StatusChanges      *prometheus.CounterVec // by target status

	ProfileCacheHits   prometheus.Counter
	ProfileCacheMisses prometheus.Counter
	ProfileCacheErrors prometheus.Counter
}

// New registers the credential metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_credentials_issued_total",
			Help: "Total number of credentials issued by template kind",
		}, []string{"kind"}),
		IssueFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_credential_issue_failures_total",
			Help: "Total number of failed issuance attempts by error code",
		}, []string{"code"}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_credential_issue_duration_seconds",
			Help:    "Time taken to build, sign and persist a credential",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_credential_verifications_total",
			Help: "Total number of verifications by outcome",
		}, []string{"outcome"}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_credential_verify_duration_seconds",
			Help:    "Time taken to verify a credential",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		StatusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_credential_status_changes_total",
			Help: "Total number of credential status transitions by target status",
		}, []string{"status"}),
		ProfileCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_issuer_profile_cache_hits_total",
			Help: "Issuer profile lookups served from Redis",
		}),
		ProfileCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_issuer_profile_cache_misses_total",
			Help: "Issuer profile lookups that fell through to the store",
		}),
		ProfileCacheErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_issuer_profile_cache_errors_total",
			Help: "Redis failures while reading or writing issuer profiles",
		}),
	}
}

func (m *Metrics) IncIssued(kind string) {
	if m != nil {
		m.CredentialsIssued.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncIssueFailure(code string) {
	if m != nil {
		m.IssueFailures.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) ObserveIssueDuration(seconds float64) {
	if m != nil {
		m.IssueDuration.Observe(seconds)
	}
}

func (m *Metrics) IncVerification(outcome string) {
	if m != nil {
		m.VerificationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveVerifyDuration(seconds float64) {
	if m != nil {
		m.VerifyDuration.Observe(seconds)
	}
}

func (m *Metrics) IncStatusChange(status string) {
	if m != nil {
		m.StatusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncProfileCacheHit() {
	if m != nil {
		m.ProfileCacheHits.Inc()
	}
}

func (m *Metrics) IncProfileCacheMiss() {
	if m != nil {
		m.ProfileCacheMisses.Inc()
	}
}

func (m *Metrics) IncProfileCacheError() {
	if m != nil {
		m.ProfileCacheErrors.Inc()
	}
}
