package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Issuance metrics
	CertificatesIssued   prometheus.Counter // fully anchored at issue time
	CertificatesStored   prometheus.Counter // stored but anchoring deferred
	DuplicateRejections  prometheus.Counter
	IssuanceUnauthorized prometheus.Counter

	// Ledger metrics
	LedgerFailures *prometheus.CounterVec // labeled by failure kind
	LedgerLatency  prometheus.Histogram

	// Reconciliation metrics
	ReconcileSweeps   prometheus.Counter
	ReconcileAnchored prometheus.Counter
	ReconcilePending  prometheus.Gauge

	// Verification metrics
	Verifications *prometheus.CounterVec // labeled by verdict

	// Identity metrics
	IssuersRegistered prometheus.Counter
	AuthFailures      prometheus.Counter

	EndpointLatency *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_certificates_issued_total",
			Help: "Certificates issued and anchored synchronously",
		}),
		CertificatesStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_certificates_stored_only_total",
			Help: "Certificates stored with anchoring deferred to reconciliation",
		}),
		DuplicateRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_duplicate_rejections_total",
			Help: "Issuance attempts rejected because the fingerprint already exists",
		}),
		IssuanceUnauthorized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_issuance_unauthorized_total",
			Help: "Issuance attempts rejected for lacking the issuing role",
		}),
		LedgerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustchain_ledger_failures_total",
			Help: "Ledger call failures, labeled by classified kind",
		}, []string{"kind"}),
		LedgerLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustchain_ledger_latency_seconds",
			Help:    "Latency of ledger submit calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ReconcileSweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_reconcile_sweeps_total",
			Help: "Reconciliation sweeps executed",
		}),
		ReconcileAnchored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_reconcile_anchored_total",
			Help: "Certificates transitioned to anchored by reconciliation",
		}),
		ReconcilePending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "trustchain_reconcile_pending",
			Help: "Unanchored certificates observed by the last sweep",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustchain_verifications_total",
			Help: "Verification lookups, labeled by verdict",
		}, []string{"verdict"}),
		IssuersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_issuers_registered_total",
			Help: "Institutions registered",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustchain_auth_failures_total",
			Help: "Failed login or token validation attempts",
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustchain_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
