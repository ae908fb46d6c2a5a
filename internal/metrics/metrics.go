package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlaspay_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atlaspay_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	RequestsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlaspay_requests_submitted_total",
		Help: "Transaction requests accepted as pending, by kind",
	}, []string{"kind"})

	RequestsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlaspay_requests_decided_total",
		Help: "Admin decisions recorded, by outcome",
	}, []string{"status"})

	AppliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlaspay_ledger_applies_total",
		Help: "Reconciler apply outcomes",
	}, []string{"result"})

	ApplyVersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlaspay_ledger_apply_version_conflicts_total",
		Help: "Optimistic concurrency conflicts observed while applying",
	})
)

// Label values for AppliesTotal
const (
	ResultApplied           = "applied"
	ResultInsufficientFunds = "insufficient_funds"
	ResultContention        = "contention"
	ResultError             = "error"
)
