// Package metrics holds the Prometheus collectors of the auth service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for operation metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Operations counts engine operations by name and outcome. The outcome is
// OutcomeSuccess or the stable error code of the failure.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_operations_total",
		Help: "Total number of auth operations",
	},
	[]string{"operation", "outcome"},
)

// OperationDuration is the histogram for operation latency.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authd_operation_duration_seconds",
		Help:    "Auth operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// MailFailures counts mail sends that failed, by message kind.
var MailFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_mail_failures_total",
		Help: "Total number of failed mail sends",
	},
	[]string{"kind"},
)

// SuppressedErrors counts failures swallowed so they are not visible to the
// caller, by operation and error code.
var SuppressedErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_suppressed_errors_total",
		Help: "Total number of errors hidden from the caller",
	},
	[]string{"operation", "code"},
)

// RefreshRaces counts refreshes that lost the compare-and-swap on a session.
var RefreshRaces = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authd_refresh_races_total",
		Help: "Total number of refreshes that lost a concurrent rotation",
	},
)

// HousekeepingDeleted counts rows removed by housekeeping, by collection.
var HousekeepingDeleted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_housekeeping_deleted_total",
		Help: "Total number of expired records removed by housekeeping",
	},
	[]string{"collection"},
)

// RegisterMetrics registers the auth metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
	reg.MustRegister(OperationDuration)
	reg.MustRegister(MailFailures)
	reg.MustRegister(SuppressedErrors)
	reg.MustRegister(RefreshRaces)
	reg.MustRegister(HousekeepingDeleted)
}

// RecordOperation records one finished operation.
func RecordOperation(operation, outcome string, d time.Duration) {
	Operations.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordMailFailure increments the mail failure counter.
func RecordMailFailure(kind string) {
	MailFailures.WithLabelValues(kind).Inc()
}

// RecordSuppressed increments the suppressed error counter.
func RecordSuppressed(operation, code string) {
	SuppressedErrors.WithLabelValues(operation, code).Inc()
}

// RecordRefreshRace increments the lost-rotation counter.
func RecordRefreshRace() {
	RefreshRaces.Inc()
}

// RecordHousekeeping adds n deleted records for collection.
func RecordHousekeeping(collection string, n int64) {
	if n > 0 {
		HousekeepingDeleted.WithLabelValues(collection).Add(float64(n))
	}
}
