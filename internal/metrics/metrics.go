package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "handover",
			Name:      "submissions_total",
			Help:      "Request submissions by outcome.",
		},
		[]string{"outcome"},
	)

	conflictRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "handover",
			Name:      "submission_conflict_retries_total",
			Help:      "Transaction conflicts that triggered a retry.",
		},
	)

	notifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "handover",
			Name:      "notification_failures_total",
			Help:      "Notification deliveries that exhausted retries.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "handover",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(submissions, conflictRetries, notifyFailures, httpRequests)
	})
}

// IncSubmission increments the submissions counter for an outcome label
// (success, validation_failed, item_not_found, conflict, store_unavailable).
func IncSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

// IncConflictRetry counts one retried transaction conflict.
func IncConflictRetry() {
	conflictRetries.Inc()
}

// IncNotifyFailure counts one dead-lettered notification.
func IncNotifyFailure() {
	notifyFailures.Inc()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
