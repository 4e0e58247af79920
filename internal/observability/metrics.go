// Package observability holds the Prometheus collectors shared across the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityLoggedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "activities",
		Name:      "logged_total",
		Help:      "Number of activities persisted, labeled by activity type.",
	}, []string{"activity_type"})

	activityLoggedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness",
		Subsystem: "activities",
		Name:      "last_logged_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted.",
	})

	goalsEvaluatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "goal_progress",
		Name:      "goals_evaluated_total",
		Help:      "Number of active goals evaluated against a logged activity.",
	})

	goalsCompletedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "goal_progress",
		Name:      "goals_completed_total",
		Help:      "Number of goals moved to completed by progress updates.",
	})

	goalConflictCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "goal_progress",
		Name:      "version_conflicts_total",
		Help:      "Number of goal writes rejected by the version check.",
	})

	progressFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "goal_progress",
		Name:      "batch_failures_total",
		Help:      "Number of progress batches aborted by a store failure.",
	})

	progressDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitness",
		Subsystem: "goal_progress",
		Name:      "batch_duration_seconds",
		Help:      "Time spent loading, evaluating and saving one user's goals.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// HTTPRequests counts served requests by method and status code.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests served.",
	}, []string{"method", "status"})

	// HTTPRequestDuration observes request latency.
	HTTPRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitness",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTPPanics counts recovered handler panics.
	HTTPPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Number of handler panics recovered by middleware.",
	})
)

func init() {
	prometheus.MustRegister(
		activityLoggedCounter,
		activityLoggedGauge,
		goalsEvaluatedCounter,
		goalsCompletedCounter,
		goalConflictCounter,
		progressFailureCounter,
		progressDuration,
		HTTPRequests,
		HTTPRequestDuration,
		HTTPPanics,
	)
}

// RecordActivityLogged updates activity counters and the persistence watermark.
func RecordActivityLogged(activityType string, ts time.Time) {
	activityLoggedCounter.WithLabelValues(activityType).Inc()
	if ts.IsZero() {
		return
	}
	activityLoggedGauge.Set(float64(ts.Unix()))
}

// RecordGoalProgress records a finished progress batch.
func RecordGoalProgress(evaluated, completed int, elapsed time.Duration) {
	goalsEvaluatedCounter.Add(float64(evaluated))
	goalsCompletedCounter.Add(float64(completed))
	progressDuration.Observe(elapsed.Seconds())
}

// RecordGoalProgressFailure counts an aborted progress batch.
func RecordGoalProgressFailure() {
	progressFailureCounter.Inc()
}

// RecordGoalConflict counts a rejected compare-and-swap goal write.
func RecordGoalConflict() {
	goalConflictCounter.Inc()
}
