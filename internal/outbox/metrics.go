package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DLQ outcomes.
const (
	outcomeRequeued    = "requeued"
	outcomeRetry       = "retry_scheduled"
	outcomeQuarantined = "quarantined"
)

var (
	deliveredEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Outbox events written to Kafka.",
	}, []string{"topic"})

	deadLetteredEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "outbox",
		Name:      "events_dead_lettered_total",
		Help:      "Outbox events moved to outbox_dlq after a failed write.",
	}, []string{"topic", "event_type"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitness",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time to publish and settle one claimed batch.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	dlqEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the replayer, by outcome.",
	}, []string{"outcome", "topic"})

	dlqBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness",
		Subsystem: "dlq",
		Name:      "backlog",
		Help:      "DLQ entries not yet requeued or quarantined.",
	})
)

func recordDelivered(topic string) {
	deliveredEvents.WithLabelValues(topic).Inc()
}

func recordDeadLettered(topic, eventType string) {
	deadLetteredEvents.WithLabelValues(topic, eventType).Inc()
}

func recordDLQOutcome(outcome, topic string) {
	dlqEntries.WithLabelValues(outcome, topic).Inc()
}
