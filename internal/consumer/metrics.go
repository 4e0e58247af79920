package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeProcessed    = "processed"
	outcomeDuplicate    = "duplicate"
	outcomeHandlerError = "handler_error"
	outcomeDecodeError  = "decode_error"
)

var (
	consumedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Kafka records seen by the consumer, by outcome.",
	}, []string{"outcome", "topic", "event_type"})

	lastProcessed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fitness",
		Subsystem: "consumer",
		Name:      "last_processed_timestamp_seconds",
		Help:      "Kafka timestamp of the newest record handled per topic.",
	}, []string{"topic"})
)

func observe(outcome, topic, eventType string) {
	consumedMessages.WithLabelValues(outcome, topic, eventType).Inc()
}

func markLastProcessed(msg Message) {
	if msg.Timestamp.IsZero() {
		return
	}
	lastProcessed.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
}
