// Package outbox relays events recorded in the outbox table to Kafka and
// replays the ones that could not be delivered.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// A claim older than this is considered abandoned and may be picked up again.
const defaultClaimTTL = time.Minute

type messageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(ctx context.Context, subject, schema string) (int, error)
}

// Message is one claimed outbox row.
type Message struct {
	EventID       int64           `db:"event_id"`
	UserID        string          `db:"user_id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Topic         string          `db:"topic"`
	SchemaSubject string          `db:"schema_subject"`
	PartitionKey  string          `db:"partition_key"`
	Payload       json.RawMessage `db:"payload"`
}

type failure struct {
	msg    Message
	reason string
}

// Dispatcher polls the outbox and publishes pending events. Events of a topic
// whose write fails are moved to outbox_dlq; other topics in the same batch
// are unaffected.
type Dispatcher struct {
	pool      *pgxpool.Pool
	producer  messageWriter
	registry  schemaRegistrar
	interval  time.Duration
	batchSize int
	claimTTL  time.Duration
	now       func() time.Time
	done      chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(pool *pgxpool.Pool, producer messageWriter, registry schemaRegistrar, pollInterval time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		producer:  producer,
		registry:  registry,
		interval:  pollInterval,
		batchSize: batchSize,
		claimTTL:  defaultClaimTTL,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start polls until ctx is cancelled. Run it in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("outbox relay failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Start has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	messages, err := d.claim(ctx)
	if err != nil || len(messages) == 0 {
		return err
	}

	timer := prometheus.NewTimer(batchDuration)
	defer timer.ObserveDuration()

	published, failed := d.publish(ctx, messages)
	// Settle even when ctx was cancelled mid-batch so delivered events are not sent twice.
	return d.settle(context.WithoutCancel(ctx), published, failed)
}

// claim marks up to batchSize pending events as taken and returns them in
// event order.
func (d *Dispatcher) claim(ctx context.Context) ([]Message, error) {
	const query = `UPDATE outbox SET claimed_at = NOW()
        WHERE event_id IN (
            SELECT event_id FROM outbox
             WHERE published_at IS NULL
               AND (claimed_at IS NULL OR claimed_at < $2)
             ORDER BY event_id
             LIMIT $1
             FOR UPDATE SKIP LOCKED)
        RETURNING event_id, user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload`

	rows, err := d.pool.Query(ctx, query, d.batchSize, d.now().Add(-d.claimTTL))
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	messages, err := pgx.CollectRows(rows, pgx.RowToStructByName[Message])
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	slices.SortFunc(messages, func(a, b Message) int {
		switch {
		case a.EventID < b.EventID:
			return -1
		case a.EventID > b.EventID:
			return 1
		}
		return 0
	})
	return messages, nil
}

// publish writes messages topic by topic and reports which ones made it.
func (d *Dispatcher) publish(ctx context.Context, messages []Message) ([]Message, []failure) {
	var (
		topics  []string
		byTopic = make(map[string][]Message)
	)
	for _, msg := range messages {
		if _, seen := byTopic[msg.Topic]; !seen {
			topics = append(topics, msg.Topic)
		}
		byTopic[msg.Topic] = append(byTopic[msg.Topic], msg)
	}

	var (
		published []Message
		failed    []failure
	)
	ts := d.now().UTC()
	for _, topic := range topics {
		var (
			records []kafka.Message
			ready   []Message
		)
		for _, msg := range byTopic[topic] {
			record, err := d.record(ctx, msg, ts)
			if err != nil {
				failed = append(failed, failure{msg: msg, reason: err.Error()})
				continue
			}
			records = append(records, record)
			ready = append(ready, msg)
		}
		if len(records) == 0 {
			continue
		}

		if err := d.producer.WriteMessages(ctx, topic, records...); err != nil {
			log.WithError(err).WithFields(log.Fields{"topic": topic, "count": len(ready)}).Warn("outbox write failed, dead-lettering")
			for _, msg := range ready {
				failed = append(failed, failure{msg: msg, reason: fmt.Sprintf("write %s: %s", topic, err)})
			}
			continue
		}
		published = append(published, ready...)
	}
	return published, failed
}

func (d *Dispatcher) record(ctx context.Context, msg Message, ts time.Time) (kafka.Message, error) {
	schema, ok := schemaCatalog[msg.EventType]
	if !ok {
		return kafka.Message{}, fmt.Errorf("no schema for event type %q", msg.EventType)
	}
	schemaID, err := d.registry.EnsureSchema(ctx, msg.SchemaSubject, schema)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("resolve schema %s: %w", msg.SchemaSubject, err)
	}
	return kafka.Message{
		Key:     []byte(msg.PartitionKey),
		Value:   frame(schemaID, msg.Payload),
		Time:    ts,
		Headers: headers(msg),
	}, nil
}

// settle dead-letters failures and marks every handled event published in a
// single transaction.
func (d *Dispatcher) settle(ctx context.Context, published []Message, failed []failure) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const deadLetter = `INSERT INTO outbox_dlq
        (user_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW())`

	batch := &pgx.Batch{}
	ids := make([]int64, 0, len(published)+len(failed))
	for _, f := range failed {
		m := f.msg
		batch.Queue(deadLetter, m.UserID, m.EventID, m.EventType, m.Topic, m.Payload, f.reason, m.AggregateType, m.AggregateID, m.SchemaSubject, m.PartitionKey)
		ids = append(ids, m.EventID)
	}
	for _, m := range published {
		ids = append(ids, m.EventID)
	}
	batch.Queue(`UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, ids)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("settle outbox batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, m := range published {
		recordDelivered(m.Topic)
	}
	for _, f := range failed {
		recordDeadLettered(f.msg.Topic, f.msg.EventType)
	}
	return nil
}
