package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	platformevents "example.com/fitness/internal/platform/events"
)

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
	AggregateType string
	PartitionKey  func(userID, aggregateID string) string
}

var eventCatalog = map[string]EventMetadata{
	platformevents.TypeActivityLogged: {
		Topic:         "activity_events",
		SchemaSubject: "activity_events-value",
		AggregateType: "activity",
		PartitionKey: func(userID, _ string) string {
			return userID
		},
	},
	platformevents.TypeGoalCompleted: {
		Topic:         "goal_events",
		SchemaSubject: "goal_events-value",
		AggregateType: "goal",
		PartitionKey: func(userID, _ string) string {
			return userID
		},
	},
}

// insertOutbox records an event in the same transaction as the state change
// that produced it. The dedupe key makes a replayed write a no-op.
func insertOutbox(ctx context.Context, tx pgx.Tx, eventType, userID, aggregateID string, payload interface{}) error {
	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		userID,
		meta.AggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKey(userID, aggregateID),
		body,
		fmt.Sprintf("%s:%s", aggregateID, eventType),
	)
	return err
}
