package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PersistenceHandler appends every consumed event to activity_event_log.
// The log is keyed on topic, partition and offset, so a redelivered record
// is reported as ErrAlreadyProcessed.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a PersistenceHandler.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle implements Handler.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	tag, err := h.pool.Exec(ctx,
		`INSERT INTO activity_event_log (event_type, user_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType, msg.UserID, msg.SchemaID, msg.SchemaSubject,
		msg.Topic, msg.Partition, msg.Offset, msg.Payload, msg.Timestamp,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}
