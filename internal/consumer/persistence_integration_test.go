//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitness/internal/testsupport"
)

func TestPersistenceHandlerKeysOnRecordPosition(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pool := testsupport.StartPostgres(ctx, t)
	handler := NewPersistenceHandler(pool)

	msg := Message{
		Topic:         "activity_events",
		Offset:        5,
		Timestamp:     time.Now().UTC(),
		EventType:     "activity.logged",
		UserID:        "user-123",
		SchemaSubject: "activity_events-value",
		SchemaID:      42,
		Payload:       json.RawMessage(`{"activity_id":"abc","calories":320}`),
	}
	next := msg
	next.Offset = 6

	require.NoError(t, handler.Handle(ctx, msg))
	require.ErrorIs(t, handler.Handle(ctx, msg), ErrAlreadyProcessed)
	require.NoError(t, handler.Handle(ctx, next))

	rows, err := pool.Query(ctx, `SELECT record_offset, payload FROM activity_event_log ORDER BY record_offset`)
	require.NoError(t, err)
	defer rows.Close()

	var offsets []int64
	for rows.Next() {
		var (
			offset  int64
			payload []byte
		)
		require.NoError(t, rows.Scan(&offset, &payload))
		require.JSONEq(t, string(msg.Payload), string(payload))
		offsets = append(offsets, offset)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []int64{5, 6}, offsets)
}
