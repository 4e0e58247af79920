//go:build integration

package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartPostgresAppliesMigrations(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool := StartPostgres(ctx, t)

	for _, table := range []string{"users", "activities", "goals", "outbox", "outbox_dlq", "activity_event_log"} {
		var exists bool
		err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, "table %s missing", table)
	}
}
