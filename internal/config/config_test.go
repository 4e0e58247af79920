package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddress)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.GoalUpdateMaxAttempts)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")
	t.Setenv("CONSUMER_APPLY_GOAL_PROGRESS", "true")
	t.Setenv("STORAGE_DRIVER", "MEMORY")

	cfg := Load()

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, 25, cfg.OutboxBatchSize)
	assert.True(t, cfg.ConsumerApplyGoalProgress)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
}

func TestValidate(t *testing.T) {
	cfg := Config{StorageDriver: StorageMemory, JWTSecret: devJWTSecret, JWTTTL: time.Hour, Environment: "production"}
	require.ErrorContains(t, cfg.Validate(), "JWT_SECRET must be set in production")

	cfg.JWTSecret = "real-secret"
	cfg.StorageDriver = "mongo"
	require.ErrorContains(t, cfg.Validate(), "unknown STORAGE_DRIVER")

	cfg.StorageDriver = StoragePostgres
	require.NoError(t, cfg.Validate())
}
