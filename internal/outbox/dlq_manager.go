package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const maxBackoff = time.Hour

// DLQManager moves dead-lettered events back into the outbox. An entry that
// cannot be requeued is retried with exponential backoff; once it has used up
// maxRetries it is quarantined and left for an operator.
type DLQManager struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
}

// NewDLQManager constructs a DLQManager. Non-positive settings fall back to
// five retries and a one minute base delay.
func NewDLQManager(pool *pgxpool.Pool, maxRetries int, baseDelay time.Duration) *DLQManager {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &DLQManager{pool: pool, maxRetries: maxRetries, baseDelay: baseDelay}
}

type dlqEntry struct {
	ID         int64  `db:"dlq_id"`
	Topic      string `db:"topic"`
	RetryCount int    `db:"retry_count"`
}

// RunOnce quarantines exhausted entries and replays up to batchSize due ones.
// It returns how many entries were requeued, rescheduled or quarantined.
func (m *DLQManager) RunOnce(ctx context.Context, batchSize int) (int, error) {
	handled, err := m.quarantineExhausted(ctx)
	if err != nil {
		return 0, err
	}

	const due = `SELECT dlq_id, topic, retry_count FROM outbox_dlq
        WHERE quarantined_at IS NULL
          AND retry_count < $1
          AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY created_at
        LIMIT $2`

	rows, err := m.pool.Query(ctx, due, m.maxRetries, batchSize)
	if err != nil {
		return handled, err
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[dlqEntry])
	if err != nil {
		return handled, err
	}

	var errs []error
	for _, entry := range entries {
		if err := m.replay(ctx, entry); err != nil {
			log.WithError(err).WithField("dlq_id", entry.ID).Warn("dlq entry not replayed")
			errs = append(errs, err)
			continue
		}
		handled++
	}

	m.refreshBacklog(ctx)
	return handled, errors.Join(errs...)
}

func (m *DLQManager) quarantineExhausted(ctx context.Context) (int, error) {
	rows, err := m.pool.Query(ctx,
		`UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = 'retry limit reached'
          WHERE quarantined_at IS NULL AND retry_count >= $1
         RETURNING topic`, m.maxRetries)
	if err != nil {
		return 0, fmt.Errorf("quarantine dlq entries: %w", err)
	}
	topics, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("quarantine dlq entries: %w", err)
	}
	for _, topic := range topics {
		recordDLQOutcome(outcomeQuarantined, topic)
	}
	if len(topics) > 0 {
		log.WithField("count", len(topics)).Warn("dlq entries quarantined")
	}
	return len(topics), nil
}

// replay copies the entry back into the outbox and deletes it in one
// transaction. A failed copy schedules the next attempt instead.
func (m *DLQManager) replay(ctx context.Context, entry dlqEntry) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO outbox (user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         SELECT user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload
           FROM outbox_dlq
          WHERE dlq_id = $1 AND schema_subject <> ''`, entry.ID)
	if err == nil && tag.RowsAffected() == 0 {
		err = fmt.Errorf("dlq entry %d has no schema subject", entry.ID)
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return m.scheduleRetry(ctx, entry, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE dlq_id = $1`, entry.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	recordDLQOutcome(outcomeRequeued, entry.Topic)
	return nil
}

func (m *DLQManager) scheduleRetry(ctx context.Context, entry dlqEntry, cause error) error {
	delay := m.backoffDelay(entry.RetryCount + 1)
	_, err := m.pool.Exec(ctx,
		`UPDATE outbox_dlq
            SET retry_count = retry_count + 1,
                last_attempt_at = NOW(),
                next_retry_at = NOW() + make_interval(secs => $1),
                reason = $2
          WHERE dlq_id = $3`,
		delay.Seconds(), cause.Error(), entry.ID)
	if err != nil {
		return err
	}
	recordDLQOutcome(outcomeRetry, entry.Topic)
	return nil
}

// backoffDelay is baseDelay doubled for every attempt after the first,
// capped at one hour.
func (m *DLQManager) backoffDelay(attempt int) time.Duration {
	shift := max(attempt, 1) - 1
	if shift >= 63 || m.baseDelay > maxBackoff>>uint(shift) {
		return maxBackoff
	}
	return m.baseDelay << uint(shift)
}

func (m *DLQManager) refreshBacklog(ctx context.Context) {
	var count int
	if err := m.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		log.WithError(err).Debug("dlq backlog count failed")
		return
	}
	dlqBacklog.Set(float64(count))
}
