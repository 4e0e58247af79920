package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitness/internal/domain"
	platformevents "example.com/fitness/internal/platform/events"
)

var _ domain.ActivityRepository = (*ActivityRepository)(nil)

const activityColumns = `activity_id, user_id, activity_type, duration, calories_burned, custom_field, notes, performed_at, version, created_at`

// ActivityRepository provides Postgres-backed persistence for activities and their outbox events.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// FindByIdempotency checks if an activity already exists for the supplied idempotency key.
func (r *ActivityRepository) FindByIdempotency(ctx context.Context, userID, idempotencyKey string) (*domain.Activity, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1 AND idempotency_key=$2`

	var found *domain.Activity
	err := withUserTx(ctx, r.pool, userID, func(tx pgx.Tx) error {
		activity, err := scanActivity(tx.QueryRow(ctx, query, userID, idempotencyKey))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = &activity
		return nil
	})
	return found, err
}

// Create persists the activity and records its activity.logged event inside a single transaction.
func (r *ActivityRepository) Create(ctx context.Context, activity domain.Activity, idempotencyKey string) error {
	const insertActivity = `INSERT INTO activities (activity_id, user_id, activity_type, duration, calories_burned, custom_field, notes, performed_at, idempotency_key, version, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	return withUserTx(ctx, r.pool, activity.UserID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertActivity,
			activity.ID,
			activity.UserID,
			activity.ActivityType,
			activity.Duration,
			activity.CaloriesBurned,
			activity.CustomField,
			activity.Notes,
			activity.PerformedAt,
			nullIfEmpty(idempotencyKey),
			activity.Version,
			activity.CreatedAt,
		); err != nil {
			return err
		}

		return insertOutbox(ctx, tx, platformevents.TypeActivityLogged, activity.UserID, activity.ID, platformevents.ActivityLogged{
			ActivityID:     activity.ID,
			UserID:         activity.UserID,
			ActivityType:   activity.ActivityType,
			Duration:       activity.Duration,
			CaloriesBurned: activity.CaloriesBurned,
			CustomField:    activity.CustomField,
			PerformedAt:    activity.PerformedAt,
			Version:        activity.Version,
		})
	})
}

// Get retrieves an activity by ID.
func (r *ActivityRepository) Get(ctx context.Context, userID, activityID string) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1 AND activity_id=$2`

	var found *domain.Activity
	err := withUserTx(ctx, r.pool, userID, func(tx pgx.Tx) error {
		activity, err := scanActivity(tx.QueryRow(ctx, query, userID, activityID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = &activity
		return nil
	})
	return found, err
}

// ListByUser returns activities for a user, newest first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (performed_at, activity_id) < ($3, $4)`
		args = append(args, cursor.PerformedAt, cursor.ID)
	}
	query += ` ORDER BY performed_at DESC, activity_id DESC LIMIT $2`

	results := make([]domain.Activity, 0, limit)
	err := withUserTx(ctx, r.pool, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			activity, err := scanActivity(rows)
			if err != nil {
				return err
			}
			results = append(results, activity)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{PerformedAt: last.PerformedAt, ID: last.ID}
	}
	return results, next, nil
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.Duration, &a.CaloriesBurned, &a.CustomField, &a.Notes, &a.PerformedAt, &a.Version, &a.CreatedAt)
	if err != nil {
		return domain.Activity{}, err
	}
	a.PerformedAt = a.PerformedAt.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
