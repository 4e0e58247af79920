// Package domain defines the business logic of the fitness API: activities,
// goals and the rules that turn one into progress on the other.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"example.com/fitness/internal/observability"
)

// ErrActivityNotFound is returned when an activity cannot be located.
var ErrActivityNotFound = errors.New("activity not found")

// ActivitySchemaVersion is stamped on persisted activities and their events.
const ActivitySchemaVersion = "v1"

// Activity is an append-only workout record.
type Activity struct {
	ID             string
	UserID         string
	ActivityType   string
	Duration       float64
	CaloriesBurned *float64
	CustomField    *float64
	Notes          string
	PerformedAt    time.Time
	Version        string
	CreatedAt      time.Time
}

// ProgressInput converts the activity into updater input.
func (a Activity) ProgressInput() ActivityInput {
	return ActivityInput{
		ActivityType:   a.ActivityType,
		Duration:       a.Duration,
		CaloriesBurned: valueOrZero(a.CaloriesBurned),
		CustomField:    valueOrZero(a.CustomField),
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Cursor models the pagination token for activity listings.
type Cursor struct {
	PerformedAt time.Time
	ID          string
}

// ActivityRepository captures persistence operations.
type ActivityRepository interface {
	FindByIdempotency(ctx context.Context, userID, idempotencyKey string) (*Activity, error)
	Create(ctx context.Context, activity Activity, idempotencyKey string) error
	Get(ctx context.Context, userID, activityID string) (*Activity, error)
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
}

// ActivityService orchestrates activity logging.
type ActivityService struct {
	repo ActivityRepository
	now  func() time.Time
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo, now: time.Now}
}

// CreateActivityInput captures the payload from the API layer.
type CreateActivityInput struct {
	UserID         string
	ActivityType   string
	Duration       float64
	CaloriesBurned *float64
	CustomField    *float64
	Notes          string
	PerformedAt    time.Time
	IdempotencyKey string
}

// CreateActivity handles idempotent create semantics. The boolean reports a replay.
func (s *ActivityService) CreateActivity(ctx context.Context, input CreateActivityInput) (*Activity, bool, error) {
	if input.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotency(ctx, input.UserID, input.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	now := s.now().UTC()
	activity := Activity{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		ActivityType:   input.ActivityType,
		Duration:       input.Duration,
		CaloriesBurned: input.CaloriesBurned,
		CustomField:    input.CustomField,
		Notes:          input.Notes,
		PerformedAt:    input.PerformedAt.UTC(),
		Version:        ActivitySchemaVersion,
		CreatedAt:      now,
	}

	if err := s.repo.Create(ctx, activity, input.IdempotencyKey); err != nil {
		return nil, false, err
	}
	observability.RecordActivityLogged(activity.ActivityType, activity.CreatedAt)
	return &activity, false, nil
}

// GetActivity fetches by ID.
func (s *ActivityService) GetActivity(ctx context.Context, userID, activityID string) (*Activity, error) {
	activity, err := s.repo.Get(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// ListActivitiesByUser fetches activities newest first with cursor pagination.
func (s *ActivityService) ListActivitiesByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error) {
	return s.repo.ListByUser(ctx, userID, cursor, limit)
}
