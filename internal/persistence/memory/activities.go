package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"example.com/fitness/internal/domain"
)

var _ domain.ActivityRepository = (*ActivityRepository)(nil)

// ActivityRepository keeps activities per user plus an idempotency index.
type ActivityRepository struct {
	mu          sync.RWMutex
	activities  map[string]domain.Activity
	idempotency map[string]string
}

// NewActivityRepository constructs an empty ActivityRepository.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{
		activities:  make(map[string]domain.Activity),
		idempotency: make(map[string]string),
	}
}

func idempotencyIndex(userID, key string) string {
	return userID + "\x00" + key
}

// FindByIdempotency implements domain.ActivityRepository.
func (r *ActivityRepository) FindByIdempotency(ctx context.Context, userID, idempotencyKey string) (*domain.Activity, error) {
	if idempotencyKey == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idempotency[idempotencyIndex(userID, idempotencyKey)]
	if !ok {
		return nil, nil
	}
	activity := r.activities[id]
	return &activity, nil
}

// Create implements domain.ActivityRepository.
func (r *ActivityRepository) Create(ctx context.Context, activity domain.Activity, idempotencyKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.activities[activity.ID]; exists {
		return fmt.Errorf("activity %s already exists", activity.ID)
	}
	if idempotencyKey != "" {
		index := idempotencyIndex(activity.UserID, idempotencyKey)
		if _, taken := r.idempotency[index]; taken {
			return fmt.Errorf("idempotency key %q already used", idempotencyKey)
		}
		r.idempotency[index] = activity.ID
	}
	r.activities[activity.ID] = activity
	return nil
}

// Get implements domain.ActivityRepository.
func (r *ActivityRepository) Get(ctx context.Context, userID, activityID string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activity, ok := r.activities[activityID]
	if !ok || activity.UserID != userID {
		return nil, nil
	}
	return &activity, nil
}

// ListByUser implements domain.ActivityRepository, newest first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Activity, 0)
	for _, activity := range r.activities {
		if activity.UserID == userID {
			all = append(all, activity)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return newer(all[i].PerformedAt, all[i].ID, all[j].PerformedAt, all[j].ID)
	})

	results := make([]domain.Activity, 0, limit)
	for _, activity := range all {
		if cursor != nil && !newer(cursor.PerformedAt, cursor.ID, activity.PerformedAt, activity.ID) {
			continue
		}
		if len(results) == limit {
			break
		}
		results = append(results, activity)
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{PerformedAt: last.PerformedAt, ID: last.ID}
	}
	return results, next, nil
}

// newer reports whether (aAt, aID) sorts before (bAt, bID) in newest-first order.
func newer(aAt time.Time, aID string, bAt time.Time, bID string) bool {
	if aAt.Equal(bAt) {
		return aID > bID
	}
	return aAt.After(bAt)
}
