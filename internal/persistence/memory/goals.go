// Package memory provides in-process repositories for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"example.com/fitness/internal/domain"
)

var _ domain.GoalRepository = (*GoalRepository)(nil)

// GoalRepository stores goals in a map guarded by a RWMutex.
type GoalRepository struct {
	mu    sync.RWMutex
	goals map[string]domain.Goal
}

// NewGoalRepository constructs an empty GoalRepository.
func NewGoalRepository() *GoalRepository {
	return &GoalRepository{goals: make(map[string]domain.Goal)}
}

// Create implements domain.GoalRepository.
func (r *GoalRepository) Create(ctx context.Context, goal domain.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.goals[goal.ID]; exists {
		return fmt.Errorf("goal %s already exists", goal.ID)
	}
	r.goals[goal.ID] = cloneGoal(goal)
	return nil
}

// Get implements domain.GoalRepository.
func (r *GoalRepository) Get(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	goal, ok := r.goals[goalID]
	if !ok || goal.UserID != userID {
		return nil, nil
	}
	out := cloneGoal(goal)
	return &out, nil
}

// ListByUser implements domain.GoalRepository. Goals are returned oldest first.
func (r *GoalRepository) ListByUser(ctx context.Context, userID string) ([]domain.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Goal, 0)
	for _, goal := range r.goals {
		if goal.UserID == userID {
			out = append(out, cloneGoal(goal))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Save implements domain.GoalRepository with a version compare-and-swap.
func (r *GoalRepository) Save(ctx context.Context, goal domain.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.goals[goal.ID]
	if !ok || stored.UserID != goal.UserID {
		return domain.ErrGoalNotFound
	}
	if stored.Version != goal.Version {
		return domain.ErrGoalVersionConflict
	}

	goal.Version++
	goal.CreatedAt = stored.CreatedAt
	r.goals[goal.ID] = cloneGoal(goal)
	return nil
}

// Delete implements domain.GoalRepository.
func (r *GoalRepository) Delete(ctx context.Context, userID, goalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	goal, ok := r.goals[goalID]
	if !ok || goal.UserID != userID {
		return domain.ErrGoalNotFound
	}
	delete(r.goals, goalID)
	return nil
}

func cloneGoal(goal domain.Goal) domain.Goal {
	if goal.TargetDate != nil {
		ts := *goal.TargetDate
		goal.TargetDate = &ts
	}
	return goal
}
