package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/fitness/internal/observability"
)

//go:generate mockgen -source=$GOFILE -destination=mock_goal_repository_test.go -package=domain

// GoalRepository captures goal persistence.
//
// Get returns nil, nil when the goal does not exist for the owner. Save is a
// compare-and-swap on goal.Version: it fails with ErrGoalVersionConflict when
// the stored version differs and with ErrGoalNotFound when the goal is gone.
// On success the stored version is goal.Version+1.
type GoalRepository interface {
	Create(ctx context.Context, goal Goal) error
	Get(ctx context.Context, userID, goalID string) (*Goal, error)
	ListByUser(ctx context.Context, userID string) ([]Goal, error)
	Save(ctx context.Context, goal Goal) error
	Delete(ctx context.Context, userID, goalID string) error
}

const defaultMaxSaveAttempts = 3

// GoalService orchestrates goal CRUD and progress updates.
type GoalService struct {
	repo        GoalRepository
	maxAttempts int
	now         func() time.Time
}

// GoalServiceOption configures a GoalService.
type GoalServiceOption func(*GoalService)

// WithMaxSaveAttempts bounds how often a conflicting goal write is retried
// during a progress update.
func WithMaxSaveAttempts(n int) GoalServiceOption {
	return func(s *GoalService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) GoalServiceOption {
	return func(s *GoalService) {
		s.now = now
	}
}

// NewGoalService constructs a GoalService.
func NewGoalService(repo GoalRepository, opts ...GoalServiceOption) *GoalService {
	s := &GoalService{repo: repo, maxAttempts: defaultMaxSaveAttempts, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProgressSummary counts what a progress update did. It carries no per-goal detail.
type ProgressSummary struct {
	Evaluated int
	Changed   int
	Completed int
	Skipped   int
}

type goalOutcome struct {
	evaluated bool
	changed   bool
	completed bool
}

func (s *ProgressSummary) add(o goalOutcome) {
	if !o.evaluated {
		s.Skipped++
		return
	}
	s.Evaluated++
	if o.changed {
		s.Changed++
	}
	if o.completed {
		s.Completed++
	}
}

// UpdateProgress applies one logged activity to every active goal of userID.
// Goals are persisted one by one; the first store failure aborts the batch.
func (s *GoalService) UpdateProgress(ctx context.Context, userID string, input ActivityInput) (ProgressSummary, error) {
	start := s.now()
	var summary ProgressSummary

	goals, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		observability.RecordGoalProgressFailure()
		return summary, fmt.Errorf("list goals: %w", err)
	}

	for _, goal := range goals {
		if !goal.Active() {
			summary.Skipped++
			continue
		}
		outcome, err := s.progressGoal(ctx, goal, input)
		if err != nil {
			observability.RecordGoalProgressFailure()
			return summary, err
		}
		summary.add(outcome)
	}

	observability.RecordGoalProgress(summary.Evaluated, summary.Completed, s.now().Sub(start))
	return summary, nil
}

func (s *GoalService) progressGoal(ctx context.Context, goal Goal, input ActivityInput) (goalOutcome, error) {
	current := goal
	for attempt := 1; ; attempt++ {
		next := ApplyActivity(current, input)
		changed := next.CurrentValue != current.CurrentValue || next.Status != current.Status
		if changed {
			next.UpdatedAt = s.now().UTC()
		}

		err := s.repo.Save(ctx, next)
		switch {
		case err == nil:
			return goalOutcome{
				evaluated: true,
				changed:   changed,
				completed: next.Status == GoalStatusCompleted && current.Status != GoalStatusCompleted,
			}, nil
		case errors.Is(err, ErrGoalNotFound):
			return goalOutcome{}, nil
		case !errors.Is(err, ErrGoalVersionConflict):
			return goalOutcome{}, fmt.Errorf("save goal %s: %w", goal.ID, err)
		}

		observability.RecordGoalConflict()
		if attempt >= s.maxAttempts {
			return goalOutcome{}, fmt.Errorf("save goal %s after %d attempts: %w", goal.ID, attempt, err)
		}

		fresh, err := s.repo.Get(ctx, goal.UserID, goal.ID)
		if err != nil {
			return goalOutcome{}, fmt.Errorf("reload goal %s: %w", goal.ID, err)
		}
		if fresh == nil || !fresh.Active() {
			return goalOutcome{}, nil
		}
		current = *fresh
	}
}

// CreateGoal validates and stores a new active goal.
func (s *GoalService) CreateGoal(ctx context.Context, input CreateGoalInput) (*Goal, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	goal := Goal{
		ID:           uuid.NewString(),
		UserID:       input.UserID,
		Title:        input.Title,
		Description:  input.Description,
		FitnessGoal:  input.FitnessGoal,
		TargetValue:  input.TargetValue,
		CurrentValue: input.CurrentValue,
		Unit:         input.Unit,
		Status:       GoalStatusActive,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.TargetDate != nil {
		ts := input.TargetDate.UTC()
		goal.TargetDate = &ts
	}
	goal = settle(goal)

	if err := s.repo.Create(ctx, goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// GetGoal fetches a goal owned by userID.
func (s *GoalService) GetGoal(ctx context.Context, userID, goalID string) (*Goal, error) {
	goal, err := s.repo.Get(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, ErrGoalNotFound
	}
	return goal, nil
}

// ListGoals returns the goals of userID, optionally filtered by status.
func (s *GoalService) ListGoals(ctx context.Context, userID string, status GoalStatus) ([]Goal, error) {
	goals, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return goals, nil
	}
	out := make([]Goal, 0, len(goals))
	for _, goal := range goals {
		if goal.Status == status {
			out = append(out, goal)
		}
	}
	return out, nil
}

// UpdateGoal applies a direct user edit.
func (s *GoalService) UpdateGoal(ctx context.Context, userID, goalID string, input UpdateGoalInput) (*Goal, error) {
	goal, err := s.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if input.ExpectedVersion != nil && *input.ExpectedVersion != goal.Version {
		return nil, ErrGoalVersionConflict
	}

	next, err := input.apply(*goal)
	if err != nil {
		return nil, err
	}
	next = settle(next)
	next.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, err
	}
	next.Version++
	return &next, nil
}

// DeleteGoal removes a goal owned by userID.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	return s.repo.Delete(ctx, userID, goalID)
}

// settle completes an active goal whose progress already meets its target.
func settle(goal Goal) Goal {
	if goal.Active() && goal.CurrentValue >= goal.TargetValue {
		goal.CurrentValue = goal.TargetValue
		goal.Status = GoalStatusCompleted
	}
	return goal
}
