package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrGoalNotFound is returned when a goal cannot be located for the owner.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrGoalVersionConflict is returned when a goal changed between read and write.
	ErrGoalVersionConflict = errors.New("goal version conflict")
	// ErrInvalidGoal wraps field level validation failures for goals.
	ErrInvalidGoal = errors.New("invalid goal")
)

// GoalType tags what a goal measures and therefore how activities move it.
type GoalType string

const (
	GoalTypeBurnCalories GoalType = "burn_calories"
	GoalTypeDistance     GoalType = "distance"
	GoalTypeDuration     GoalType = "duration"
	GoalTypeFrequency    GoalType = "frequency"
	GoalTypeStrength     GoalType = "strength"
	GoalTypeWeightLoss   GoalType = "weight_loss"
	GoalTypeWeightGain   GoalType = "weight_gain"
)

// KnownGoalTypes lists every tag accepted when creating a goal.
var KnownGoalTypes = []GoalType{
	GoalTypeBurnCalories,
	GoalTypeDistance,
	GoalTypeDuration,
	GoalTypeFrequency,
	GoalTypeStrength,
	GoalTypeWeightLoss,
	GoalTypeWeightGain,
}

// Valid reports whether t is one of KnownGoalTypes.
func (t GoalType) Valid() bool {
	for _, known := range KnownGoalTypes {
		if t == known {
			return true
		}
	}
	return false
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
)

// Valid reports whether s is a known status.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusPaused:
		return true
	}
	return false
}

// Goal is a user defined fitness target.
//
// Version is bumped by the store on every successful Save and is used as the
// expected version for compare-and-swap writes.
type Goal struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	FitnessGoal  GoalType
	TargetValue  float64
	CurrentValue float64
	Unit         string
	Status       GoalStatus
	TargetDate   *time.Time
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether progress updates may touch the goal.
func (g Goal) Active() bool {
	return g.Status == GoalStatusActive
}

// CreateGoalInput captures a new goal request from the API layer.
type CreateGoalInput struct {
	UserID       string
	Title        string
	Description  string
	FitnessGoal  GoalType
	TargetValue  float64
	CurrentValue float64
	Unit         string
	TargetDate   *time.Time
}

func (in CreateGoalInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidGoal)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidGoal)
	}
	if !in.FitnessGoal.Valid() {
		return fmt.Errorf("%w: unknown fitness goal %q", ErrInvalidGoal, in.FitnessGoal)
	}
	if in.TargetValue <= 0 {
		return fmt.Errorf("%w: target value must be > 0", ErrInvalidGoal)
	}
	if in.CurrentValue < 0 {
		return fmt.Errorf("%w: current value must be >= 0", ErrInvalidGoal)
	}
	return nil
}

// UpdateGoalInput is a partial edit of a goal. Nil fields are left unchanged.
// ExpectedVersion, when set, must match the stored version.
type UpdateGoalInput struct {
	Title           *string
	Description     *string
	TargetValue     *float64
	CurrentValue    *float64
	Unit            *string
	Status          *GoalStatus
	TargetDate      *time.Time
	ClearTargetDate bool
	ExpectedVersion *int64
}

func (in UpdateGoalInput) apply(goal Goal) (Goal, error) {
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return goal, fmt.Errorf("%w: title must not be empty", ErrInvalidGoal)
		}
		goal.Title = *in.Title
	}
	if in.Description != nil {
		goal.Description = *in.Description
	}
	if in.TargetValue != nil {
		if *in.TargetValue <= 0 {
			return goal, fmt.Errorf("%w: target value must be > 0", ErrInvalidGoal)
		}
		goal.TargetValue = *in.TargetValue
	}
	if in.CurrentValue != nil {
		if *in.CurrentValue < 0 {
			return goal, fmt.Errorf("%w: current value must be >= 0", ErrInvalidGoal)
		}
		goal.CurrentValue = *in.CurrentValue
	}
	if in.Unit != nil {
		goal.Unit = *in.Unit
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return goal, fmt.Errorf("%w: unknown status %q", ErrInvalidGoal, *in.Status)
		}
		if goal.Status == GoalStatusCompleted && *in.Status != GoalStatusCompleted {
			return goal, fmt.Errorf("%w: completed goals cannot be reopened", ErrInvalidGoal)
		}
		goal.Status = *in.Status
	}
	if in.ClearTargetDate {
		goal.TargetDate = nil
	} else if in.TargetDate != nil {
		ts := in.TargetDate.UTC()
		goal.TargetDate = &ts
	}
	return goal, nil
}
