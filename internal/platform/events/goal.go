package events

import "time"

// GoalCompleted is emitted when a progress update moves a goal to completed.
type GoalCompleted struct {
	GoalID      string    `json:"goal_id"`
	UserID      string    `json:"user_id"`
	FitnessGoal string    `json:"fitness_goal"`
	TargetValue float64   `json:"target_value"`
	Unit        string    `json:"unit,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
