// Package events defines the event payloads published by the fitness API.
package events

import "time"

// Event types.
const (
	TypeActivityLogged = "activity.logged"
	TypeGoalCompleted  = "goal.completed"
)

// ActivityLogged is emitted when a new activity is persisted.
type ActivityLogged struct {
	ActivityID     string    `json:"activity_id"`
	UserID         string    `json:"user_id"`
	ActivityType   string    `json:"activity_type"`
	Duration       float64   `json:"duration"`
	CaloriesBurned *float64  `json:"calories_burned,omitempty"`
	CustomField    *float64  `json:"custom_field,omitempty"`
	PerformedAt    time.Time `json:"performed_at"`
	Version        string    `json:"version"`
}
