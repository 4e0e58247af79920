package api

import (
	"time"

	"example.com/fitness/internal/domain"
)

// GoalView is the JSON shape of a goal.
type GoalView struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	FitnessGoal  string     `json:"fitness_goal"`
	TargetValue  float64    `json:"target_value"`
	CurrentValue float64    `json:"current_value"`
	Unit         string     `json:"unit,omitempty"`
	Status       string     `json:"status"`
	TargetDate   *time.Time `json:"target_date,omitempty"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toGoalView(g domain.Goal) GoalView {
	return GoalView{
		ID:           g.ID,
		UserID:       g.UserID,
		Title:        g.Title,
		Description:  g.Description,
		FitnessGoal:  string(g.FitnessGoal),
		TargetValue:  g.TargetValue,
		CurrentValue: g.CurrentValue,
		Unit:         g.Unit,
		Status:       string(g.Status),
		TargetDate:   g.TargetDate,
		Version:      g.Version,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

// ListGoalsResponse packages list results.
type ListGoalsResponse struct {
	Items []GoalView `json:"items"`
}

// ProgressResponse reports what a progress update did. It carries counts only.
type ProgressResponse struct {
	Message   string `json:"message"`
	Evaluated int    `json:"evaluated"`
	Completed int    `json:"completed"`
}

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ActivityID     string    `json:"activity_id"`
	UserID         string    `json:"user_id"`
	ActivityType   string    `json:"activity_type"`
	Duration       float64   `json:"duration"`
	CaloriesBurned *float64  `json:"calories_burned,omitempty"`
	CustomField    *float64  `json:"custom_field,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	PerformedAt    time.Time `json:"performed_at"`
	Version        string    `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:     a.ID,
		UserID:         a.UserID,
		ActivityType:   a.ActivityType,
		Duration:       a.Duration,
		CaloriesBurned: a.CaloriesBurned,
		CustomField:    a.CustomField,
		Notes:          a.Notes,
		PerformedAt:    a.PerformedAt,
		Version:        a.Version,
		CreatedAt:      a.CreatedAt,
	}
}

// CreateActivityResponse is the activity plus whether the request was a replay.
type CreateActivityResponse struct {
	ActivityView
	Replay bool `json:"idempotent_replay"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// UserView is a user without credentials.
type UserView struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Age                 *int      `json:"age,omitempty"`
	Weight              *float64  `json:"weight,omitempty"`
	Height              *float64  `json:"height,omitempty"`
	TargetWeight        *float64  `json:"target_weight,omitempty"`
	FitnessGoals        []string  `json:"fitness_goals"`
	ActivityLevel       string    `json:"activity_level,omitempty"`
	PrimaryGoal         string    `json:"primary_goal,omitempty"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toUserView(u domain.User) UserView {
	goals := u.Profile.FitnessGoals
	if goals == nil {
		goals = []string{}
	}
	return UserView{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		Age:                 u.Profile.Age,
		Weight:              u.Profile.Weight,
		Height:              u.Profile.Height,
		TargetWeight:        u.Profile.TargetWeight,
		FitnessGoals:        goals,
		ActivityLevel:       u.Profile.ActivityLevel,
		PrimaryGoal:         u.Profile.PrimaryGoal,
		OnboardingCompleted: u.Profile.OnboardingCompleted,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

// RegisterResponse is returned by POST /v1/users.
type RegisterResponse struct {
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse is returned by POST /v1/users/login.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
