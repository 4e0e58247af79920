package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const maxBodyBytes = 1 << 20

// decodeBody parses and validates a JSON body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "min", "max", "gt", "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

// RegisterRequest is the payload for POST /v1/users.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the payload for POST /v1/users/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the payload for PUT /v1/users/{id}.
type UpdateProfileRequest struct {
	Name                *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Age                 *int     `json:"age" validate:"omitempty,gt=0,lte=150"`
	Weight              *float64 `json:"weight" validate:"omitempty,gt=0"`
	Height              *float64 `json:"height" validate:"omitempty,gt=0"`
	TargetWeight        *float64 `json:"target_weight" validate:"omitempty,gt=0"`
	FitnessGoals        []string `json:"fitness_goals" validate:"omitempty,max=20,dive,max=50"`
	ActivityLevel       *string  `json:"activity_level" validate:"omitempty,max=50"`
	PrimaryGoal         *string  `json:"primary_goal" validate:"omitempty,max=50"`
	OnboardingCompleted *bool    `json:"onboarding_completed"`
}

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	ActivityType   string     `json:"activity_type" validate:"required,max=50"`
	Duration       *float64   `json:"duration" validate:"required,gte=0"`
	CaloriesBurned *float64   `json:"calories_burned" validate:"omitempty,gte=0"`
	CustomField    *float64   `json:"custom_field" validate:"omitempty,gte=0"`
	Notes          string     `json:"notes" validate:"max=1000"`
	PerformedAt    *time.Time `json:"performed_at"`
}

// ProgressRequest is the payload for PUT /v1/goals/progress.
type ProgressRequest struct {
	ActivityType   string   `json:"activity_type" validate:"required,max=50"`
	Duration       *float64 `json:"duration" validate:"omitempty,gte=0"`
	CaloriesBurned *float64 `json:"calories_burned" validate:"omitempty,gte=0"`
	CustomField    *float64 `json:"custom_field" validate:"omitempty,gte=0"`
}

// CreateGoalRequest is the payload for POST /v1/goals.
type CreateGoalRequest struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Description  string     `json:"description" validate:"max=2000"`
	FitnessGoal  string     `json:"fitness_goal" validate:"required,oneof=burn_calories distance duration frequency strength weight_loss weight_gain"`
	TargetValue  float64    `json:"target_value" validate:"gt=0"`
	CurrentValue float64    `json:"current_value" validate:"gte=0"`
	Unit         string     `json:"unit" validate:"max=20"`
	TargetDate   *time.Time `json:"target_date"`
}

// UpdateGoalRequest is the payload for PUT /v1/goals/{id}. Absent fields are unchanged.
type UpdateGoalRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string    `json:"description" validate:"omitempty,max=2000"`
	TargetValue     *float64   `json:"target_value" validate:"omitempty,gt=0"`
	CurrentValue    *float64   `json:"current_value" validate:"omitempty,gte=0"`
	Unit            *string    `json:"unit" validate:"omitempty,max=20"`
	Status          *string    `json:"status" validate:"omitempty,oneof=active completed paused"`
	TargetDate      *time.Time `json:"target_date"`
	ClearTargetDate bool       `json:"clear_target_date"`
	Version         *int64     `json:"version" validate:"omitempty,gte=1"`
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
