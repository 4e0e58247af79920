package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"example.com/fitness/internal/domain"
	platformevents "example.com/fitness/internal/platform/events"
)

// ProgressUpdater applies one activity to a user's active goals.
type ProgressUpdater interface {
	UpdateProgress(ctx context.Context, userID string, input domain.ActivityInput) (domain.ProgressSummary, error)
}

// GoalProgressHandler applies activity.logged events to goals. Other event
// types pass through untouched.
type GoalProgressHandler struct {
	goals ProgressUpdater
}

// NewGoalProgressHandler constructs a GoalProgressHandler.
func NewGoalProgressHandler(goals ProgressUpdater) *GoalProgressHandler {
	return &GoalProgressHandler{goals: goals}
}

// Handle implements Handler.
func (h *GoalProgressHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != platformevents.TypeActivityLogged {
		return nil
	}

	var event platformevents.ActivityLogged
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode %s: %w", msg.EventType, err)
	}
	if event.UserID == "" {
		event.UserID = msg.UserID
	}

	input := domain.ActivityInput{
		ActivityType: event.ActivityType,
		Duration:     event.Duration,
	}
	if event.CaloriesBurned != nil {
		input.CaloriesBurned = *event.CaloriesBurned
	}
	if event.CustomField != nil {
		input.CustomField = *event.CustomField
	}

	summary, err := h.goals.UpdateProgress(ctx, event.UserID, input)
	if err != nil {
		return fmt.Errorf("update goals for activity %s: %w", event.ActivityID, err)
	}
	log.WithFields(log.Fields{
		"activity_id": event.ActivityID,
		"user_id":     event.UserID,
		"evaluated":   summary.Evaluated,
		"completed":   summary.Completed,
	}).Debug("goal progress applied")
	return nil
}
