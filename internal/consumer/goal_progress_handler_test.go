package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/fitness/internal/domain"
)

type recordingUpdater struct {
	userID string
	input  domain.ActivityInput
	calls  int
	err    error
}

func (u *recordingUpdater) UpdateProgress(_ context.Context, userID string, input domain.ActivityInput) (domain.ProgressSummary, error) {
	u.calls++
	u.userID = userID
	u.input = input
	return domain.ProgressSummary{Evaluated: 1}, u.err
}

func TestGoalProgressHandlerAppliesActivityLogged(t *testing.T) {
	updater := &recordingUpdater{}
	handler := NewGoalProgressHandler(updater)

	err := handler.Handle(context.Background(), Message{
		EventType: "activity.logged",
		UserID:    "header-user",
		Payload:   []byte(`{"activity_id":"a1","user_id":"u1","activity_type":"Running","duration":30,"calories_burned":250,"performed_at":"2024-05-01T10:00:00Z","version":"v1"}`),
	})
	require.NoError(t, err)

	require.Equal(t, 1, updater.calls)
	assert.Equal(t, "u1", updater.userID)
	assert.Equal(t, domain.ActivityInput{ActivityType: "Running", Duration: 30, CaloriesBurned: 250}, updater.input)
}

func TestGoalProgressHandlerFallsBackToHeaderUser(t *testing.T) {
	updater := &recordingUpdater{}
	err := NewGoalProgressHandler(updater).Handle(context.Background(), Message{
		EventType: "activity.logged",
		UserID:    "header-user",
		Payload:   []byte(`{"activity_id":"a1","activity_type":"strength","duration":45,"custom_field":80}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "header-user", updater.userID)
	assert.Equal(t, 80.0, updater.input.CustomField)
}

func TestGoalProgressHandlerIgnoresOtherEvents(t *testing.T) {
	updater := &recordingUpdater{}
	require.NoError(t, NewGoalProgressHandler(updater).Handle(context.Background(), Message{
		EventType: "goal.completed",
		Payload:   []byte(`not json`),
	}))
	require.Zero(t, updater.calls)
}

func TestGoalProgressHandlerErrors(t *testing.T) {
	updater := &recordingUpdater{err: errors.New("store down")}
	handler := NewGoalProgressHandler(updater)

	err := handler.Handle(context.Background(), Message{EventType: "activity.logged", Payload: []byte(`{`)})
	require.Error(t, err)
	require.Zero(t, updater.calls)

	err = handler.Handle(context.Background(), Message{EventType: "activity.logged", Payload: []byte(`{"activity_id":"a2","user_id":"u1"}`)})
	require.ErrorIs(t, err, updater.err)
}
