package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, time.April, 12, 9, 0, 0, 0, time.UTC)

func newTestGoalService(t *testing.T, opts ...GoalServiceOption) (*GoalService, *MockGoalRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := NewMockGoalRepository(ctrl)
	opts = append([]GoalServiceOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewGoalService(repo, opts...), repo
}

func goalWithID(id string, t GoalType, status GoalStatus, current, target float64) Goal {
	return Goal{ID: id, UserID: "user-1", FitnessGoal: t, Status: status, CurrentValue: current, TargetValue: target, Version: 3}
}

func TestUpdateProgressPersistsEveryActiveGoal(t *testing.T) {
	svc, repo := newTestGoalService(t)
	ctx := context.Background()

	goals := []Goal{
		goalWithID("calories", GoalTypeBurnCalories, GoalStatusActive, 80, 100),
		goalWithID("paused", GoalTypeDistance, GoalStatusPaused, 1, 10),
		goalWithID("weight", GoalTypeWeightLoss, GoalStatusActive, 3, 5),
		goalWithID("distance", GoalTypeDistance, GoalStatusActive, 2, 10),
	}
	repo.EXPECT().ListByUser(ctx, "user-1").Return(goals, nil)

	saved := make(map[string]Goal)
	repo.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, g Goal) error {
		saved[g.ID] = g
		return nil
	}).Times(3)

	summary, err := svc.UpdateProgress(ctx, "user-1", ActivityInput{ActivityType: "weightlifting", CaloriesBurned: 30, CustomField: 90})
	require.NoError(t, err)
	assert.Equal(t, ProgressSummary{Evaluated: 3, Changed: 1, Completed: 1, Skipped: 1}, summary)

	require.NotContains(t, saved, "paused")

	calories := saved["calories"]
	assert.Equal(t, 100.0, calories.CurrentValue)
	assert.Equal(t, GoalStatusCompleted, calories.Status)
	assert.Equal(t, int64(3), calories.Version, "repository receives the expected version")
	assert.Equal(t, fixedNow, calories.UpdatedAt)

	assert.Equal(t, goals[2], saved["weight"])
	assert.Equal(t, goals[3], saved["distance"], "non-endurance activity leaves distance untouched")
}

func TestUpdateProgressAbortsOnStoreFailure(t *testing.T) {
	svc, repo := newTestGoalService(t)
	ctx := context.Background()

	goals := []Goal{
		goalWithID("g1", GoalTypeDuration, GoalStatusActive, 0, 100),
		goalWithID("g2", GoalTypeDuration, GoalStatusActive, 0, 100),
		goalWithID("g3", GoalTypeDuration, GoalStatusActive, 0, 100),
	}
	storeErr := errors.New("connection refused")

	gomock.InOrder(
		repo.EXPECT().ListByUser(ctx, "user-1").Return(goals, nil),
		repo.EXPECT().Save(ctx, gomock.Any()).Return(nil),
		repo.EXPECT().Save(ctx, gomock.Any()).Return(storeErr),
	)

	summary, err := svc.UpdateProgress(ctx, "user-1", ActivityInput{ActivityType: "running", Duration: 30})
	require.ErrorIs(t, err, storeErr)
	assert.Contains(t, err.Error(), "g2")
	assert.Equal(t, 1, summary.Evaluated)
}

func TestUpdateProgressListFailure(t *testing.T) {
	svc, repo := newTestGoalService(t)
	ctx := context.Background()

	repo.EXPECT().ListByUser(ctx, "user-1").Return(nil, errors.New("timeout"))

	_, err := svc.UpdateProgress(ctx, "user-1", ActivityInput{})
	require.ErrorContains(t, err, "list goals")
}

func TestUpdateProgressRetriesVersionConflictOnFreshGoal(t *testing.T) {
	svc, repo := newTestGoalService(t)
	ctx := context.Background()

	stale := goalWithID("g1", GoalTypeDuration, GoalStatusActive, 10, 100)
	fresh := stale
	fresh.CurrentValue = 40
	fresh.Version = 4

	var lastSaved Goal
	gomock.InOrder(
		repo.EXPECT().ListByUser(ctx, "user-1").Return([]Goal{stale}, nil),
		repo.EXPECT().Save(ctx, gomock.Any()).Return(ErrGoalVersionConflict),
		repo.EXPECT().Get(ctx, "user-1", "g1").Return(&fresh, nil),
		repo.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, g Goal) error {
			lastSaved = g
			return nil
		}),
	)

	summary, err := svc.UpdateProgress(ctx, "user-1", ActivityInput{ActivityType: "yoga", Duration: 30})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Evaluated)
	assert.Equal(t, 70.0, lastSaved.CurrentValue)
	assert.Equal(t, int64(4), lastSaved.Version)
}

func TestUpdateProgressGivesUpAfterMaxAttempts(t *testing.T) {
	svc, repo := newTestGoalService(t, WithMaxSaveAttempts(2))
	ctx := context.Background()

	goal := goalWithID("g1", GoalTypeFrequency, GoalStatusActive, 0, 10)
	repo.EXPECT().ListByUser(ctx, "user-1").Return([]Goal{goal}, nil)
	repo.EXPECT().Save(ctx, gomock.Any()).Return(ErrGoalVersionConflict).Times(2)
	repo.EXPECT().Get(ctx, "user-1", "g1").Return(&goal, nil).Times(1)

	_, err := svc.UpdateProgress(ctx, "user-1", ActivityInput{ActivityType: "workout"})
	require.ErrorIs(t, err, ErrGoalVersionConflict)
}

func TestUpdateProgressSkipsGoalsGoneMidBatch(t *testing.T) {
	svc, repo := newTestGoalService(t)
	ctx := context.Background()

	deleted := goalWithID("deleted", GoalTypeDuration, GoalStatusActive, 0, 100)
	paused := goalWithID("paused-later", GoalTypeDuration, GoalStatusActive, 0, 100)
	pausedFresh := paused
	pausedFresh.Status = GoalStatusPaused

	repo.EXPECT().ListByUser(ctx, "user-1").Return([]Goal{deleted, paused}, nil)
	repo.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, g Goal) error {
		if g.ID == "deleted" {
			return ErrGoalNotFound
		}
		return ErrGoalVersionConflict
	}).Times(2)
	repo.EXPECT().Get(ctx, "user-1", "paused-later").Return(&pausedFresh, nil)

	summary, err := svc.UpdateProgress(ctx, "user-1", ActivityInput{ActivityType: "yoga", Duration: 10})
	require.NoError(t, err)
	assert.Equal(t, ProgressSummary{Skipped: 2}, summary)
}

func TestCreateGoal(t *testing.T) {
	svc, repo := newTestGoalService(t)
	ctx := context.Background()

	var stored Goal
	repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, g Goal) error {
		stored = g
		return nil
	})

	goal, err := svc.CreateGoal(ctx, CreateGoalInput{
		UserID:      "user-1",
		Title:       "Run 50 km",
		FitnessGoal: GoalTypeDistance,
		TargetValue: 50,
		Unit:        "km",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, goal.ID)
	assert.Equal(t, GoalStatusActive, goal.Status)
	assert.Equal(t, int64(1), goal.Version)
	assert.Equal(t, *goal, stored)
}

func TestCreateGoalRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestGoalService(t)
	ctx := context.Background()

	cases := []CreateGoalInput{
		{UserID: "user-1", Title: "x", FitnessGoal: "swim_laps", TargetValue: 1},
		{UserID: "user-1", Title: "x", FitnessGoal: GoalTypeDuration, TargetValue: 0},
		{UserID: "user-1", Title: " ", FitnessGoal: GoalTypeDuration, TargetValue: 10},
		{UserID: "user-1", Title: "x", FitnessGoal: GoalTypeDuration, TargetValue: 10, CurrentValue: -1},
	}
	for _, in := range cases {
		_, err := svc.CreateGoal(ctx, in)
		require.ErrorIs(t, err, ErrInvalidGoal)
	}
}

func TestUpdateGoal(t *testing.T) {
	ctx := context.Background()

	t.Run("pause and edit", func(t *testing.T) {
		svc, repo := newTestGoalService(t)
		goal := goalWithID("g1", GoalTypeDuration, GoalStatusActive, 10, 100)
		repo.EXPECT().Get(ctx, "user-1", "g1").Return(&goal, nil)
		repo.EXPECT().Save(ctx, gomock.Any()).Return(nil)

		paused := GoalStatusPaused
		title := "Move more"
		updated, err := svc.UpdateGoal(ctx, "user-1", "g1", UpdateGoalInput{Status: &paused, Title: &title})
		require.NoError(t, err)
		assert.Equal(t, GoalStatusPaused, updated.Status)
		assert.Equal(t, "Move more", updated.Title)
		assert.Equal(t, int64(4), updated.Version)
	})

	t.Run("direct edit past target completes", func(t *testing.T) {
		svc, repo := newTestGoalService(t)
		goal := goalWithID("g1", GoalTypeDuration, GoalStatusActive, 10, 100)
		repo.EXPECT().Get(ctx, "user-1", "g1").Return(&goal, nil)
		repo.EXPECT().Save(ctx, gomock.Any()).Return(nil)

		current := 150.0
		updated, err := svc.UpdateGoal(ctx, "user-1", "g1", UpdateGoalInput{CurrentValue: &current})
		require.NoError(t, err)
		assert.Equal(t, 100.0, updated.CurrentValue)
		assert.Equal(t, GoalStatusCompleted, updated.Status)
	})

	t.Run("stale expected version", func(t *testing.T) {
		svc, repo := newTestGoalService(t)
		goal := goalWithID("g1", GoalTypeDuration, GoalStatusActive, 10, 100)
		repo.EXPECT().Get(ctx, "user-1", "g1").Return(&goal, nil)

		expected := int64(2)
		_, err := svc.UpdateGoal(ctx, "user-1", "g1", UpdateGoalInput{ExpectedVersion: &expected})
		require.ErrorIs(t, err, ErrGoalVersionConflict)
	})

	t.Run("completed goals stay completed", func(t *testing.T) {
		svc, repo := newTestGoalService(t)
		goal := goalWithID("g1", GoalTypeDuration, GoalStatusCompleted, 100, 100)
		repo.EXPECT().Get(ctx, "user-1", "g1").Return(&goal, nil)

		active := GoalStatusActive
		_, err := svc.UpdateGoal(ctx, "user-1", "g1", UpdateGoalInput{Status: &active})
		require.ErrorIs(t, err, ErrInvalidGoal)
	})

	t.Run("missing goal", func(t *testing.T) {
		svc, repo := newTestGoalService(t)
		repo.EXPECT().Get(ctx, "user-1", "nope").Return(nil, nil)

		_, err := svc.UpdateGoal(ctx, "user-1", "nope", UpdateGoalInput{})
		require.ErrorIs(t, err, ErrGoalNotFound)
	})
}

func TestListGoalsFiltersByStatus(t *testing.T) {
	svc, repo := newTestGoalService(t)
	ctx := context.Background()

	repo.EXPECT().ListByUser(ctx, "user-1").Return([]Goal{
		goalWithID("a", GoalTypeDuration, GoalStatusActive, 0, 1),
		goalWithID("b", GoalTypeDuration, GoalStatusCompleted, 1, 1),
	}, nil).Times(2)

	all, err := svc.ListGoals(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := svc.ListGoals(ctx, "user-1", GoalStatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "b", completed[0].ID)
}
