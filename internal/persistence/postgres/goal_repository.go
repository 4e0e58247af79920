package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitness/internal/domain"
	platformevents "example.com/fitness/internal/platform/events"
)

var _ domain.GoalRepository = (*GoalRepository)(nil)

const goalColumns = `goal_id, user_id, title, description, fitness_goal, target_value, current_value, unit, status, target_date, version, created_at, updated_at`

// GoalRepository persists goals with optimistic concurrency on the version column.
type GoalRepository struct {
	pool *pgxpool.Pool
}

// NewGoalRepository constructs a GoalRepository.
func NewGoalRepository(pool *pgxpool.Pool) *GoalRepository {
	return &GoalRepository{pool: pool}
}

// Create inserts a new goal. A goal created already complete also records goal.completed.
func (r *GoalRepository) Create(ctx context.Context, goal domain.Goal) error {
	const stmt = `INSERT INTO goals (goal_id, user_id, title, description, fitness_goal, target_value, current_value, unit, status, target_date, version, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	return withUserTx(ctx, r.pool, goal.UserID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, stmt,
			goal.ID,
			goal.UserID,
			goal.Title,
			goal.Description,
			string(goal.FitnessGoal),
			goal.TargetValue,
			goal.CurrentValue,
			goal.Unit,
			string(goal.Status),
			goal.TargetDate,
			goal.Version,
			goal.CreatedAt,
			goal.UpdatedAt,
		); err != nil {
			return err
		}
		if goal.Status == domain.GoalStatusCompleted {
			return insertGoalCompleted(ctx, tx, goal)
		}
		return nil
	})
}

// Get returns nil, nil when the goal does not exist for userID.
func (r *GoalRepository) Get(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id=$1 AND goal_id=$2`

	var found *domain.Goal
	err := withUserTx(ctx, r.pool, userID, func(tx pgx.Tx) error {
		goal, err := scanGoal(tx.QueryRow(ctx, query, userID, goalID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = &goal
		return nil
	})
	return found, err
}

// ListByUser returns the goals of userID, oldest first.
func (r *GoalRepository) ListByUser(ctx context.Context, userID string) ([]domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id=$1 ORDER BY created_at, goal_id`

	goals := make([]domain.Goal, 0)
	err := withUserTx(ctx, r.pool, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			goal, err := scanGoal(rows)
			if err != nil {
				return err
			}
			goals = append(goals, goal)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return goals, nil
}

// Save writes goal when the stored version still equals goal.Version and bumps
// the stored version. A transition into completed records goal.completed in the
// same transaction.
func (r *GoalRepository) Save(ctx context.Context, goal domain.Goal) error {
	const lock = `SELECT version, status FROM goals WHERE user_id=$1 AND goal_id=$2 FOR UPDATE`
	const update = `UPDATE goals
           SET title=$3, description=$4, target_value=$5, current_value=$6, unit=$7, status=$8, target_date=$9, version=version+1, updated_at=$10
         WHERE user_id=$1 AND goal_id=$2`

	return withUserTx(ctx, r.pool, goal.UserID, func(tx pgx.Tx) error {
		var (
			version int64
			status  string
		)
		if err := tx.QueryRow(ctx, lock, goal.UserID, goal.ID).Scan(&version, &status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrGoalNotFound
			}
			return err
		}
		if version != goal.Version {
			return domain.ErrGoalVersionConflict
		}

		if _, err := tx.Exec(ctx, update,
			goal.UserID,
			goal.ID,
			goal.Title,
			goal.Description,
			goal.TargetValue,
			goal.CurrentValue,
			goal.Unit,
			string(goal.Status),
			goal.TargetDate,
			goal.UpdatedAt,
		); err != nil {
			return err
		}

		if goal.Status == domain.GoalStatusCompleted && domain.GoalStatus(status) != domain.GoalStatusCompleted {
			return insertGoalCompleted(ctx, tx, goal)
		}
		return nil
	})
}

// Delete removes a goal owned by userID.
func (r *GoalRepository) Delete(ctx context.Context, userID, goalID string) error {
	return withUserTx(ctx, r.pool, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM goals WHERE user_id=$1 AND goal_id=$2`, userID, goalID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrGoalNotFound
		}
		return nil
	})
}

func insertGoalCompleted(ctx context.Context, tx pgx.Tx, goal domain.Goal) error {
	return insertOutbox(ctx, tx, platformevents.TypeGoalCompleted, goal.UserID, goal.ID, platformevents.GoalCompleted{
		GoalID:      goal.ID,
		UserID:      goal.UserID,
		FitnessGoal: string(goal.FitnessGoal),
		TargetValue: goal.TargetValue,
		Unit:        goal.Unit,
		CompletedAt: goal.UpdatedAt,
	})
}

func scanGoal(row pgx.Row) (domain.Goal, error) {
	var (
		g           domain.Goal
		fitnessGoal string
		status      string
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &fitnessGoal, &g.TargetValue, &g.CurrentValue, &g.Unit, &status, &g.TargetDate, &g.Version, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return domain.Goal{}, err
	}
	g.FitnessGoal = domain.GoalType(fitnessGoal)
	g.Status = domain.GoalStatus(status)
	if g.TargetDate != nil {
		ts := g.TargetDate.UTC()
		g.TargetDate = &ts
	}
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g, nil
}
