package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitness/internal/domain"
)

var _ domain.UserRepository = (*UserRepository)(nil)

const userColumns = `user_id, name, email, password_hash, age, weight, height, target_weight, fitness_goals, activity_level, primary_goal, onboarding_completed, created_at, updated_at`

// UserRepository stores accounts. Users are looked up before a session exists,
// so these queries run outside the row level security scope.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts user. A duplicate email maps to domain.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (` + userColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	p := user.Profile
	_, err := r.pool.Exec(ctx, stmt,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		p.Age,
		p.Weight,
		p.Height,
		p.TargetWeight,
		fitnessGoals(p.FitnessGoals),
		p.ActivityLevel,
		p.PrimaryGoal,
		p.OnboardingCompleted,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

// Get fetches a user by id.
func (r *UserRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, userID)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Update writes the name and profile. Email and password hash are not touched.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	const stmt = `UPDATE users
           SET name=$2, age=$3, weight=$4, height=$5, target_weight=$6, fitness_goals=$7,
               activity_level=$8, primary_goal=$9, onboarding_completed=$10, updated_at=$11
         WHERE user_id=$1`

	p := user.Profile
	tag, err := r.pool.Exec(ctx, stmt,
		user.ID,
		user.Name,
		p.Age,
		p.Weight,
		p.Height,
		p.TargetWeight,
		fitnessGoals(p.FitnessGoals),
		p.ActivityLevel,
		p.PrimaryGoal,
		p.OnboardingCompleted,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func fitnessGoals(goals []string) []string {
	if goals == nil {
		return []string{}
	}
	return goals
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	p := &u.Profile
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &p.Age, &p.Weight, &p.Height, &p.TargetWeight, &p.FitnessGoals, &p.ActivityLevel, &p.PrimaryGoal, &p.OnboardingCompleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}
