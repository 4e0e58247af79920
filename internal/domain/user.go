package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrIncorrectPassword is returned when login credentials do not match.
	ErrIncorrectPassword = errors.New("incorrect password")
)

// Profile holds the optional onboarding data of a user.
type Profile struct {
	Age                 *int
	Weight              *float64
	Height              *float64
	TargetWeight        *float64
	FitnessGoals        []string
	ActivityLevel       string
	PrimaryGoal         string
	OnboardingCompleted bool
}

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository captures user persistence. Lookups return nil, nil when absent.
type UserRepository interface {
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, userID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user User) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(subject string, scopes []string) (string, time.Time, error)
}

// Session is the result of a successful register or login.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// UserService handles registration, login and profile edits.
type UserService struct {
	repo   UserRepository
	tokens TokenIssuer
	hasher PasswordHasher
	scopes []string
	now    func() time.Time
}

// NewUserService constructs a UserService. Issued tokens carry scopes.
func NewUserService(repo UserRepository, tokens TokenIssuer, hasher PasswordHasher, scopes []string) *UserService {
	return &UserService{repo: repo, tokens: tokens, hasher: hasher, scopes: scopes, now: time.Now}
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates the account and signs the user in.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := normalizeEmail(input.Email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.session(user.ID)
}

// Login checks credentials and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return s.session(user.ID)
}

func (s *UserService) session(userID string) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(userID, s.scopes)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{UserID: userID, Token: token, ExpiresAt: expiresAt}, nil
}

// GetUser fetches a user by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ProfileUpdate is a partial profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name                *string
	Age                 *int
	Weight              *float64
	Height              *float64
	TargetWeight        *float64
	FitnessGoals        []string
	ActivityLevel       *string
	PrimaryGoal         *string
	OnboardingCompleted *bool
}

// UpdateProfile applies update to the user's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	p := &user.Profile
	if update.Age != nil {
		p.Age = update.Age
	}
	if update.Weight != nil {
		p.Weight = update.Weight
	}
	if update.Height != nil {
		p.Height = update.Height
	}
	if update.TargetWeight != nil {
		p.TargetWeight = update.TargetWeight
	}
	if update.FitnessGoals != nil {
		p.FitnessGoals = update.FitnessGoals
	}
	if update.ActivityLevel != nil {
		p.ActivityLevel = *update.ActivityLevel
	}
	if update.PrimaryGoal != nil {
		p.PrimaryGoal = *update.PrimaryGoal
	}
	if update.OnboardingCompleted != nil {
		p.OnboardingCompleted = *update.OnboardingCompleted
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
