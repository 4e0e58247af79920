package memory

import (
	"context"
	"sync"

	"example.com/fitness/internal/domain"
)

var _ domain.UserRepository = (*UserRepository)(nil)

// UserRepository stores users keyed by id with a unique email index.
type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byEmail map[string]string
}

// NewUserRepository constructs an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

// Create implements domain.UserRepository.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return domain.ErrEmailTaken
	}
	r.users[user.ID] = cloneUser(user)
	r.byEmail[user.Email] = user.ID
	return nil
}

// Get implements domain.UserRepository.
func (r *UserRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	out := cloneUser(user)
	return &out, nil
}

// GetByEmail implements domain.UserRepository.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	out := cloneUser(r.users[id])
	return &out, nil
}

// Update implements domain.UserRepository. Email and password are immutable here.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	stored.Name = user.Name
	stored.Profile = user.Profile
	stored.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = cloneUser(stored)
	return nil
}

func cloneUser(user domain.User) domain.User {
	if user.Profile.FitnessGoals != nil {
		user.Profile.FitnessGoals = append([]string(nil), user.Profile.FitnessGoals...)
	}
	return user
}
