// Package testutil provides in-memory fakes for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/exceedlab/blogd/domain"
)

// MemoryUserRepository is an in-memory domain.UserRepository with the same
// atomicity guarantees as the MongoDB implementation: refresh token rotation
// is a compare-and-swap under one lock.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

// NewMemoryUserRepository creates an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*domain.User)}
}

func (r *MemoryUserRepository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return domain.ErrDuplicateUser
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateUser
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryUserRepository) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *MemoryUserRepository) GetUserByIDAndEmail(_ context.Context, userID, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.Email != email {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *MemoryUserRepository) SetRefreshToken(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshToken = token
	return nil
}

func (r *MemoryUserRepository) UpdateRefreshToken(_ context.Context, userID, current, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.RefreshToken != current {
		return domain.ErrTokenMismatch
	}
	u.RefreshToken = next
	return nil
}

func (r *MemoryUserRepository) ClearRefreshToken(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.RefreshToken = ""
	}
	return nil
}

var _ domain.UserRepository = (*MemoryUserRepository)(nil)
