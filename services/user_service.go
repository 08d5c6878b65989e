package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/exceedlab/blogd/domain"
	"github.com/exceedlab/blogd/internal/metrics"
)

// UserService handles account management around the auth core: registration,
// profile lookup and password recovery.
type UserService struct {
	userRepo domain.UserRepository
	hasher   PasswordHasher
}

// NewUserService creates a new UserService.
func NewUserService(userRepo domain.UserRepository, hasher PasswordHasher) *UserService {
	return &UserService{
		userRepo: userRepo,
		hasher:   hasher,
	}
}

// Register hashes the password and creates the account. A taken user ID (or
// email) yields domain.ErrDuplicateUser.
func (s *UserService) Register(ctx context.Context, userID, email, nickname, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           userID,
		Email:        email,
		Nickname:     nickname,
		PasswordHash: hash,
		IsActive:     true,
		Role:         "user",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return err
	}

	metrics.UserRegisteredTotal.Inc()
	log.Info().Str("userID", userID).Msg("user registered")
	return nil
}

// GetUser returns the account for a profile view. The caller must not expose
// PasswordHash or RefreshToken.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// ForgotPassword confirms that the user ID and email belong to the same
// account, the precondition for the recovery flow.
func (s *UserService) ForgotPassword(ctx context.Context, userID, email string) error {
	_, err := s.userRepo.GetUserByIDAndEmail(ctx, userID, email)
	return err
}

// ChangePassword re-hashes and stores a new password.
func (s *UserService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, hash)
}
