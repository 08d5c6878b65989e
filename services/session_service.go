package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/exceedlab/blogd/domain"
	"github.com/exceedlab/blogd/internal/blacklist"
	"github.com/exceedlab/blogd/internal/metrics"
	"github.com/exceedlab/blogd/internal/token"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService orchestrates login, refresh rotation and logout around the
// token codec, the blacklist store and the persisted per-user refresh token.
type SessionService struct {
	userRepo  domain.UserRepository
	tokens    *token.Service
	blacklist blacklist.Store
	hasher    PasswordHasher
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	userRepo domain.UserRepository,
	tokens *token.Service,
	bl blacklist.Store,
	hasher PasswordHasher,
) *SessionService {
	return &SessionService{
		userRepo:  userRepo,
		tokens:    tokens,
		blacklist: bl,
		hasher:    hasher,
	}
}

// AccessTokenTTL exposes the signed access token lifetime for cookie sizing.
func (s *SessionService) AccessTokenTTL() time.Duration { return s.tokens.AccessTokenTTL() }

// RefreshTokenTTL exposes the signed refresh token lifetime for cookie sizing.
func (s *SessionService) RefreshTokenTTL() time.Duration { return s.tokens.RefreshTokenTTL() }

// Login verifies credentials and issues a fresh token pair. The new refresh
// token overwrites whatever was stored before, so any previously issued
// refresh token stops working. Unknown user and wrong password both map to
// domain.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, userID, password string) (*TokenPair, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		log.Warn().Str("userID", userID).Msg("Login: user not found")
		metrics.LoginFailureTotal.Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		log.Warn().Str("userID", userID).Msg("Login: incorrect password")
		metrics.LoginFailureTotal.Inc()
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	metrics.LoginSuccessTotal.Inc()
	log.Info().Str("userID", user.ID).Msg("login succeeded")

	return pair, nil
}

// Refresh rotates the token pair. The presented refresh token must validate
// and must equal the one currently stored for its subject; a token that was
// already rotated (or cleared by logout) fails with domain.ErrTokenMismatch.
// Rotation persists via compare-and-swap, so of two racing refresh calls one
// wins and the other observes the mismatch.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if !s.tokens.Validate(presented) {
		return nil, domain.ErrInvalidToken
	}

	userID, err := s.tokens.Subject(presented)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		log.Warn().Str("userID", userID).Msg("Refresh: user not found for valid token")
		return nil, domain.ErrTokenMismatch
	}

	if user.RefreshToken == "" || user.RefreshToken != presented {
		log.Warn().Str("userID", userID).Msg("Refresh: presented token does not match stored token")
		return nil, domain.ErrTokenMismatch
	}

	pair, err := s.issuePair(userID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateRefreshToken(ctx, userID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, domain.ErrTokenMismatch) {
			// Lost a rotation race: another refresh already superseded us.
			return nil, domain.ErrTokenMismatch
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	metrics.TokensRefreshedTotal.Inc()
	log.Debug().Str("userID", userID).Msg("token pair rotated")

	return pair, nil
}

// Logout revokes the presented access token and clears the stored refresh
// token for its subject. A missing or invalid token is treated as already
// logged out; Logout never fails the caller for a bad token.
func (s *SessionService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" || !s.tokens.Validate(accessToken) {
		return nil
	}

	expiresAt, err := s.tokens.Expiry(accessToken)
	if err != nil {
		return nil
	}

	if err := s.blacklist.Add(ctx, accessToken, expiresAt); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	metrics.TokensRevokedTotal.Inc()

	userID, err := s.tokens.Subject(accessToken)
	if err == nil {
		if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
			log.Warn().Err(err).Str("userID", userID).Msg("failed to clear stored refresh token on logout")
		}
		log.Info().Str("userID", userID).Msg("logout succeeded, token blacklisted")
	}

	return nil
}

func (s *SessionService) issuePair(userID string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	metrics.TokensIssuedTotal.Inc()
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
