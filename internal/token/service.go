// Package token creates and parses the signed, time-bounded credentials used
// by the session layer. Access and refresh tokens share one structural shape
// and differ only in lifetime.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/exceedlab/blogd/domain"
)

// Service signs and verifies HS256 JWTs carrying the user ID as subject.
type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a token Service. Signing is symmetric, so the secret
// must never leave the server.
func NewService(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTokenTTL returns the signed lifetime of access tokens, used to size
// the accessToken cookie.
func (s *Service) AccessTokenTTL() time.Duration { return s.accessTTL }

// RefreshTokenTTL returns the signed lifetime of refresh tokens.
func (s *Service) RefreshTokenTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a short-lived token for the given subject.
func (s *Service) IssueAccessToken(userID string) (string, error) {
	return s.issue(userID, s.accessTTL)
}

// IssueRefreshToken signs a long-lived token for the given subject.
func (s *Service) IssueRefreshToken(userID string) (string, error) {
	return s.issue(userID, s.refreshTTL)
}

func (s *Service) issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("cannot sign token: %w", err)
	}
	return signed, nil
}

// parse verifies signature, expiry and issuer in one pass. Every failure
// cause collapses into the same error so callers (and attackers) cannot
// distinguish a bad signature from an expired token.
func (s *Service) parse(tokenValue string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenValue, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// Validate reports whether the token is well formed, correctly signed and
// not yet expired. It fails closed.
func (s *Service) Validate(tokenValue string) bool {
	_, err := s.parse(tokenValue)
	return err == nil
}

// Subject extracts the user ID from a token. Callers must have validated the
// token first; an invalid token yields domain.ErrInvalidToken.
func (s *Service) Subject(tokenValue string) (string, error) {
	claims, err := s.parse(tokenValue)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Expiry extracts the expiry timestamp of a token, used to size blacklist
// entries when the token is revoked before expiring naturally.
func (s *Service) Expiry(tokenValue string) (time.Time, error) {
	claims, err := s.parse(tokenValue)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}
