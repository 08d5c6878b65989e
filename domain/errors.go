package domain

import "errors"

// Closed set of auth failure kinds. Callers branch with errors.Is; the HTTP
// layer collapses all of them into a uniform unauthorized response so the
// failure cause is never distinguishable from outside.
var (
	// ErrInvalidCredentials covers both unknown user and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, unsigned and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenMismatch means a structurally valid refresh token that is not
	// the one currently stored for its subject (already rotated or cleared).
	ErrTokenMismatch = errors.New("refresh token mismatch")
	// ErrTokenRevoked means the access token was blacklisted before its
	// natural expiry.
	ErrTokenRevoked = errors.New("token revoked")

	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)
