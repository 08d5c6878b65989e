package domain

import "context"

// UserRepository defines persistence for user accounts and their refresh
// tokens. Implementations must make UpdateRefreshToken an atomic
// compare-and-swap so concurrent refresh calls for the same user cannot leave
// the record partially updated: exactly one caller wins, the rest observe a
// mismatch.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByIDAndEmail(ctx context.Context, userID, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// SetRefreshToken unconditionally overwrites the stored refresh token
	// (login path).
	SetRefreshToken(ctx context.Context, userID, token string) error
	// UpdateRefreshToken replaces current with next only if current is still
	// the stored value. Returns ErrTokenMismatch otherwise.
	UpdateRefreshToken(ctx context.Context, userID, current, next string) error
	// ClearRefreshToken removes the stored refresh token (logout path).
	ClearRefreshToken(ctx context.Context, userID string) error
}
