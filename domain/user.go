package domain

import "time"

// User represents a registered account. The stored RefreshToken is the only
// session state kept server-side: at most one refresh token is valid per
// user, and persisting a new one supersedes the previous value.
type User struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Nickname     string    `bson:"nickname,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	IsActive     bool      `bson:"is_active"`
	Role         string    `bson:"role,omitempty"`
	RefreshToken string    `bson:"refresh_token,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}
