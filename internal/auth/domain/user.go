package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Email        string // normalised, unique
	PasswordHash string // argon2 encoded
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the user as shown to callers; it never carries the digest.
type PublicUser struct {
	ID        string
	Email     string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public strips the password digest.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	PasswordHash *string
	Verified     *bool
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
