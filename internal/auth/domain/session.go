package domain

import "time"

// Session is the server-side record a refresh token points at. It is the
// authority on whether a refresh may proceed.
type Session struct {
	ID        string
	UserID    string
	UserAgent string // may be empty
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveAt reports whether the session is still alive at now.
func (s Session) ActiveAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// SessionView is a session as listed back to its owner.
type SessionView struct {
	ID        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsCurrent bool
}

// TokenPair is what register and login hand back. RefreshToken is empty when
// a refresh did not rotate it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Principal is the identity carried by a valid access token.
type Principal struct {
	UserID    string
	SessionID string
}
