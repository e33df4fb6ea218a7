package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the SQL drivers
// (sqlite, postgres). Users, sessions and verification codes are
// independent collections; nothing spans them transactionally.
type Store interface {
	Users() Users
	Sessions() Sessions
	VerificationCodes() VerificationCodes

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// UserExistsByEmail reports whether a user with the normalised email exists.
	UserExistsByEmail(ctx context.Context, email string) (bool, error)

	// CreateUser inserts a new user. A duplicate email is ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByEmail looks a user up by normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// UpdateUser applies the non-nil fields of upd, bumps updated_at to now
	// and returns the updated record.
	UpdateUser(ctx context.Context, id string, upd domain.UserUpdate, now time.Time) (domain.User, error)
}

// SessionFilter selects a user's sessions.
type SessionFilter struct {
	UserID   string
	ActiveAt time.Time // only sessions with expires_at > ActiveAt; zero means all
}

type Sessions interface {
	// CreateSession inserts a new session.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns the session regardless of expiry.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ListSessions returns the matching sessions, newest first.
	ListSessions(ctx context.Context, f SessionFilter) ([]domain.Session, error)

	// ExtendSession moves expires_at from prev to next only if it still
	// equals prev. It reports whether this call performed the update.
	ExtendSession(ctx context.Context, id string, prev, next, now time.Time) (bool, error)

	// DeleteSession removes a session; a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// DeleteUserSession removes a session only if it belongs to userID.
	// Returns ErrNotFound when nothing matched.
	DeleteUserSession(ctx context.Context, userID, id string) error

	// DeleteSessionsByUser removes every session of a user.
	DeleteSessionsByUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// CodeFilter selects a single redeemable code.
type CodeFilter struct {
	ID      string
	Purpose domain.CodePurpose
	ValidAt time.Time // expires_at > ValidAt
}

// CodeCountFilter counts codes a user was issued recently.
type CodeCountFilter struct {
	UserID       string
	Purpose      domain.CodePurpose
	CreatedAfter time.Time
}

type VerificationCodes interface {
	// CreateCode inserts a new code.
	CreateCode(ctx context.Context, c domain.VerificationCode) error

	// FindCode returns the code matching every filter field, or ErrNotFound.
	FindCode(ctx context.Context, f CodeFilter) (domain.VerificationCode, error)

	// CountCodes counts codes matching the filter.
	CountCodes(ctx context.Context, f CodeCountFilter) (int, error)

	// DeleteCode removes a code. Returns ErrNotFound if it was already gone,
	// which lets concurrent redeemers detect they lost.
	DeleteCode(ctx context.Context, id string) error

	// DeleteExpiredCodes is housekeeping.
	DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}
