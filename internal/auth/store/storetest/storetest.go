// Package storetest is a conformance suite every store driver runs against
// itself, so the sqlite, postgres and redis backends agree on semantics.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/aussiebroadwan/authd/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Harness is one freshly initialised backend. Users and Codes may be nil for
// backends that only hold sessions.
type Harness struct {
	Users    store.Users
	Sessions store.Sessions
	Codes    store.VerificationCodes
}

// Factory returns an empty backend for a single test.
type Factory func(t *testing.T) Harness

// Base is a fixed instant aligned to whole milliseconds.
var Base = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

// NewUser inserts a user (when the harness has a user store) and returns it.
func NewUser(t *testing.T, h Harness, email string) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.NewAt(Base).String(),
		Email:        email,
		PasswordHash: "$argon2id$stub",
		CreatedAt:    Base,
		UpdatedAt:    Base,
	}
	if h.Users != nil {
		require.NoError(t, h.Users.CreateUser(context.Background(), u))
	}
	return u
}

func newSession(userID string, created time.Time, ttl time.Duration) domain.Session {
	return domain.Session{
		ID:        idx.NewAt(created).String(),
		UserID:    userID,
		UserAgent: "test-agent/1.0",
		ExpiresAt: created.Add(ttl),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// RunUsers exercises store.Users.
func RunUsers(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "alice@example.com")

		exists, err := h.Users.UserExistsByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = h.Users.UserExistsByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		require.False(t, exists)

		byEmail, err := h.Users.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, u, byEmail)

		byID, err := h.Users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u, byID)
	})

	t.Run("missing user", func(t *testing.T) {
		h := factory(t)
		_, err := h.Users.GetUserByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = h.Users.GetUserByEmail(ctx, "nope@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		h := factory(t)
		NewUser(t, h, "dup@example.com")

		err := h.Users.CreateUser(ctx, domain.User{
			ID:           idx.New().String(),
			Email:        "dup@example.com",
			PasswordHash: "x",
			CreatedAt:    Base,
			UpdatedAt:    Base,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("partial update", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "carol@example.com")
		later := Base.Add(time.Minute)

		verified := true
		got, err := h.Users.UpdateUser(ctx, u.ID, domain.UserUpdate{Verified: &verified}, later)
		require.NoError(t, err)
		require.True(t, got.Verified)
		require.Equal(t, u.PasswordHash, got.PasswordHash)
		require.Equal(t, later, got.UpdatedAt)

		hash := "$argon2id$new"
		got, err = h.Users.UpdateUser(ctx, u.ID, domain.UserUpdate{PasswordHash: &hash}, later)
		require.NoError(t, err)
		require.True(t, got.Verified)
		require.Equal(t, hash, got.PasswordHash)

		_, err = h.Users.UpdateUser(ctx, "missing", domain.UserUpdate{Verified: &verified}, later)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

// RunSessions exercises store.Sessions.
func RunSessions(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("create get delete", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "s1@example.com")
		s := newSession(u.ID, Base, 30*24*time.Hour)
		require.NoError(t, h.Sessions.CreateSession(ctx, s))

		got, err := h.Sessions.GetSessionByID(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, s, got)

		require.NoError(t, h.Sessions.DeleteSession(ctx, s.ID))
		_, err = h.Sessions.GetSessionByID(ctx, s.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		// idempotent
		require.NoError(t, h.Sessions.DeleteSession(ctx, s.ID))
	})

	t.Run("list active newest first", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "s2@example.com")
		other := NewUser(t, h, "s2-other@example.com")

		oldest := newSession(u.ID, Base, 30*24*time.Hour)
		middle := newSession(u.ID, Base.Add(time.Minute), 30*24*time.Hour)
		newest := newSession(u.ID, Base.Add(2*time.Minute), 30*24*time.Hour)
		expired := newSession(u.ID, Base.Add(3*time.Minute), time.Second)
		foreign := newSession(other.ID, Base.Add(4*time.Minute), 30*24*time.Hour)
		for _, s := range []domain.Session{middle, oldest, newest, expired, foreign} {
			require.NoError(t, h.Sessions.CreateSession(ctx, s))
		}

		got, err := h.Sessions.ListSessions(ctx, store.SessionFilter{UserID: u.ID, ActiveAt: Base.Add(time.Hour)})
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, newest.ID, got[0].ID)
		require.Equal(t, middle.ID, got[1].ID)
		require.Equal(t, oldest.ID, got[2].ID)
	})

	t.Run("extend is compare and swap", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "s3@example.com")
		s := newSession(u.ID, Base, 12*time.Hour)
		require.NoError(t, h.Sessions.CreateSession(ctx, s))

		next := Base.Add(30 * 24 * time.Hour)
		ok, err := h.Sessions.ExtendSession(ctx, s.ID, s.ExpiresAt, next, Base)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = h.Sessions.ExtendSession(ctx, s.ID, s.ExpiresAt, next.Add(time.Hour), Base)
		require.NoError(t, err)
		require.False(t, ok, "stale prev must not win")

		got, err := h.Sessions.GetSessionByID(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, next, got.ExpiresAt)

		ok, err = h.Sessions.ExtendSession(ctx, "missing", s.ExpiresAt, next, Base)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("concurrent extend has one winner", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "s4@example.com")
		s := newSession(u.ID, Base, 12*time.Hour)
		require.NoError(t, h.Sessions.CreateSession(ctx, s))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				next := Base.Add(30*24*time.Hour + time.Duration(i)*time.Millisecond)
				ok, err := h.Sessions.ExtendSession(ctx, s.ID, s.ExpiresAt, next, Base)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.EqualValues(t, 1, wins.Load())
	})

	t.Run("owned delete", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "s5@example.com")
		other := NewUser(t, h, "s5-other@example.com")
		s := newSession(u.ID, Base, time.Hour)
		require.NoError(t, h.Sessions.CreateSession(ctx, s))

		require.ErrorIs(t, h.Sessions.DeleteUserSession(ctx, other.ID, s.ID), store.ErrNotFound)
		require.NoError(t, h.Sessions.DeleteUserSession(ctx, u.ID, s.ID))
		require.ErrorIs(t, h.Sessions.DeleteUserSession(ctx, u.ID, s.ID), store.ErrNotFound)
	})

	t.Run("delete by user and expired", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "s6@example.com")
		other := NewUser(t, h, "s6-other@example.com")

		require.NoError(t, h.Sessions.CreateSession(ctx, newSession(u.ID, Base, time.Hour)))
		require.NoError(t, h.Sessions.CreateSession(ctx, newSession(u.ID, Base.Add(time.Second), time.Hour)))
		keep := newSession(other.ID, Base, time.Hour)
		require.NoError(t, h.Sessions.CreateSession(ctx, keep))
		short := newSession(other.ID, Base.Add(2*time.Second), time.Minute)
		require.NoError(t, h.Sessions.CreateSession(ctx, short))

		n, err := h.Sessions.DeleteSessionsByUser(ctx, u.ID)
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		left, err := h.Sessions.ListSessions(ctx, store.SessionFilter{UserID: u.ID})
		require.NoError(t, err)
		require.Empty(t, left)

		n, err = h.Sessions.DeleteExpiredSessions(ctx, Base.Add(10*time.Minute))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = h.Sessions.GetSessionByID(ctx, short.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = h.Sessions.GetSessionByID(ctx, keep.ID)
		require.NoError(t, err)
	})
}

// RunCodes exercises store.VerificationCodes.
func RunCodes(t *testing.T, factory Factory) {
	ctx := context.Background()

	newCode := func(id, userID string, purpose domain.CodePurpose, created time.Time, ttl time.Duration) domain.VerificationCode {
		return domain.VerificationCode{
			ID:        id,
			UserID:    userID,
			Purpose:   purpose,
			ExpiresAt: created.Add(ttl),
			CreatedAt: created,
		}
	}

	t.Run("find honours purpose and expiry", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "c1@example.com")
		c := newCode("code-1", u.ID, domain.PurposeEmailVerification, Base, time.Hour)
		require.NoError(t, h.Codes.CreateCode(ctx, c))

		got, err := h.Codes.FindCode(ctx, store.CodeFilter{ID: c.ID, Purpose: c.Purpose, ValidAt: Base})
		require.NoError(t, err)
		require.Equal(t, c, got)

		_, err = h.Codes.FindCode(ctx, store.CodeFilter{ID: c.ID, Purpose: domain.PurposePasswordReset, ValidAt: Base})
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = h.Codes.FindCode(ctx, store.CodeFilter{ID: c.ID, Purpose: c.Purpose, ValidAt: c.ExpiresAt})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("count recent", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "c2@example.com")
		require.NoError(t, h.Codes.CreateCode(ctx, newCode("r1", u.ID, domain.PurposePasswordReset, Base, time.Hour)))
		require.NoError(t, h.Codes.CreateCode(ctx, newCode("r2", u.ID, domain.PurposePasswordReset, Base.Add(4*time.Minute), time.Hour)))
		require.NoError(t, h.Codes.CreateCode(ctx, newCode("v1", u.ID, domain.PurposeEmailVerification, Base.Add(4*time.Minute), time.Hour)))

		n, err := h.Codes.CountCodes(ctx, store.CodeCountFilter{
			UserID:       u.ID,
			Purpose:      domain.PurposePasswordReset,
			CreatedAfter: Base.Add(-time.Minute),
		})
		require.NoError(t, err)
		require.Equal(t, 2, n)

		n, err = h.Codes.CountCodes(ctx, store.CodeCountFilter{
			UserID:       u.ID,
			Purpose:      domain.PurposePasswordReset,
			CreatedAfter: Base.Add(time.Minute),
		})
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("delete is single use", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "c3@example.com")
		require.NoError(t, h.Codes.CreateCode(ctx, newCode("once", u.ID, domain.PurposePasswordReset, Base, time.Hour)))

		require.NoError(t, h.Codes.DeleteCode(ctx, "once"))
		require.ErrorIs(t, h.Codes.DeleteCode(ctx, "once"), store.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		h := factory(t)
		u := NewUser(t, h, "c4@example.com")
		require.NoError(t, h.Codes.CreateCode(ctx, newCode("old", u.ID, domain.PurposePasswordReset, Base, time.Minute)))
		require.NoError(t, h.Codes.CreateCode(ctx, newCode("new", u.ID, domain.PurposePasswordReset, Base, time.Hour)))

		n, err := h.Codes.DeleteExpiredCodes(ctx, Base.Add(10*time.Minute))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = h.Codes.FindCode(ctx, store.CodeFilter{ID: "new", Purpose: domain.PurposePasswordReset, ValidAt: Base})
		require.NoError(t, err)
	})
}
