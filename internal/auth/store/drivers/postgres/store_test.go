package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, NewStoreWithPool(mock, "")
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@host/db", "pgx5://u:p@host/db"},
		{"postgresql://u:p@host/db?sslmode=disable", "pgx5://u:p@host/db?sslmode=disable"},
		{"pgx5://u:p@host/db", "pgx5://u:p@host/db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MigrateURL(tt.in))
	}
}

func TestUsers_CreateUser(t *testing.T) {
	u := domain.User{ID: "u1", Email: "a@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "inserted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "a@example.com", "h", false, now, now).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: store.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, s := newMock(t)
			tt.setupMock(mock)

			err := s.Users().CreateUser(context.Background(), u)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestUsers_GetUserByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
			WithArgs("a@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "verified", "created_at", "updated_at"}).
				AddRow("u1", "a@example.com", "h", true, now, now))

		u, err := s.Users().GetUserByEmail(context.Background(), "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
		assert.True(t, u.Verified)
	})

	t.Run("not found", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.Users().GetUserByEmail(context.Background(), "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("connection failure is wrapped", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
			WillReturnError(errors.New("connection refused"))

		_, err := s.Users().GetUserByEmail(context.Background(), "a@example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NotErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUsers_UpdateUser(t *testing.T) {
	mock, s := newMock(t)
	verified := true
	mock.ExpectQuery(`UPDATE users`).
		WithArgs((*string)(nil), &verified, now, "u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "verified", "created_at", "updated_at"}).
			AddRow("u1", "a@example.com", "h", true, now, now))

	u, err := s.Users().UpdateUser(context.Background(), "u1", domain.UserUpdate{Verified: &verified}, now)
	require.NoError(t, err)
	assert.True(t, u.Verified)
}

func TestSessions_ExtendSession(t *testing.T) {
	prev := now.Add(time.Hour)
	next := now.Add(30 * 24 * time.Hour)

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"won the race", 1, true},
		{"lost the race", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, s := newMock(t)
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE sessions SET expires_at = $1, updated_at = $2 WHERE id = $3 AND expires_at = $4`)).
				WithArgs(next, now, "s1", prev).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			ok, err := s.Sessions().ExtendSession(context.Background(), "s1", prev, next, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestSessions_ListSessions(t *testing.T) {
	mock, s := newMock(t)
	rows := pgxmock.NewRows([]string{"id", "user_id", "user_agent", "expires_at", "created_at", "updated_at"}).
		AddRow("s2", "u1", "ua", now.Add(time.Hour), now.Add(time.Minute), now.Add(time.Minute)).
		AddRow("s1", "u1", "", now.Add(time.Hour), now, now)
	mock.ExpectQuery(`FROM sessions\s+WHERE user_id = \$1`).
		WithArgs("u1", now).
		WillReturnRows(rows)

	got, err := s.Sessions().ListSessions(context.Background(), store.SessionFilter{UserID: "u1", ActiveAt: now})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s2", got[0].ID)
	assert.Equal(t, "s1", got[1].ID)
}

func TestSessions_DeleteUserSession(t *testing.T) {
	t.Run("owned", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1 AND user_id = \$2`).
			WithArgs("s1", "u1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		require.NoError(t, s.Sessions().DeleteUserSession(context.Background(), "u1", "s1"))
	})

	t.Run("not owned", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1 AND user_id = \$2`).
			WithArgs("s1", "u2").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		require.ErrorIs(t, s.Sessions().DeleteUserSession(context.Background(), "u2", "s1"), store.ErrNotFound)
	})
}

func TestCodes_FindAndDelete(t *testing.T) {
	t.Run("find", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`FROM verification_codes`).
			WithArgs("c1", "password_reset", now).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "purpose", "expires_at", "created_at"}).
				AddRow("c1", "u1", "password_reset", now.Add(time.Hour), now))

		c, err := s.VerificationCodes().FindCode(context.Background(), store.CodeFilter{
			ID: "c1", Purpose: domain.PurposePasswordReset, ValidAt: now,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PurposePasswordReset, c.Purpose)
	})

	t.Run("delete twice", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectExec(`DELETE FROM verification_codes WHERE id = \$1`).
			WithArgs("c1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(`DELETE FROM verification_codes WHERE id = \$1`).
			WithArgs("c1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		require.NoError(t, s.VerificationCodes().DeleteCode(context.Background(), "c1"))
		require.ErrorIs(t, s.VerificationCodes().DeleteCode(context.Background(), "c1"), store.ErrNotFound)
	})
}

func TestCodes_CountCodes(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM verification_codes`).
		WithArgs("u1", "password_reset", now).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	n, err := s.VerificationCodes().CountCodes(context.Background(), store.CodeCountFilter{
		UserID: "u1", Purpose: domain.PurposePasswordReset, CreatedAfter: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestApplyMigrationsRequiresDSN(t *testing.T) {
	_, s := newMock(t)
	require.Error(t, s.ApplyMigrations())
}
