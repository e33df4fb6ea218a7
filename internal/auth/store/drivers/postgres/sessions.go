package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, user_id, user_agent, expires_at, created_at, updated_at`

type sessionsRepo struct {
	pool poolIface
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.Session{}, err
	}
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.UserAgent, s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	return mapErr(err, "create session")
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	return s, mapErr(err, "get session")
}

func (r *sessionsRepo) ListSessions(ctx context.Context, f store.SessionFilter) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		   FROM sessions
		  WHERE user_id = $1 AND ($2::timestamptz IS NULL OR expires_at > $2)
		  ORDER BY created_at DESC, id DESC`,
		f.UserID, nullableTime(f.ActiveAt),
	)
	if err != nil {
		return nil, mapErr(err, "list sessions")
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, mapErr(err, "scan session row")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "iterate sessions")
	}
	return out, nil
}

func (r *sessionsRepo) ExtendSession(ctx context.Context, id string, prev, next, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET expires_at = $1, updated_at = $2 WHERE id = $3 AND expires_at = $4`,
		next, now, id, prev,
	)
	if err != nil {
		return false, mapErr(err, "extend session")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return mapErr(err, "delete session")
}

func (r *sessionsRepo) DeleteUserSession(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapErr(err, "delete user session")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *sessionsRepo) DeleteSessionsByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, mapErr(err, "delete sessions by user")
	}
	return tag.RowsAffected(), nil
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr(err, "delete expired sessions")
	}
	return tag.RowsAffected(), nil
}

var _ store.Sessions = (*sessionsRepo)(nil)
