package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
)

const codeColumns = `id, user_id, purpose, expires_at, created_at`

type codesRepo struct {
	db *sql.DB
}

func (r *codesRepo) CreateCode(ctx context.Context, c domain.VerificationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_codes (`+codeColumns+`) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, string(c.Purpose), toMillis(c.ExpiresAt), toMillis(c.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *codesRepo) FindCode(ctx context.Context, f store.CodeFilter) (domain.VerificationCode, error) {
	var c domain.VerificationCode
	var purpose string
	var expires, created int64

	err := r.db.QueryRowContext(ctx,
		`SELECT `+codeColumns+`
		   FROM verification_codes
		  WHERE id = ? AND purpose = ? AND expires_at > ?`,
		f.ID, string(f.Purpose), toMillis(f.ValidAt),
	).Scan(&c.ID, &c.UserID, &purpose, &expires, &created)
	if err != nil {
		return domain.VerificationCode{}, mapNotFound(err)
	}

	c.Purpose = domain.CodePurpose(purpose)
	c.ExpiresAt = fromMillis(expires)
	c.CreatedAt = fromMillis(created)
	return c, nil
}

func (r *codesRepo) CountCodes(ctx context.Context, f store.CodeCountFilter) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_codes WHERE user_id = ? AND purpose = ? AND created_at > ?`,
		f.UserID, string(f.Purpose), toMillis(f.CreatedAfter),
	).Scan(&n)
	return n, err
}

func (r *codesRepo) DeleteCode(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *codesRepo) DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ store.VerificationCodes = (*codesRepo)(nil)
