package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
)

const codeColumns = `id, user_id, purpose, expires_at, created_at`

type codesRepo struct {
	pool poolIface
}

func (r *codesRepo) CreateCode(ctx context.Context, c domain.VerificationCode) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO verification_codes (`+codeColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, string(c.Purpose), c.ExpiresAt, c.CreatedAt,
	)
	return mapErr(err, "create verification code")
}

func (r *codesRepo) FindCode(ctx context.Context, f store.CodeFilter) (domain.VerificationCode, error) {
	var c domain.VerificationCode
	var purpose string

	err := r.pool.QueryRow(ctx,
		`SELECT `+codeColumns+`
		   FROM verification_codes
		  WHERE id = $1 AND purpose = $2 AND expires_at > $3`,
		f.ID, string(f.Purpose), f.ValidAt,
	).Scan(&c.ID, &c.UserID, &purpose, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return domain.VerificationCode{}, mapErr(err, "find verification code")
	}

	c.Purpose = domain.CodePurpose(purpose)
	c.ExpiresAt = c.ExpiresAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (r *codesRepo) CountCodes(ctx context.Context, f store.CodeCountFilter) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM verification_codes WHERE user_id = $1 AND purpose = $2 AND created_at > $3`,
		f.UserID, string(f.Purpose), f.CreatedAfter,
	).Scan(&n)
	if err != nil {
		return 0, mapErr(err, "count verification codes")
	}
	return n, nil
}

func (r *codesRepo) DeleteCode(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM verification_codes WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "delete verification code")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *codesRepo) DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr(err, "delete expired verification codes")
	}
	return tag.RowsAffected(), nil
}

var _ store.VerificationCodes = (*codesRepo)(nil)
