package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
)

const userColumns = `id, email, password_hash, verified, created_at, updated_at`

type usersRepo struct {
	db *sql.DB
}

func scanUser(row scanner) (domain.User, error) {
	var u domain.User
	var created, updated int64
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Verified, &created, &updated); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *usersRepo) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email,
	).Scan(&exists)
	return exists, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Verified, toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) UpdateUser(
	ctx context.Context,
	id string,
	upd domain.UserUpdate,
	now time.Time,
) (domain.User, error) {
	// COALESCE keeps the column when the parameter is NULL.
	var hash, verified any
	if upd.PasswordHash != nil {
		hash = *upd.PasswordHash
	}
	if upd.Verified != nil {
		verified = *upd.Verified
	}

	return scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users
		    SET password_hash = COALESCE(?, password_hash),
		        verified      = COALESCE(?, verified),
		        updated_at    = ?
		  WHERE id = ?
		RETURNING `+userColumns,
		hash, verified, toMillis(now), id,
	))
}

var _ store.Users = (*usersRepo)(nil)
