package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, verified, created_at, updated_at`

type usersRepo struct {
	pool poolIface
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, mapErr(err, "check user exists")
	}
	return exists, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.PasswordHash, u.Verified, u.CreatedAt, u.UpdatedAt,
	)
	return mapErr(err, "create user")
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	return u, mapErr(err, "get user by email")
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, mapErr(err, "get user by id")
}

func (r *usersRepo) UpdateUser(
	ctx context.Context,
	id string,
	upd domain.UserUpdate,
	now time.Time,
) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users
		    SET password_hash = COALESCE($1, password_hash),
		        verified      = COALESCE($2, verified),
		        updated_at    = $3
		  WHERE id = $4
		RETURNING `+userColumns,
		upd.PasswordHash, upd.Verified, now, id,
	))
	return u, mapErr(err, "update user")
}

var _ store.Users = (*usersRepo)(nil)
