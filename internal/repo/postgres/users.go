package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, avatar, role, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Avatar,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string, role user.Role) (user.User, error) {
	var (
		u   user.User
		err error
	)

	err = r.observe("users.create", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash, role)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+userColumns,
			name, email, passwordHash, string(role),
		))
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var (
		u   user.User
		err error
	)

	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var (
		u   user.User
		err error
	)

	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
		return err
	})

	return u, err
}

// Update writes the name and, when set, the password hash and role.
func (r *UsersRepo) Update(ctx context.Context, id int64, changes user.Changes) (user.User, error) {
	var (
		u    user.User
		err  error
		role *string
	)
	if changes.Role != nil {
		s := string(*changes.Role)
		role = &s
	}

	err = r.observe("users.update", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			 SET name = $2,
			     password_hash = COALESCE($3, password_hash),
			     role = COALESCE($4, role),
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, changes.Name, changes.PasswordHash, role,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) SetAvatar(ctx context.Context, id int64, avatar string) (user.User, error) {
	var (
		u   user.User
		err error
	)

	err = r.observe("users.set_avatar", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET avatar = $2, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, avatar,
		))
		return err
	})

	return u, err
}

// Delete removes the user. Tasks go with it through ON DELETE CASCADE.
func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var (
		tag pgconn.CommandTag
		err error
	)

	err = r.observe("users.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
