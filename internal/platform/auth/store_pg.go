package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userStorePG struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) UserStore {
	return &userStorePG{pool: pool}
}

const userColumns = `id, username, hashed_password, can_access_sensitive`

func (s *userStorePG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *userStorePG) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *userStorePG) Create(ctx context.Context, user *User) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO users (username, hashed_password, can_access_sensitive)
		VALUES ($1, $2, $3)
		RETURNING id`,
		user.Username, user.HashedPassword, user.CanAccessSensitive,
	).Scan(&user.ID)
}

func (s *userStorePG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.CanAccessSensitive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
