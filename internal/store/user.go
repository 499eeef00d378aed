package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"salon-booking/internal/model"
)

const userColumns = `id, name, phone, email, password_hash, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, phone, email, password_hash, is_admin)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Phone, u.Email, u.PasswordHash, u.IsAdmin,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapErr("create user", "user", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, mapErr("user by email", "user", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("user by id", "user", err)
	}
	return u, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id, name, email, phone string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name=$1, email=$2, phone=$3, updated_at=NOW() WHERE id=$4`,
		name, email, phone, id,
	)
	if err != nil {
		return mapErr("update profile", "user", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("update profile", "user", pgx.ErrNoRows)
	}
	return nil
}

func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`, hash, id)
	if err != nil {
		return mapErr("set password", "user", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("set password", "user", pgx.ErrNoRows)
	}
	return nil
}

func (s *Store) Admins(ctx context.Context) ([]model.User, error) {
	return s.queryUsers(ctx, "admins",
		`SELECT `+userColumns+` FROM users WHERE is_admin ORDER BY name`)
}

func (s *Store) AllUsers(ctx context.Context) ([]model.User, error) {
	return s.queryUsers(ctx, "all users",
		`SELECT `+userColumns+` FROM users ORDER BY name`)
}

// SearchUsers does a substring match on email or phone.
func (s *Store) SearchUsers(ctx context.Context, field, query string) ([]model.User, error) {
	col := "phone"
	if field == "email" {
		col = "email"
	}
	// col is one of two literals, never user input
	q := fmt.Sprintf(`SELECT %s FROM users WHERE %s ILIKE '%%' || $1 || '%%' ORDER BY name`, userColumns, col)
	return s.queryUsers(ctx, "search users", q, query)
}

func (s *Store) queryUsers(ctx context.Context, op, q string, args ...any) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(op, "user", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr(op, "user", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, "user", err)
	}
	return out, nil
}
