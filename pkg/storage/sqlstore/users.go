package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/docsapi/pkg/api"
)

const userColumns = `u.id, u.username, u.first_name, u.last_name, u.email, u.password_hash, u.last_login`

func scanUser(row scanner) (*api.User, error) {
	var u api.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &lastLogin); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// CreateUser inserts a user; the username must be unique
func (s *Store) CreateUser(ctx context.Context, user *api.User) error {
	query := s.dialect.Rebind(`
		INSERT INTO users (username, first_name, last_name, email, password_hash, last_login)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowContext(ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		nullTime(user.LastLogin),
	).Scan(&user.ID)
	if err != nil {
		return insertError("user "+user.Username, err)
	}
	return nil
}

// GetUser looks a user up by username
func (s *Store) GetUser(ctx context.Context, username string) (*api.User, error) {
	query := s.dialect.Rebind(`SELECT ` + userColumns + ` FROM users u WHERE u.username = ?`)
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, api.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers lists users ordered by ID
func (s *Store) ListUsers(ctx context.Context, filter api.UserFilter, page api.Page) ([]*api.User, int64, error) {
	w := &where{}
	if filter.Username != "" {
		w.add("u.username = ?", filter.Username)
	}
	users, total, err := selectPage(ctx, s, userColumns, "users u", "u.id", w, page, scanUser)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}
