package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

// CreateUser creates a new account.
func CreateUser(ctx context.Context, q Querier, username, passwordHash, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, model.InvalidInput("invalid role %q", role)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID, including soft-deleted accounts.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound(model.EntityUser, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetActiveUser returns a user that has not been deleted.
func GetActiveUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	u, err := GetUser(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if u.DeletedAt != nil {
		return nil, model.NewNotFound(model.EntityUser, id)
	}
	return u, nil
}

// GetUserByUsername returns the active user with the given username, or nil
// when there is none.
func GetUserByUsername(ctx context.Context, q Querier, username string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users, optionally only those with role.
func ListUsers(ctx context.Context, q Querier, role string) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	var args []any
	if role != "" {
		query += ` AND role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserRole changes a user's role.
func UpdateUserRole(ctx context.Context, q Querier, id int64, role string) error {
	if !model.ValidRole(role) {
		return model.InvalidInput("invalid role %q", role)
	}
	return updateActiveUser(ctx, q, id, "updating user role",
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`, role, id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	return updateActiveUser(ctx, q, id, "updating user password",
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`, passwordHash, id)
}

// DeleteUser soft-deletes a user. Loans and fines keep referring to the row.
func DeleteUser(ctx context.Context, q Querier, id int64) error {
	return updateActiveUser(ctx, q, id, "deleting user",
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
}

func updateActiveUser(ctx context.Context, q Querier, id int64, what, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	ok, err := affected(result, what)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewNotFound(model.EntityUser, id)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}
