package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Mansoor88-6/process-tracker/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, password_hash, first_name, role, status, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.Role, &u.Status, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// Register inserts a user. The first user of an empty table becomes an approved admin;
// everyone else starts as a pending worker.
func (r *UserRepository) Register(ctx context.Context, username, passwordHash, firstName string) (*models.User, error) {
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		Role:         models.RoleWorker,
		Status:       models.UserStatusPending,
		CreatedAt:    utcNow(),
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if count == 0 {
			user.Role = models.RoleAdmin
			user.Status = models.UserStatusApproved
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO users (username, password_hash, first_name, role, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, user.Username, user.PasswordHash, user.FirstName, user.Role, user.Status, user.CreatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", username, ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		user.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List returns users, optionally filtered by status, oldest first.
func (r *UserRepository) List(ctx context.Context, status string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return users, nil
}

// UpdateStatus sets the account status and, when role is not empty, the role.
func (r *UserRepository) UpdateStatus(ctx context.Context, id int64, status, role string) (*models.User, error) {
	query := `UPDATE users SET status = ? WHERE id = ?`
	args := []any{status, id}
	if role != "" {
		query = `UPDATE users SET status = ?, role = ? WHERE id = ?`
		args = []any{status, role, id}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := affected(result, "user", id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}
