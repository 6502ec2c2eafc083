package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Mansoor88-6/process-tracker/internal/models"
)

type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, in models.AssignmentInput) (*models.Assignment, error) {
	a := &models.Assignment{UserID: in.UserID, ProcessID: in.ProcessID, ObjectID: in.ObjectID, CreatedAt: utcNow()}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (user_id, process_id, object_id, created_at) VALUES (?, ?, ?, ?)
	`, a.UserID, a.ProcessID, nullableInt(a.ObjectID), a.CreatedAt)
	if isForeignKeyViolation(err) {
		return nil, fmt.Errorf("assignment references a missing user, process or object: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	if a.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read assignment id: %w", err)
	}
	return a, nil
}

func (r *AssignmentRepository) Get(ctx context.Context, id int64) (*models.Assignment, error) {
	var (
		a        models.Assignment
		objectID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, process_id, object_id, created_at FROM assignments WHERE id = ?
	`, id).Scan(&a.ID, &a.UserID, &a.ProcessID, &objectID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assignment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	a.ObjectID = intPtr(objectID)
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// List returns assignments, restricted to one user when userID > 0.
func (r *AssignmentRepository) List(ctx context.Context, userID int64) ([]*models.Assignment, error) {
	query := `SELECT id, user_id, process_id, object_id, created_at FROM assignments`
	var args []any
	if userID > 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := []*models.Assignment{}
	for rows.Next() {
		var (
			a        models.Assignment
			objectID sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProcessID, &objectID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.ObjectID = intPtr(objectID)
		a.CreatedAt = a.CreatedAt.UTC()
		assignments = append(assignments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return assignments, nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return affected(result, "assignment", id)
}
