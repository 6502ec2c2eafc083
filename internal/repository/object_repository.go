package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Mansoor88-6/process-tracker/internal/models"
)

type ObjectRepository struct {
	db *sql.DB
}

func NewObjectRepository(db *sql.DB) *ObjectRepository {
	return &ObjectRepository{db: db}
}

func (r *ObjectRepository) Create(ctx context.Context, in models.ObjectInput) (*models.WorkObject, error) {
	obj := &models.WorkObject{Name: in.Name, Address: in.Address, CreatedAt: utcNow()}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO objects (name, address, created_at) VALUES (?, ?, ?)
	`, obj.Name, obj.Address, obj.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}
	if obj.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read object id: %w", err)
	}
	return obj, nil
}

func (r *ObjectRepository) Get(ctx context.Context, id int64) (*models.WorkObject, error) {
	var obj models.WorkObject
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, created_at FROM objects WHERE id = ?
	`, id).Scan(&obj.ID, &obj.Name, &obj.Address, &obj.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	obj.CreatedAt = obj.CreatedAt.UTC()
	return &obj, nil
}

func (r *ObjectRepository) List(ctx context.Context) ([]*models.WorkObject, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, address, created_at FROM objects ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	objects := []*models.WorkObject{}
	for rows.Next() {
		var obj models.WorkObject
		if err := rows.Scan(&obj.ID, &obj.Name, &obj.Address, &obj.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		obj.CreatedAt = obj.CreatedAt.UTC()
		objects = append(objects, &obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return objects, nil
}

func (r *ObjectRepository) Update(ctx context.Context, id int64, in models.ObjectInput) (*models.WorkObject, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE objects SET name = ?, address = ? WHERE id = ?`, in.Name, in.Address, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update object: %w", err)
	}
	if err := affected(result, "object", id); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *ObjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return affected(result, "object", id)
}
