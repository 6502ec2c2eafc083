package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Mansoor88-6/process-tracker/internal/models"
)

type ProcessRepository struct {
	db *sql.DB
}

func NewProcessRepository(db *sql.DB) *ProcessRepository {
	return &ProcessRepository{db: db}
}

// List returns processes with their ordered steps. Inactive ones are included on request.
func (r *ProcessRepository) List(ctx context.Context, includeInactive bool) ([]models.ProcessDefinition, error) {
	query := `SELECT id, name, description, sequential, active FROM processes`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query processes: %w", err)
	}
	defer rows.Close()

	var defs []models.ProcessDefinition
	index := make(map[int64]int)
	for rows.Next() {
		var def models.ProcessDefinition
		if err := rows.Scan(&def.ID, &def.Name, &def.Description, &def.Sequential, &def.Active); err != nil {
			return nil, fmt.Errorf("failed to scan process: %w", err)
		}
		def.Steps = []models.ProcessStep{}
		index[def.ID] = len(defs)
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	rows.Close()

	if len(defs) == 0 {
		return defs, nil
	}

	stepRows, err := r.db.QueryContext(ctx, `
		SELECT id, process_id, step_number, name, requires_photo
		FROM process_steps
		ORDER BY process_id ASC, step_number ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query process steps: %w", err)
	}
	defer stepRows.Close()

	for stepRows.Next() {
		var s models.ProcessStep
		if err := stepRows.Scan(&s.ID, &s.ProcessID, &s.StepNumber, &s.Name, &s.RequiresPhoto); err != nil {
			return nil, fmt.Errorf("failed to scan process step: %w", err)
		}
		if i, ok := index[s.ProcessID]; ok {
			defs[i].Steps = append(defs[i].Steps, s)
		}
	}
	if err := stepRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return defs, nil
}

func (r *ProcessRepository) Get(ctx context.Context, id int64) (*models.ProcessDefinition, error) {
	var def models.ProcessDefinition
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, sequential, active FROM processes WHERE id = ?
	`, id).Scan(&def.ID, &def.Name, &def.Description, &def.Sequential, &def.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("process %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get process: %w", err)
	}

	steps, err := r.steps(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	def.Steps = steps
	return &def, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *ProcessRepository) steps(ctx context.Context, q querier, processID int64) ([]models.ProcessStep, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, process_id, step_number, name, requires_photo
		FROM process_steps
		WHERE process_id = ?
		ORDER BY step_number ASC
	`, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to query process steps: %w", err)
	}
	defer rows.Close()

	steps := []models.ProcessStep{}
	for rows.Next() {
		var s models.ProcessStep
		if err := rows.Scan(&s.ID, &s.ProcessID, &s.StepNumber, &s.Name, &s.RequiresPhoto); err != nil {
			return nil, fmt.Errorf("failed to scan process step: %w", err)
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return steps, nil
}

// Create inserts a process and its steps, numbered 1..n in input order.
func (r *ProcessRepository) Create(ctx context.Context, in models.ProcessInput) (*models.ProcessDefinition, error) {
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := utcNow()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO processes (name, description, sequential, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, in.Name, in.Description, in.Sequential, active, now, now)
		if err != nil {
			return fmt.Errorf("failed to create process: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read process id: %w", err)
		}
		return r.syncSteps(ctx, tx, id, in.Steps)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update replaces a process's fields and steps. Steps keep their ids by position, so
// timings already recorded against step n still point at step n.
func (r *ProcessRepository) Update(ctx context.Context, id int64, in models.ProcessInput) (*models.ProcessDefinition, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `UPDATE processes SET name = ?, description = ?, sequential = ?, updated_at = ? WHERE id = ?`
		args := []any{in.Name, in.Description, in.Sequential, utcNow(), id}
		if in.Active != nil {
			query = `UPDATE processes SET name = ?, description = ?, sequential = ?, active = ?, updated_at = ? WHERE id = ?`
			args = []any{in.Name, in.Description, in.Sequential, *in.Active, utcNow(), id}
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update process: %w", err)
		}
		if err := affected(result, "process", id); err != nil {
			return err
		}
		return r.syncSteps(ctx, tx, id, in.Steps)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *ProcessRepository) syncSteps(ctx context.Context, tx *sql.Tx, processID int64, steps []models.StepInput) error {
	for i, s := range steps {
		number := i + 1
		result, err := tx.ExecContext(ctx, `
			UPDATE process_steps SET name = ?, requires_photo = ?
			WHERE process_id = ? AND step_number = ?
		`, s.Name, s.RequiresPhoto, processID, number)
		if err != nil {
			return fmt.Errorf("failed to update step %d: %w", number, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO process_steps (process_id, step_number, name, requires_photo)
			VALUES (?, ?, ?, ?)
		`, processID, number, s.Name, s.RequiresPhoto); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", number, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM process_steps WHERE process_id = ? AND step_number > ?
	`, processID, len(steps)); err != nil {
		return fmt.Errorf("failed to trim steps: %w", err)
	}
	return nil
}

// SetActive toggles whether workers can start the process.
func (r *ProcessRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE processes SET active = ?, updated_at = ? WHERE id = ?
	`, active, utcNow(), id)
	if err != nil {
		return fmt.Errorf("failed to update process: %w", err)
	}
	return affected(result, "process", id)
}
