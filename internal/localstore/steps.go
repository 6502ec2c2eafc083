package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Mansoor88-6/process-tracker/internal/models"
)

// StartStep opens a step for a record. Each step can be opened once per record.
func (s *Store) StartStep(ctx context.Context, recordID, stepID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps (record_id, step_id, started_at, completed_at)
		VALUES (?, ?, ?, NULL)
	`, recordID, stepID, at.UTC())
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("record %d step %d: %w", recordID, stepID, ErrStepExists)
		}
		return fmt.Errorf("failed to start step: %w", err)
	}
	return nil
}

// CompleteStep marks an open step as done.
func (s *Store) CompleteStep(ctx context.Context, recordID, stepID int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE steps SET completed_at = ?
		WHERE record_id = ? AND step_id = ? AND completed_at IS NULL
	`, at.UTC(), recordID, stepID)
	if err != nil {
		return fmt.Errorf("failed to complete step: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("record %d step %d: %w", recordID, stepID, ErrStepNotOpen)
	}
	return nil
}

// Steps lists the step rows of a record in the order they were opened.
func (s *Store) Steps(ctx context.Context, recordID int64) ([]models.StepCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, step_id, started_at, completed_at
		FROM steps
		WHERE record_id = ?
		ORDER BY started_at ASC, rowid ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []models.StepCompletion
	for rows.Next() {
		var (
			step        models.StepCompletion
			completedAt sql.NullTime
		)
		if err := rows.Scan(&step.RecordID, &step.StepID, &step.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		step.StartedAt = step.StartedAt.UTC()
		step.CompletedAt = timePtr(completedAt)
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return steps, nil
}

func isConstraintError(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY")
}
