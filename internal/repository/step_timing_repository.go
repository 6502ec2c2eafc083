package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Mansoor88-6/process-tracker/internal/models"
)

type StepTimingRepository struct {
	db *sql.DB
}

func NewStepTimingRepository(db *sql.DB) *StepTimingRepository {
	return &StepTimingRepository{db: db}
}

// Start opens a timing for a step of a record. Each step is timed once per record.
func (r *StepTimingRepository) Start(ctx context.Context, recordID, stepID int64, at time.Time) (*models.StepTiming, error) {
	timing := &models.StepTiming{RecordID: recordID, StepID: stepID, StartedAt: at.UTC()}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO step_timings (record_id, step_id, started_at) VALUES (?, ?, ?)
	`, recordID, stepID, timing.StartedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("step %d of record %d already started: %w", stepID, recordID, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start step timing: %w", err)
	}
	if timing.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read step timing id: %w", err)
	}
	return timing, nil
}

func (r *StepTimingRepository) Get(ctx context.Context, id int64) (*models.StepTiming, error) {
	var (
		t        models.StepTiming
		endedAt  sql.NullTime
		duration sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, record_id, step_id, started_at, ended_at, duration_seconds
		FROM step_timings WHERE id = ?
	`, id).Scan(&t.ID, &t.RecordID, &t.StepID, &t.StartedAt, &endedAt, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("step timing %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step timing: %w", err)
	}
	t.StartedAt = t.StartedAt.UTC()
	t.EndedAt = timePtr(endedAt)
	t.DurationSeconds = intPtr(duration)
	return &t, nil
}

// Stop closes an open timing and returns it with its duration.
func (r *StepTimingRepository) Stop(ctx context.Context, id int64, at time.Time) (*models.StepTiming, error) {
	timing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if timing.EndedAt != nil {
		return nil, fmt.Errorf("step timing %d already stopped: %w", id, ErrConflict)
	}

	end := at.UTC()
	duration := models.DurationSeconds(timing.StartedAt, end)
	if _, err := r.db.ExecContext(ctx, `
		UPDATE step_timings SET ended_at = ?, duration_seconds = ? WHERE id = ? AND ended_at IS NULL
	`, end, duration, id); err != nil {
		return nil, fmt.Errorf("failed to stop step timing: %w", err)
	}
	timing.EndedAt = &end
	timing.DurationSeconds = &duration
	return timing, nil
}

func (r *StepTimingRepository) ListByRecord(ctx context.Context, recordID int64) ([]*models.StepTiming, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, record_id, step_id, started_at, ended_at, duration_seconds
		FROM step_timings WHERE record_id = ? ORDER BY started_at ASC, id ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step timings: %w", err)
	}
	defer rows.Close()

	timings := []*models.StepTiming{}
	for rows.Next() {
		var (
			t        models.StepTiming
			endedAt  sql.NullTime
			duration sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.RecordID, &t.StepID, &t.StartedAt, &endedAt, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan step timing: %w", err)
		}
		t.StartedAt = t.StartedAt.UTC()
		t.EndedAt = timePtr(endedAt)
		t.DurationSeconds = intPtr(duration)
		timings = append(timings, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return timings, nil
}
