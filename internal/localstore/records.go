package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Mansoor88-6/process-tracker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recordColumns = `id, client_id, user_id, process_id, object_id, assignment_id,
	start_time, end_time, duration_seconds, comment, synced`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.TimeRecord, error) {
	var (
		rec          models.TimeRecord
		objectID     sql.NullInt64
		assignmentID sql.NullInt64
		endTime      sql.NullTime
	)
	if err := row.Scan(
		&rec.ID,
		&rec.ClientID,
		&rec.UserID,
		&rec.ProcessID,
		&objectID,
		&assignmentID,
		&rec.StartTime,
		&endTime,
		&rec.DurationSeconds,
		&rec.Comment,
		&rec.Synced,
	); err != nil {
		return nil, err
	}
	rec.StartTime = rec.StartTime.UTC()
	rec.ObjectID = intPtr(objectID)
	rec.AssignmentID = intPtr(assignmentID)
	rec.EndTime = timePtr(endTime)
	return &rec, nil
}

// CreateRecord inserts a new running record and fills in its ID (and ClientID when empty).
func (s *Store) CreateRecord(ctx context.Context, rec *models.TimeRecord) error {
	if rec.ClientID == "" {
		rec.ClientID = uuid.NewString()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO records (client_id, user_id, process_id, object_id, assignment_id,
			start_time, end_time, duration_seconds, comment, synced)
		VALUES (?, ?, ?, ?, ?, ?, NULL, 0, '', 0)
	`, rec.ClientID, rec.UserID, rec.ProcessID, nullableInt(rec.ObjectID), nullableInt(rec.AssignmentID), rec.StartTime.UTC())
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read record id: %w", err)
	}
	rec.ID = id
	rec.EndTime = nil
	rec.DurationSeconds = 0
	rec.Synced = false

	s.logger.Debug("Record created",
		zap.Int64("record_id", id),
		zap.Int64("process_id", rec.ProcessID),
		zap.Int64("user_id", rec.UserID),
	)
	return nil
}

// GetRecord loads a record by local ID.
func (s *Store) GetRecord(ctx context.Context, id int64) (*models.TimeRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// StopRecord sets end time, duration and comment. A record can only be stopped once.
func (s *Store) StopRecord(ctx context.Context, id int64, endTime time.Time, durationSeconds int64, comment string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET end_time = ?, duration_seconds = ?, comment = ?
		WHERE id = ? AND end_time IS NULL
	`, endTime.UTC(), durationSeconds, comment, id)
	if err != nil {
		return fmt.Errorf("failed to stop record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := s.GetRecord(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("record %d: %w", id, ErrAlreadyStopped)
	}
	return nil
}

// ActiveRecord returns the user's running record, or nil when none is running.
func (s *Store) ActiveRecord(ctx context.Context, userID int64) (*models.TimeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE user_id = ? AND end_time IS NULL
		ORDER BY start_time DESC, id DESC
		LIMIT 1
	`, userID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active record: %w", err)
	}
	return rec, nil
}

// RecentRecords returns the user's last limit records, newest first.
func (s *Store) RecentRecords(ctx context.Context, userID int64, limit int) ([]models.TimeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE user_id = ?
		ORDER BY start_time DESC, id DESC
		LIMIT ?
	`, userID, limit)
}

// UnsyncedRecords returns the user's finished records not yet acknowledged by the server.
func (s *Store) UnsyncedRecords(ctx context.Context, userID int64) ([]models.TimeRecord, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE user_id = ? AND end_time IS NOT NULL AND synced = 0
		ORDER BY id ASC
	`, userID)
}

// MarkSynced flags a record as acknowledged by the server. The flag never reverts.
func (s *Store) MarkSynced(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE records SET synced = 1 WHERE id = ? AND end_time IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark record synced: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return nil
}

// PendingCount returns the number of the user's finished records waiting for sync.
func (s *Store) PendingCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records WHERE user_id = ? AND end_time IS NOT NULL AND synced = 0
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return count, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]models.TimeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.TimeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}
