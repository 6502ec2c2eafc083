package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Mansoor88-6/process-tracker/internal/blob"
	"Mansoor88-6/process-tracker/internal/models"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

const recordColumns = `id, client_id, user_id, process_id, object_id, assignment_id, device_id,
	start_time, end_time, duration_seconds, comment, created_at`

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec          models.Record
		clientID     sql.NullString
		objectID     sql.NullInt64
		assignmentID sql.NullInt64
		endTime      sql.NullTime
		duration     sql.NullInt64
	)
	if err := row.Scan(
		&rec.ID,
		&clientID,
		&rec.UserID,
		&rec.ProcessID,
		&objectID,
		&assignmentID,
		&rec.DeviceID,
		&rec.StartTime,
		&endTime,
		&duration,
		&rec.Comment,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.ClientID = stringPtr(clientID)
	rec.ObjectID = intPtr(objectID)
	rec.AssignmentID = intPtr(assignmentID)
	rec.StartTime = rec.StartTime.UTC()
	rec.EndTime = timePtr(endTime)
	rec.DurationSeconds = intPtr(duration)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// Start inserts a running record. The caller checks for an already active one.
func (r *RecordRepository) Start(ctx context.Context, rec *models.Record) error {
	rec.CreatedAt = utcNow()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO records (client_id, user_id, process_id, object_id, assignment_id, device_id,
			start_time, end_time, duration_seconds, comment, created_at)
		VALUES (NULL, ?, ?, ?, ?, ?, ?, NULL, NULL, '', ?)
	`, rec.UserID, rec.ProcessID, nullableInt(rec.ObjectID), nullableInt(rec.AssignmentID), rec.DeviceID,
		rec.StartTime.UTC(), rec.CreatedAt)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("record references a missing process, object or assignment: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to start record: %w", err)
	}
	if rec.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read record id: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// Active returns the user's running record or nil.
func (r *RecordRepository) Active(ctx context.Context, userID int64) (*models.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE user_id = ? AND end_time IS NULL
		ORDER BY start_time DESC LIMIT 1
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active record: %w", err)
	}
	return rec, nil
}

// Stop finishes a running record. Stopping twice is a conflict.
func (r *RecordRepository) Stop(ctx context.Context, id int64, end time.Time, durationSeconds int64, comment string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE records SET end_time = ?, duration_seconds = ?, comment = ?
		WHERE id = ? AND end_time IS NULL
	`, end.UTC(), durationSeconds, comment, id)
	if err != nil {
		return fmt.Errorf("failed to stop record: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("record %d already stopped: %w", id, ErrConflict)
	}
	return nil
}

// ListByUser returns the user's records, newest first.
func (r *RecordRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE user_id = ?
		ORDER BY start_time DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []*models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// Upsert stores a record pushed by an offline client. Records are keyed by
// (user, client id), so pushing the same record again overwrites it instead of
// duplicating it; step timings are keyed by (record, step) and photos by digest.
func (r *RecordRepository) Upsert(ctx context.Context, userID int64, deviceID string, in models.SyncRecord) (int64, error) {
	var recordID int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (client_id, user_id, process_id, object_id, assignment_id, device_id,
				start_time, end_time, duration_seconds, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, client_id) DO UPDATE SET
				process_id = excluded.process_id,
				object_id = excluded.object_id,
				assignment_id = excluded.assignment_id,
				device_id = excluded.device_id,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				duration_seconds = excluded.duration_seconds,
				comment = excluded.comment
		`, in.ClientID, userID, in.ProcessID, nullableInt(in.ObjectID), nullableInt(in.AssignmentID), deviceID,
			in.StartTime.UTC(), in.EndTime.UTC(), in.DurationSeconds, in.Comment, utcNow())
		if isForeignKeyViolation(err) {
			return fmt.Errorf("record %s references a missing process, object or assignment: %w", in.ClientID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to upsert record: %w", err)
		}

		if err := tx.QueryRowContext(ctx, `
			SELECT id FROM records WHERE user_id = ? AND client_id = ?
		`, userID, in.ClientID).Scan(&recordID); err != nil {
			return fmt.Errorf("failed to read record id: %w", err)
		}

		for _, s := range in.Steps {
			var duration sql.NullInt64
			if s.CompletedAt != nil {
				duration = sql.NullInt64{Int64: models.DurationSeconds(s.StartedAt, *s.CompletedAt), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO step_timings (record_id, step_id, started_at, ended_at, duration_seconds)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (record_id, step_id) DO UPDATE SET
					started_at = excluded.started_at,
					ended_at = excluded.ended_at,
					duration_seconds = excluded.duration_seconds
			`, recordID, s.StepID, s.StartedAt.UTC(), nullableTime(s.CompletedAt), duration); err != nil {
				return fmt.Errorf("failed to upsert step timing: %w", err)
			}
		}

		for _, p := range in.Photos {
			enc := blob.Encode(p.Data)
			var exists int
			if err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM photos WHERE record_id = ? AND digest = ?
			`, recordID, enc.Digest).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check photo: %w", err)
			}
			if exists > 0 {
				continue
			}
			if err := insertPhoto(ctx, tx, &models.StoredPhoto{
				RecordID: recordID,
				StepID:   p.StepID,
				TakenAt:  p.TakenAt,
			}, enc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return recordID, nil
}
