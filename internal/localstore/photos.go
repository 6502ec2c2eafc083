package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"Mansoor88-6/process-tracker/internal/blob"
	"Mansoor88-6/process-tracker/internal/models"
)

// AppendPhoto stores a photo compressed and fills in its ID and digest.
func (s *Store) AppendPhoto(ctx context.Context, photo *models.Photo) error {
	if len(photo.Data) == 0 {
		return fmt.Errorf("photo for record %d has no data", photo.RecordID)
	}

	enc := blob.Encode(photo.Data)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (record_id, step_id, data, digest, size, taken_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, photo.RecordID, nullableInt(photo.StepID), enc.Data, enc.Digest, enc.Size, photo.TakenAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append photo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read photo id: %w", err)
	}
	photo.ID = id
	photo.Digest = enc.Digest
	return nil
}

// Photos returns all photos of a record, oldest first, decompressed and digest-checked.
func (s *Store) Photos(ctx context.Context, recordID int64) ([]models.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, step_id, data, digest, size, taken_at
		FROM photos
		WHERE record_id = ?
		ORDER BY id ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var (
			photo  models.Photo
			stepID sql.NullInt64
			stored blob.Encoded
		)
		if err := rows.Scan(&photo.ID, &photo.RecordID, &stepID, &stored.Data, &stored.Digest, &stored.Size, &photo.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		raw, err := blob.Decode(stored)
		if err != nil {
			return nil, fmt.Errorf("photo %d is corrupt: %w", photo.ID, err)
		}
		photo.Data = raw
		photo.Digest = stored.Digest
		photo.StepID = intPtr(stepID)
		photo.TakenAt = photo.TakenAt.UTC()
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return photos, nil
}

// HasPhotoForStep reports whether at least one photo is attached to the step of the record.
func (s *Store) HasPhotoForStep(ctx context.Context, recordID, stepID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM photos WHERE record_id = ? AND step_id = ?
	`, recordID, stepID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count step photos: %w", err)
	}
	return count > 0, nil
}
