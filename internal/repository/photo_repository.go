package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Mansoor88-6/process-tracker/internal/blob"
	"Mansoor88-6/process-tracker/internal/models"
)

type PhotoRepository struct {
	db *sql.DB
}

func NewPhotoRepository(db *sql.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPhoto(ctx context.Context, db execer, photo *models.StoredPhoto, enc blob.Encoded) error {
	photo.Digest = enc.Digest
	photo.Size = enc.Size
	photo.CreatedAt = utcNow()
	if photo.TakenAt.IsZero() {
		photo.TakenAt = photo.CreatedAt
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO photos (record_id, step_id, comment, digest, size, data, taken_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, photo.RecordID, nullableInt(photo.StepID), photo.Comment, enc.Digest, enc.Size, enc.Data,
		photo.TakenAt.UTC(), photo.CreatedAt)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("record %d: %w", photo.RecordID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to store photo: %w", err)
	}
	if photo.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read photo id: %w", err)
	}
	return nil
}

// Create stores the photo compressed and fills in its id, digest and size.
func (r *PhotoRepository) Create(ctx context.Context, photo *models.StoredPhoto, raw []byte) error {
	return insertPhoto(ctx, r.db, photo, blob.Encode(raw))
}

func (r *PhotoRepository) ListByRecord(ctx context.Context, recordID int64) ([]*models.StoredPhoto, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, record_id, step_id, comment, digest, size, taken_at, created_at
		FROM photos WHERE record_id = ? ORDER BY id ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	photos := []*models.StoredPhoto{}
	for rows.Next() {
		var (
			p      models.StoredPhoto
			stepID sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.RecordID, &stepID, &p.Comment, &p.Digest, &p.Size, &p.TakenAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		p.StepID = intPtr(stepID)
		p.TakenAt = p.TakenAt.UTC()
		p.CreatedAt = p.CreatedAt.UTC()
		photos = append(photos, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return photos, nil
}

// Data returns the decompressed bytes of a photo after verifying its digest.
func (r *PhotoRepository) Data(ctx context.Context, id int64) ([]byte, error) {
	var enc blob.Encoded
	err := r.db.QueryRowContext(ctx, `SELECT digest, size, data FROM photos WHERE id = ?`, id).
		Scan(&enc.Digest, &enc.Size, &enc.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("photo %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return blob.Decode(enc)
}
