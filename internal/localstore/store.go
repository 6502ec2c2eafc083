// Package localstore is the worker's offline store: time records, their steps and photos,
// and a read-only snapshot of process definitions. Every operation is local; errors are
// returned to the caller and never retried here.
package localstore

import (
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyStopped = errors.New("record already stopped")
	ErrStepExists     = errors.New("step already started for record")
	ErrStepNotOpen    = errors.New("step is not open")
)

// Store manages the local collections.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// New creates a store over an opened client-schema database.
func New(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

func nullableInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
