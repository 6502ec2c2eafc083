package localstore

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"Mansoor88-6/process-tracker/internal/models"

	"go.uber.org/zap"
)

// CacheProcesses replaces the cached snapshot with defs.
func (s *Store) CacheProcesses(ctx context.Context, defs []models.ProcessDefinition, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM processes`); err != nil {
		return fmt.Errorf("failed to clear process cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO processes (id, definition, cached_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, def := range defs {
		data, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("failed to marshal process %d: %w", def.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, def.ID, string(data), at.UTC()); err != nil {
			return fmt.Errorf("failed to cache process %d: %w", def.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("Process definitions cached", zap.Int("count", len(defs)))
	return nil
}

// CachedProcesses returns the cached snapshot ordered by name.
func (s *Store) CachedProcesses(ctx context.Context) ([]models.ProcessDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, definition FROM processes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached processes: %w", err)
	}
	defer rows.Close()

	var defs []models.ProcessDefinition
	for rows.Next() {
		var (
			id   int64
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan cached process: %w", err)
		}
		var def models.ProcessDefinition
		if err := json.Unmarshal([]byte(data), &def); err != nil {
			// A corrupt entry is skipped; the next refresh replaces it.
			s.logger.Error("Failed to unmarshal cached process", zap.Error(err), zap.Int64("id", id))
			continue
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	slices.SortFunc(defs, func(a, b models.ProcessDefinition) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return defs, nil
}

// CachedProcess returns a single cached definition.
func (s *Store) CachedProcess(ctx context.Context, id int64) (*models.ProcessDefinition, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM processes WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("process %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached process: %w", err)
	}

	var def models.ProcessDefinition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("cached process %d is corrupt: %w", id, err)
	}
	return &def, nil
}

// ProcessesCachedAt returns when the snapshot was last refreshed; zero if never.
func (s *Store) ProcessesCachedAt(ctx context.Context) (time.Time, error) {
	var cachedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT cached_at FROM processes ORDER BY cached_at DESC LIMIT 1`).Scan(&cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read cache time: %w", err)
	}
	return cachedAt.Time.UTC(), nil
}

