package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Mansoor88-6/process-tracker/internal/models"
)

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Report aggregates finished records whose start time falls in [from, to).
func (r *AnalyticsRepository) Report(ctx context.Context, from, to time.Time) (*models.AnalyticsReport, error) {
	from, to = from.UTC(), to.UTC()
	report := &models.AnalyticsReport{
		From:      from,
		To:        to,
		ByProcess: []models.ProcessTotal{},
		ByUser:    []models.UserTotal{},
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration_seconds), 0)
		FROM records
		WHERE end_time IS NOT NULL AND start_time >= ? AND start_time < ?
	`, from, to).Scan(&report.TotalRecords, &report.TotalSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	if report.TotalRecords > 0 {
		report.AverageSeconds = float64(report.TotalSeconds) / float64(report.TotalRecords)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, COUNT(*), COALESCE(SUM(r.duration_seconds), 0)
		FROM records r
		JOIN processes p ON p.id = r.process_id
		WHERE r.end_time IS NOT NULL AND r.start_time >= ? AND r.start_time < ?
		GROUP BY p.id, p.name
		ORDER BY 4 DESC, p.id ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query process totals: %w", err)
	}
	for rows.Next() {
		var t models.ProcessTotal
		if err := rows.Scan(&t.ProcessID, &t.Name, &t.Records, &t.TotalSeconds); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan process total: %w", err)
		}
		report.ByProcess = append(report.ByProcess, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `
		SELECT u.id, u.username, COUNT(*), COALESCE(SUM(r.duration_seconds), 0)
		FROM records r
		JOIN users u ON u.id = r.user_id
		WHERE r.end_time IS NOT NULL AND r.start_time >= ? AND r.start_time < ?
		GROUP BY u.id, u.username
		ORDER BY 4 DESC, u.id ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query user totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t models.UserTotal
		if err := rows.Scan(&t.UserID, &t.Username, &t.Records, &t.TotalSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan user total: %w", err)
		}
		report.ByUser = append(report.ByUser, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return report, nil
}
