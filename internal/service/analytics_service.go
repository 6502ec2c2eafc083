package service

import (
	"context"
	"time"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/repository"
)

const defaultAnalyticsWindow = 30 * 24 * time.Hour

type AnalyticsService struct {
	repo *repository.AnalyticsRepository
	now  func() time.Time
}

func NewAnalyticsService(repo *repository.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo, now: time.Now}
}

// Report aggregates finished records in [from, to). Zero bounds default to the last 30 days.
func (s *AnalyticsService) Report(ctx context.Context, from, to time.Time) (*models.AnalyticsReport, error) {
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultAnalyticsWindow)
	}
	if !from.Before(to) {
		return nil, invalid("from must be before to")
	}
	return s.repo.Report(ctx, from, to)
}
