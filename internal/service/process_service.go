package service

import (
	"context"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/observability"
	"Mansoor88-6/process-tracker/internal/repository"
)

const activeProcessesKey = "active"

type ProcessService struct {
	repo  *repository.ProcessRepository
	cache *ProcessCache
}

func NewProcessService(repo *repository.ProcessRepository, cache *ProcessCache) *ProcessService {
	return &ProcessService{repo: repo, cache: cache}
}

// ListActive returns active processes with ordered steps.
func (s *ProcessService) ListActive(ctx context.Context) ([]models.ProcessDefinition, error) {
	if defs, ok := s.cache.Get(activeProcessesKey); ok {
		observability.ProcessCacheLookup(true)
		return defs, nil
	}
	observability.ProcessCacheLookup(false)

	defs, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	if defs == nil {
		defs = []models.ProcessDefinition{}
	}
	s.cache.Store(activeProcessesKey, defs)
	return defs, nil
}
