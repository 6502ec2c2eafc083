package service

import (
	"context"
	"strings"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/repository"

	"go.uber.org/zap"
)

// AdminService manages users and the reference data workers run against.
// Every process write invalidates the process cache.
type AdminService struct {
	users       *repository.UserRepository
	processes   *repository.ProcessRepository
	objects     *repository.ObjectRepository
	assignments *repository.AssignmentRepository
	cache       *ProcessCache
	logger      *zap.Logger
}

func NewAdminService(
	users *repository.UserRepository,
	processes *repository.ProcessRepository,
	objects *repository.ObjectRepository,
	assignments *repository.AssignmentRepository,
	cache *ProcessCache,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		users:       users,
		processes:   processes,
		objects:     objects,
		assignments: assignments,
		cache:       cache,
		logger:      logger,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, status string) ([]*models.User, error) {
	return s.users.List(ctx, status)
}

// SetUserStatus approves, rejects or re-pends a user. An admin cannot demote or lock out themselves.
func (s *AdminService) SetUserStatus(ctx context.Context, actorID, userID int64, req models.UserStatusRequest) (*models.User, error) {
	if actorID == userID && (req.Status != models.UserStatusApproved || (req.Role != "" && req.Role != models.RoleAdmin)) {
		return nil, invalid("admins cannot revoke their own access")
	}
	user, err := s.users.UpdateStatus(ctx, userID, req.Status, req.Role)
	if err != nil {
		return nil, translate(err)
	}
	s.logger.Info("User status changed",
		zap.Int64("user_id", userID),
		zap.Int64("actor_id", actorID),
		zap.String("status", user.Status),
		zap.String("role", user.Role),
	)
	return user, nil
}

func (s *AdminService) ListProcesses(ctx context.Context) ([]models.ProcessDefinition, error) {
	return s.processes.List(ctx, true)
}

func (s *AdminService) GetProcess(ctx context.Context, id int64) (*models.ProcessDefinition, error) {
	def, err := s.processes.Get(ctx, id)
	return def, translate(err)
}

func (s *AdminService) CreateProcess(ctx context.Context, in models.ProcessInput) (*models.ProcessDefinition, error) {
	in.Name = strings.TrimSpace(in.Name)
	def, err := s.processes.Create(ctx, in)
	if err != nil {
		return nil, translate(err)
	}
	s.cache.Invalidate()
	s.logger.Info("Process created", zap.Int64("process_id", def.ID), zap.Int("steps", len(def.Steps)))
	return def, nil
}

func (s *AdminService) UpdateProcess(ctx context.Context, id int64, in models.ProcessInput) (*models.ProcessDefinition, error) {
	in.Name = strings.TrimSpace(in.Name)
	def, err := s.processes.Update(ctx, id, in)
	if err != nil {
		return nil, translate(err)
	}
	s.cache.Invalidate()
	s.logger.Info("Process updated", zap.Int64("process_id", id))
	return def, nil
}

// DeactivateProcess hides a process from workers. Its history stays intact.
func (s *AdminService) DeactivateProcess(ctx context.Context, id int64) error {
	if err := s.processes.SetActive(ctx, id, false); err != nil {
		return translate(err)
	}
	s.cache.Invalidate()
	s.logger.Info("Process deactivated", zap.Int64("process_id", id))
	return nil
}

func (s *AdminService) ListObjects(ctx context.Context) ([]*models.WorkObject, error) {
	return s.objects.List(ctx)
}

func (s *AdminService) CreateObject(ctx context.Context, in models.ObjectInput) (*models.WorkObject, error) {
	obj, err := s.objects.Create(ctx, in)
	return obj, translate(err)
}

func (s *AdminService) UpdateObject(ctx context.Context, id int64, in models.ObjectInput) (*models.WorkObject, error) {
	obj, err := s.objects.Update(ctx, id, in)
	return obj, translate(err)
}

func (s *AdminService) DeleteObject(ctx context.Context, id int64) error {
	return translate(s.objects.Delete(ctx, id))
}

func (s *AdminService) ListAssignments(ctx context.Context, userID int64) ([]*models.Assignment, error) {
	return s.assignments.List(ctx, userID)
}

func (s *AdminService) CreateAssignment(ctx context.Context, in models.AssignmentInput) (*models.Assignment, error) {
	a, err := s.assignments.Create(ctx, in)
	return a, translate(err)
}

func (s *AdminService) DeleteAssignment(ctx context.Context, id int64) error {
	return translate(s.assignments.Delete(ctx, id))
}
