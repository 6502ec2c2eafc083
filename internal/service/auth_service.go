package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Mansoor88-6/process-tracker/internal/auth"
	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/observability"
	"Mansoor88-6/process-tracker/internal/repository"

	"go.uber.org/zap"
)

type AuthService struct {
	users  *repository.UserRepository
	issuer *auth.Issuer
	logger *zap.Logger
}

func NewAuthService(users *repository.UserRepository, issuer *auth.Issuer, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, issuer: issuer, logger: logger}
}

// Register creates an account. It stays pending until an admin approves it, except for
// the very first account which becomes an approved admin.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Register(ctx, strings.TrimSpace(req.Username), hash, strings.TrimSpace(req.FirstName))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: username already taken", ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role),
		zap.String("status", user.Status),
	)
	return user, nil
}

// Login verifies credentials and issues a token for approved accounts.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, repository.ErrNotFound) {
		observability.LoginAttempt("invalid")
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			observability.LoginAttempt("invalid")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if user.Status != models.UserStatusApproved {
		observability.LoginAttempt(user.Status)
		return "", nil, &AccountStatusError{Status: user.Status}
	}

	token, _, err := s.issuer.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}

	observability.LoginAttempt("ok")
	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))
	return token, user, nil
}

// Me returns the current profile; accounts revoked after login are rejected.
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	if user.Status != models.UserStatusApproved {
		return nil, &AccountStatusError{Status: user.Status}
	}
	return user, nil
}
