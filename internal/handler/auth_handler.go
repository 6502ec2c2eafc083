package handler

import (
	"errors"
	"net/http"

	"Mansoor88-6/process-tracker/internal/auth"
	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/service"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service *service.AuthService
	logger  *zap.Logger
}

func NewAuthHandler(service *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req, 0); err != nil {
		respondError(w, h.logger, "login", err)
		return
	}

	token, user, err := h.service.Login(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Success: true,
		Token:   token,
		User:    user.View(),
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req, 0); err != nil {
		respondError(w, h.logger, "register", err)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, "register", err)
		return
	}

	message := "Registration received, waiting for administrator approval"
	if user.Status == models.UserStatusApproved {
		message = "Registered as administrator"
	}
	writeJSON(w, http.StatusCreated, models.RegisterResponse{Success: true, Message: message})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, h.logger, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, models.MeResponse{Success: true, User: user.View()})
}

// RequireApproved re-checks the caller's account on every authenticated request, so a
// token issued before an admin rejected or demoted the account stops working at once.
// Requests without claims pass through; the auth middleware has already decided them.
func (h *AuthHandler) RequireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.service.Me(r.Context(), claims.UserID)
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		if err != nil {
			respondError(w, h.logger, "account check", err)
			return
		}

		current := *claims
		current.Role = user.Role
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), &current)))
	})
}
