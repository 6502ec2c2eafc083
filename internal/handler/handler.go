package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"Mansoor88-6/process-tracker/internal/auth"
	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/service"

	"go.uber.org/zap"
)

// maxBodyBytes bounds JSON bodies. Photo uploads carry base64 data and get their own limit.
const maxBodyBytes = 1 << 20

type validator interface {
	Validate() error
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Success: false, Error: message})
}

// decode reads a JSON body into dst, rejecting unknown fields, and validates it when possible.
func decode(r *http.Request, dst any, limit int64) error {
	if limit <= 0 {
		limit = maxBodyBytes
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &service.ValidationError{Message: "request body is empty"}
		}
		return &service.ValidationError{Message: fmt.Sprintf("invalid request body: %v", err)}
	}
	if v, ok := dst.(validator); ok {
		if err := v.Validate(); err != nil {
			return &service.ValidationError{Message: err.Error()}
		}
	}
	return nil
}

// respondError maps service errors onto HTTP statuses. Unknown errors are logged and hidden.
func respondError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var validation *service.ValidationError
	var account *service.AccountStatusError

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &account):
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{
			Success: false,
			Error:   account.Error(),
			Status:  account.Status,
		})
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses a positive integer path value such as {id}.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Message: fmt.Sprintf("invalid %s %q", name, raw)}
	}
	return id, nil
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &service.ValidationError{Message: fmt.Sprintf("invalid %s %q", name, raw)}
	}
	return v, nil
}

// caller returns the authenticated user's claims. The auth middleware guarantees them on
// protected routes; their absence is answered with 401.
func caller(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return nil, false
	}
	return claims, true
}

func deviceID(r *http.Request) string {
	return r.Header.Get("X-Device-ID")
}
