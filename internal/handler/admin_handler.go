package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/service"

	"go.uber.org/zap"
)

// AdminHandler serves the administration API. The router only mounts it behind RequireAdmin.
type AdminHandler struct {
	admin     *service.AdminService
	analytics *service.AnalyticsService
	logger    *zap.Logger
}

func NewAdminHandler(admin *service.AdminService, analytics *service.AnalyticsService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:     admin,
		analytics: analytics,
		logger:    logger,
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, h.logger, "list users", err)
		return
	}

	views := make([]models.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": views})
}

func (h *AdminHandler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "set user status", err)
		return
	}

	var req models.UserStatusRequest
	if err := decode(r, &req, 0); err != nil {
		respondError(w, h.logger, "set user status", err)
		return
	}

	user, err := h.admin.SetUserStatus(r.Context(), claims.UserID, id, req)
	if err != nil {
		respondError(w, h.logger, "set user status", err)
		return
	}
	writeJSON(w, http.StatusOK, models.MeResponse{Success: true, User: user.View()})
}

func (h *AdminHandler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	defs, err := h.admin.ListProcesses(r.Context())
	if err != nil {
		respondError(w, h.logger, "list processes", err)
		return
	}
	writeJSON(w, http.StatusOK, models.ProcessListResponse{Success: true, Processes: defs})
}

func (h *AdminHandler) GetProcess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "get process", err)
		return
	}
	def, err := h.admin.GetProcess(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, "get process", err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *AdminHandler) CreateProcess(w http.ResponseWriter, r *http.Request) {
	var in models.ProcessInput
	if err := decode(r, &in, 0); err != nil {
		respondError(w, h.logger, "create process", err)
		return
	}
	def, err := h.admin.CreateProcess(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, "create process", err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

func (h *AdminHandler) UpdateProcess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "update process", err)
		return
	}
	var in models.ProcessInput
	if err := decode(r, &in, 0); err != nil {
		respondError(w, h.logger, "update process", err)
		return
	}
	def, err := h.admin.UpdateProcess(r.Context(), id, in)
	if err != nil {
		respondError(w, h.logger, "update process", err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// DeactivateProcess hides a process from workers. Its records are kept.
func (h *AdminHandler) DeactivateProcess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "deactivate process", err)
		return
	}
	if err := h.admin.DeactivateProcess(r.Context(), id); err != nil {
		respondError(w, h.logger, "deactivate process", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	objects, err := h.admin.ListObjects(r.Context())
	if err != nil {
		respondError(w, h.logger, "list objects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "objects": objects})
}

func (h *AdminHandler) CreateObject(w http.ResponseWriter, r *http.Request) {
	var in models.ObjectInput
	if err := decode(r, &in, 0); err != nil {
		respondError(w, h.logger, "create object", err)
		return
	}
	obj, err := h.admin.CreateObject(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, "create object", err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

func (h *AdminHandler) UpdateObject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "update object", err)
		return
	}
	var in models.ObjectInput
	if err := decode(r, &in, 0); err != nil {
		respondError(w, h.logger, "update object", err)
		return
	}
	obj, err := h.admin.UpdateObject(r.Context(), id, in)
	if err != nil {
		respondError(w, h.logger, "update object", err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (h *AdminHandler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "delete object", err)
		return
	}
	if err := h.admin.DeleteObject(r.Context(), id); err != nil {
		respondError(w, h.logger, "delete object", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAssignments accepts an optional userId filter.
func (h *AdminHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, h.logger, "list assignments", &service.ValidationError{Message: fmt.Sprintf("invalid userId %q", raw)})
			return
		}
		userID = id
	}

	assignments, err := h.admin.ListAssignments(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, "list assignments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "assignments": assignments})
}

func (h *AdminHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var in models.AssignmentInput
	if err := decode(r, &in, 0); err != nil {
		respondError(w, h.logger, "create assignment", err)
		return
	}
	a, err := h.admin.CreateAssignment(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, "create assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AdminHandler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "delete assignment", err)
		return
	}
	if err := h.admin.DeleteAssignment(r.Context(), id); err != nil {
		respondError(w, h.logger, "delete assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics reports totals over [from, to). Bounds are RFC 3339 timestamps or plain dates.
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	from, err := parseBound(r, "from")
	if err != nil {
		respondError(w, h.logger, "analytics", err)
		return
	}
	to, err := parseBound(r, "to")
	if err != nil {
		respondError(w, h.logger, "analytics", err)
		return
	}

	report, err := h.analytics.Report(r.Context(), from, to)
	if err != nil {
		respondError(w, h.logger, "analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseBound(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, &service.ValidationError{Message: fmt.Sprintf("invalid %s %q", name, raw)}
}
