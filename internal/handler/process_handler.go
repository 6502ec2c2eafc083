package handler

import (
	"net/http"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/service"

	"go.uber.org/zap"
)

type ProcessHandler struct {
	service *service.ProcessService
	logger  *zap.Logger
}

func NewProcessHandler(service *service.ProcessService, logger *zap.Logger) *ProcessHandler {
	return &ProcessHandler{
		service: service,
		logger:  logger,
	}
}

// List returns the active processes workers can start.
func (h *ProcessHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.ListActive(r.Context())
	if err != nil {
		respondError(w, h.logger, "list processes", err)
		return
	}
	writeJSON(w, http.StatusOK, models.ProcessListResponse{Success: true, Processes: defs})
}
