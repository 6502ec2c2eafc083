package handler

import (
	"net/http"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/service"

	"go.uber.org/zap"
)

// syncPhotosPerBody is how many full-size photos a single sync body may carry.
const syncPhotosPerBody = 16

type RecordHandler struct {
	records   *service.RecordService
	sync      *service.SyncService
	photoBody int64
	logger    *zap.Logger
}

// NewRecordHandler sizes body limits from the largest accepted photo. Photos travel as base64.
func NewRecordHandler(records *service.RecordService, sync *service.SyncService, maxPhotoBytes int64, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		records:   records,
		sync:      sync,
		photoBody: maxPhotoBytes/3*4 + maxBodyBytes,
		logger:    logger,
	}
}

func (h *RecordHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	var req models.StartRecordRequest
	if err := decode(r, &req, 0); err != nil {
		respondError(w, h.logger, "start record", err)
		return
	}

	rec, err := h.records.Start(r.Context(), claims.UserID, deviceID(r), req)
	if err != nil {
		respondError(w, h.logger, "start record", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.StartRecordResponse{ID: rec.ID, StartTime: rec.StartTime})
}

func (h *RecordHandler) Stop(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "stop record", err)
		return
	}

	var req models.StopRecordRequest
	if err := decode(r, &req, 0); err != nil {
		respondError(w, h.logger, "stop record", err)
		return
	}

	rec, err := h.records.Stop(r.Context(), claims.UserID, id, req.Comment)
	if err != nil {
		respondError(w, h.logger, "stop record", err)
		return
	}
	writeJSON(w, http.StatusOK, models.StopRecordResponse{EndTime: *rec.EndTime, Duration: *rec.DurationSeconds})
}

func (h *RecordHandler) StartStep(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	recordID, err := pathID(r, "recordId")
	if err != nil {
		respondError(w, h.logger, "start step", err)
		return
	}
	stepID, err := pathID(r, "stepId")
	if err != nil {
		respondError(w, h.logger, "start step", err)
		return
	}

	timing, err := h.records.StartStep(r.Context(), claims.UserID, recordID, stepID)
	if err != nil {
		respondError(w, h.logger, "start step", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.StepStartResponse{ID: timing.ID, StartedAt: timing.StartedAt})
}

func (h *RecordHandler) StopStep(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, "stop step", err)
		return
	}

	timing, err := h.records.StopStep(r.Context(), claims.UserID, id)
	if err != nil {
		respondError(w, h.logger, "stop step", err)
		return
	}

	var duration int64
	if timing.DurationSeconds != nil {
		duration = *timing.DurationSeconds
	}
	writeJSON(w, http.StatusOK, models.StepStopResponse{EndedAt: *timing.EndedAt, Duration: duration})
}

func (h *RecordHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	recordID, err := pathID(r, "recordId")
	if err != nil {
		respondError(w, h.logger, "upload photo", err)
		return
	}

	var req models.PhotoUploadRequest
	if err := decode(r, &req, h.photoBody); err != nil {
		respondError(w, h.logger, "upload photo", err)
		return
	}

	photo, err := h.records.UploadPhoto(r.Context(), claims.UserID, recordID, req)
	if err != nil {
		respondError(w, h.logger, "upload photo", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.PhotoUploadResponse{ID: photo.ID, Digest: photo.Digest, Size: photo.Size})
}

// History lists the caller's own records, newest first.
func (h *RecordHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondError(w, h.logger, "history", err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, h.logger, "history", err)
		return
	}

	records, err := h.records.History(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		respondError(w, h.logger, "history", err)
		return
	}

	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, *rec)
	}
	writeJSON(w, http.StatusOK, models.RecordListResponse{Success: true, Records: out})
}

// Sync ingests records finished while the client was offline.
func (h *RecordHandler) Sync(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	var req models.SyncRequest
	if err := decode(r, &req, h.photoBody*syncPhotosPerBody); err != nil {
		respondError(w, h.logger, "sync", err)
		return
	}

	synced, err := h.sync.Ingest(r.Context(), claims.UserID, deviceID(r), req)
	if err != nil {
		respondError(w, h.logger, "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SyncResponse{Success: true, Synced: synced})
}
