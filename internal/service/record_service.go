package service

import (
	"context"
	"fmt"
	"time"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/observability"
	"Mansoor88-6/process-tracker/internal/repository"

	"go.uber.org/zap"
)

// RecordService handles records timed online, their steps and photos.
type RecordService struct {
	records       *repository.RecordRepository
	timings       *repository.StepTimingRepository
	photos        *repository.PhotoRepository
	processes     *repository.ProcessRepository
	maxPhotoBytes int64
	now           func() time.Time
	logger        *zap.Logger
}

func NewRecordService(
	records *repository.RecordRepository,
	timings *repository.StepTimingRepository,
	photos *repository.PhotoRepository,
	processes *repository.ProcessRepository,
	maxPhotoBytes int64,
	logger *zap.Logger,
) *RecordService {
	return &RecordService{
		records:       records,
		timings:       timings,
		photos:        photos,
		processes:     processes,
		maxPhotoBytes: maxPhotoBytes,
		now:           time.Now,
		logger:        logger,
	}
}

func (s *RecordService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// Start opens a record for the user. A user can have one running record at a time.
func (s *RecordService) Start(ctx context.Context, userID int64, deviceID string, req models.StartRecordRequest) (*models.Record, error) {
	proc, err := s.processes.Get(ctx, req.ProcessID)
	if err != nil {
		return nil, translate(err)
	}
	if !proc.Active {
		return nil, invalid("process %d is inactive", proc.ID)
	}

	active, err := s.records.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("%w: record %d is already running", ErrConflict, active.ID)
	}

	rec := &models.Record{
		UserID:       userID,
		ProcessID:    req.ProcessID,
		ObjectID:     req.ObjectID,
		AssignmentID: req.AssignmentID,
		DeviceID:     deviceID,
		StartTime:    s.clock(),
	}
	if err := s.records.Start(ctx, rec); err != nil {
		return nil, translate(err)
	}

	observability.RecordStarted()
	s.logger.Info("Record started",
		zap.Int64("record_id", rec.ID),
		zap.Int64("user_id", userID),
		zap.Int64("process_id", rec.ProcessID),
	)
	return rec, nil
}

// owned loads a record and hides records of other users behind ErrNotFound.
func (s *RecordService) owned(ctx context.Context, userID, recordID int64) (*models.Record, error) {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, translate(err)
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("%w: record %d", ErrNotFound, recordID)
	}
	return rec, nil
}

// Stop finishes the user's record and computes its duration.
func (s *RecordService) Stop(ctx context.Context, userID, recordID int64, comment string) (*models.Record, error) {
	rec, err := s.owned(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}

	end := s.clock()
	duration := models.DurationSeconds(rec.StartTime, end)
	if err := s.records.Stop(ctx, recordID, end, duration, comment); err != nil {
		return nil, translate(err)
	}
	rec.EndTime = &end
	rec.DurationSeconds = &duration
	rec.Comment = comment

	observability.RecordStopped()
	s.logger.Info("Record stopped",
		zap.Int64("record_id", recordID),
		zap.Int64("duration_seconds", duration),
	)
	return rec, nil
}

// StartStep opens a timing for a step of the user's running record.
func (s *RecordService) StartStep(ctx context.Context, userID, recordID, stepID int64) (*models.StepTiming, error) {
	rec, err := s.owned(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if rec.EndTime != nil {
		return nil, fmt.Errorf("%w: record %d is finished", ErrConflict, recordID)
	}

	proc, err := s.processes.Get(ctx, rec.ProcessID)
	if err != nil {
		return nil, translate(err)
	}
	if proc.StepIndex(stepID) < 0 {
		return nil, invalid("step %d does not belong to process %d", stepID, proc.ID)
	}

	timing, err := s.timings.Start(ctx, recordID, stepID, s.clock())
	if err != nil {
		return nil, translate(err)
	}
	return timing, nil
}

// StopStep closes one of the user's step timings.
func (s *RecordService) StopStep(ctx context.Context, userID, timingID int64) (*models.StepTiming, error) {
	timing, err := s.timings.Get(ctx, timingID)
	if err != nil {
		return nil, translate(err)
	}
	if _, err := s.owned(ctx, userID, timing.RecordID); err != nil {
		return nil, err
	}

	timing, err = s.timings.Stop(ctx, timingID, s.clock())
	if err != nil {
		return nil, translate(err)
	}
	return timing, nil
}

// UploadPhoto attaches a photo to the user's record.
func (s *RecordService) UploadPhoto(ctx context.Context, userID, recordID int64, req models.PhotoUploadRequest) (*models.StoredPhoto, error) {
	if _, err := s.owned(ctx, userID, recordID); err != nil {
		return nil, err
	}

	data, err := req.Decode()
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if s.maxPhotoBytes > 0 && int64(len(data)) > s.maxPhotoBytes {
		return nil, invalid("photo exceeds %d bytes", s.maxPhotoBytes)
	}

	photo := &models.StoredPhoto{
		RecordID: recordID,
		StepID:   req.StepID,
		Comment:  req.Comment,
		TakenAt:  s.clock(),
	}
	if err := s.photos.Create(ctx, photo, data); err != nil {
		return nil, translate(err)
	}

	observability.PhotoUploaded(photo.Size)
	s.logger.Debug("Photo stored",
		zap.Int64("record_id", recordID),
		zap.Int64("photo_id", photo.ID),
		zap.Int64("size", photo.Size),
	)
	return photo, nil
}

// History returns the user's records, newest first.
func (s *RecordService) History(ctx context.Context, userID int64, limit, offset int) ([]*models.Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.records.ListByUser(ctx, userID, limit, offset)
}
