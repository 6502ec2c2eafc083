package service

import (
	"context"
	"time"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/observability"
	"Mansoor88-6/process-tracker/internal/repository"

	"go.uber.org/zap"
)

// SyncService ingests records finished offline.
type SyncService struct {
	records       *repository.RecordRepository
	maxPhotoBytes int64
	logger        *zap.Logger
}

func NewSyncService(records *repository.RecordRepository, maxPhotoBytes int64, logger *zap.Logger) *SyncService {
	return &SyncService{records: records, maxPhotoBytes: maxPhotoBytes, logger: logger}
}

// Ingest stores every record of the batch. Re-sending a record is harmless: it is
// matched by (user, client id) and overwritten.
func (s *SyncService) Ingest(ctx context.Context, userID int64, deviceID string, req models.SyncRequest) (int, error) {
	for _, rec := range req.Records {
		for _, p := range rec.Photos {
			if s.maxPhotoBytes > 0 && int64(len(p.Data)) > s.maxPhotoBytes {
				return 0, invalid("record %s: photo exceeds %d bytes", rec.ClientID, s.maxPhotoBytes)
			}
		}
	}

	synced := 0
	for _, rec := range req.Records {
		id, err := s.records.Upsert(ctx, userID, deviceID, rec)
		if err != nil {
			s.logger.Warn("Failed to ingest record",
				zap.Error(err),
				zap.Int64("user_id", userID),
				zap.String("client_id", rec.ClientID),
			)
			return synced, translate(err)
		}
		synced++
		s.logger.Debug("Record ingested",
			zap.Int64("record_id", id),
			zap.String("client_id", rec.ClientID),
			zap.String("device_id", deviceID),
		)
	}

	observability.RecordsIngested(synced, time.Now())
	return synced, nil
}
