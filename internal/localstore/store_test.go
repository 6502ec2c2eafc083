package localstore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"Mansoor88-6/process-tracker/internal/blob"
	"Mansoor88-6/process-tracker/internal/database"
	"Mansoor88-6/process-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "client.db"), database.ClientSchema, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db.DB, zap.NewNop())
}

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func startRecord(t *testing.T, s *Store, userID, processID int64, at time.Time) *models.TimeRecord {
	t.Helper()
	rec := &models.TimeRecord{UserID: userID, ProcessID: processID, StartTime: at}
	require.NoError(t, s.CreateRecord(context.Background(), rec))
	return rec
}

func TestCreateAndStopRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := startRecord(t, s, 1, 10, t0)
	assert.NotZero(t, rec.ID)
	assert.NotEmpty(t, rec.ClientID)

	active, err := s.ActiveRecord(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, rec.ID, active.ID)
	assert.True(t, active.Active())
	assert.True(t, active.StartTime.Equal(t0))

	end := t0.Add(90 * time.Second)
	require.NoError(t, s.StopRecord(ctx, rec.ID, end, 90, "done"))

	got, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(end))
	assert.Equal(t, int64(90), got.DurationSeconds)
	assert.Equal(t, "done", got.Comment)
	assert.False(t, got.Synced)

	active, err = s.ActiveRecord(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, active)

	err = s.StopRecord(ctx, rec.ID, end, 90, "again")
	assert.True(t, errors.Is(err, ErrAlreadyStopped))

	err = s.StopRecord(ctx, 999, end, 1, "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestActiveRecordIsPerUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	startRecord(t, s, 1, 10, t0)

	active, err := s.ActiveRecord(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestUnsyncedOnlyReturnsFinishedRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	running := startRecord(t, s, 1, 10, t0)
	first := startRecord(t, s, 1, 10, t0.Add(-2*time.Hour))
	second := startRecord(t, s, 1, 11, t0.Add(-time.Hour))
	other := startRecord(t, s, 2, 11, t0)
	require.NoError(t, s.StopRecord(ctx, first.ID, t0.Add(-2*time.Hour+time.Minute), 60, ""))
	require.NoError(t, s.StopRecord(ctx, second.ID, t0, 3600, ""))
	require.NoError(t, s.StopRecord(ctx, other.ID, t0.Add(time.Minute), 60, ""))

	pending, err := s.UnsyncedRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	count, err := s.PendingCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Another user's records stay out of this user's queue.
	pending, err = s.UnsyncedRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, other.ID, pending[0].ID)

	require.NoError(t, s.MarkSynced(ctx, first.ID))
	pending, err = s.UnsyncedRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	// A running record cannot be acknowledged.
	err = s.MarkSynced(ctx, running.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecentRecordsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		rec := startRecord(t, s, 1, 10, t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.StopRecord(ctx, rec.ID, rec.StartTime.Add(time.Minute), 60, ""))
	}

	recent, err := s.RecentRecords(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].StartTime.After(recent[1].StartTime))
}

func TestStepsAreUniquePerRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rec := startRecord(t, s, 1, 10, t0)

	require.NoError(t, s.StartStep(ctx, rec.ID, 100, t0))
	err := s.StartStep(ctx, rec.ID, 100, t0.Add(time.Second))
	assert.True(t, errors.Is(err, ErrStepExists))

	require.NoError(t, s.CompleteStep(ctx, rec.ID, 100, t0.Add(time.Minute)))
	err = s.CompleteStep(ctx, rec.ID, 100, t0.Add(2*time.Minute))
	assert.True(t, errors.Is(err, ErrStepNotOpen))

	require.NoError(t, s.StartStep(ctx, rec.ID, 101, t0.Add(time.Minute)))

	steps, err := s.Steps(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, int64(100), steps[0].StepID)
	assert.True(t, steps[0].Done())
	assert.Equal(t, int64(101), steps[1].StepID)
	assert.False(t, steps[1].Done())
}

func TestPhotosForStep(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rec := startRecord(t, s, 1, 10, t0)
	stepID := int64(100)

	has, err := s.HasPhotoForStep(ctx, rec.ID, stepID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.AppendPhoto(ctx, &models.Photo{RecordID: rec.ID, Data: []byte("general"), TakenAt: t0}))
	has, err = s.HasPhotoForStep(ctx, rec.ID, stepID)
	require.NoError(t, err)
	assert.False(t, has)

	photo := &models.Photo{RecordID: rec.ID, StepID: &stepID, Data: []byte{0xff, 0xd8}, TakenAt: t0}
	require.NoError(t, s.AppendPhoto(ctx, photo))
	assert.NotZero(t, photo.ID)

	has, err = s.HasPhotoForStep(ctx, rec.ID, stepID)
	require.NoError(t, err)
	assert.True(t, has)

	photos, err := s.Photos(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Nil(t, photos[0].StepID)
	require.NotNil(t, photos[1].StepID)
	assert.Equal(t, stepID, *photos[1].StepID)
	assert.Equal(t, []byte{0xff, 0xd8}, photos[1].Data)
	assert.Equal(t, photo.Digest, photos[1].Digest)

	assert.Error(t, s.AppendPhoto(ctx, &models.Photo{RecordID: rec.ID, TakenAt: t0}))
}

func TestPhotosAreStoredCompressed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rec := startRecord(t, s, 1, 10, t0)

	raw := bytes.Repeat([]byte("jpeg-scanline "), 512)
	photo := &models.Photo{RecordID: rec.ID, Data: raw, TakenAt: t0}
	require.NoError(t, s.AppendPhoto(ctx, photo))
	assert.Equal(t, blob.Digest(raw), photo.Digest)

	var stored []byte
	var size int64
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT data, size FROM photos WHERE id = ?`, photo.ID).Scan(&stored, &size))
	assert.Less(t, len(stored), len(raw))
	assert.Equal(t, int64(len(raw)), size)

	photos, err := s.Photos(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, raw, photos[0].Data)

	_, err = s.db.ExecContext(ctx, `UPDATE photos SET digest = 'bogus' WHERE id = ?`, photo.ID)
	require.NoError(t, err)
	_, err = s.Photos(ctx, rec.ID)
	assert.Error(t, err)
}

func TestCacheProcessesReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cachedAt, err := s.ProcessesCachedAt(ctx)
	require.NoError(t, err)
	assert.True(t, cachedAt.IsZero())

	defs := []models.ProcessDefinition{
		{ID: 2, Name: "Welding", Active: true},
		{ID: 1, Name: "Assembly", Sequential: true, Active: true, Steps: []models.ProcessStep{
			{ID: 11, ProcessID: 1, StepNumber: 1, Name: "Unpack"},
			{ID: 12, ProcessID: 1, StepNumber: 2, Name: "Mount", RequiresPhoto: true},
		}},
	}
	require.NoError(t, s.CacheProcesses(ctx, defs, t0))

	got, err := s.CachedProcesses(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Assembly", got[0].Name)
	assert.Equal(t, "Welding", got[1].Name)

	one, err := s.CachedProcess(ctx, 1)
	require.NoError(t, err)
	assert.True(t, one.HasSteps())
	assert.True(t, one.Steps[1].RequiresPhoto)

	cachedAt, err = s.ProcessesCachedAt(ctx)
	require.NoError(t, err)
	assert.True(t, cachedAt.Equal(t0))

	require.NoError(t, s.CacheProcesses(ctx, defs[:1], t0.Add(time.Hour)))
	_, err = s.CachedProcess(ctx, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}
