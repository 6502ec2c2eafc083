package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"Mansoor88-6/process-tracker/internal/database"
	"Mansoor88-6/process-tracker/internal/localstore"
	"Mansoor88-6/process-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRemote struct {
	mu      sync.Mutex
	pushed  []models.SyncRecord
	calls   int
	reject  map[string]bool
	healthy bool
	probes  int
}

func (f *fakeRemote) PushRecord(_ context.Context, rec models.SyncRecord) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.reject[rec.ClientID] {
		return false
	}
	f.pushed = append(f.pushed, rec)
	return true
}

func (f *fakeRemote) HealthCheck(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if !f.healthy {
		return errors.New("offline")
	}
	return nil
}

func (f *fakeRemote) setHealthy(v bool) {
	f.mu.Lock()
	f.healthy = v
	f.mu.Unlock()
}

func (f *fakeRemote) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

func newStore(t *testing.T) *localstore.Store {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "client.db"), database.ClientSchema, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return localstore.New(db.DB, zap.NewNop())
}

func asUser(id int64) SessionFunc {
	return func() (int64, bool) { return id, true }
}

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func finishedRecord(t *testing.T, s *localstore.Store, processID int64) *models.TimeRecord {
	return finishedRecordFor(t, s, 1, processID)
}

func finishedRecordFor(t *testing.T, s *localstore.Store, userID, processID int64) *models.TimeRecord {
	t.Helper()
	ctx := context.Background()
	rec := &models.TimeRecord{UserID: userID, ProcessID: processID, StartTime: t0}
	require.NoError(t, s.CreateRecord(ctx, rec))
	require.NoError(t, s.StopRecord(ctx, rec.ID, t0.Add(75*time.Second), 75, "ok"))
	return rec
}

func TestSyncPushesRecordWithStepsAndPhotos(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	remote := &fakeRemote{healthy: true}

	rec := &models.TimeRecord{UserID: 1, ProcessID: 5, StartTime: t0}
	require.NoError(t, store.CreateRecord(ctx, rec))
	require.NoError(t, store.StartStep(ctx, rec.ID, 50, t0))
	require.NoError(t, store.CompleteStep(ctx, rec.ID, 50, t0.Add(time.Second)))
	stepID := int64(50)
	require.NoError(t, store.AppendPhoto(ctx, &models.Photo{RecordID: rec.ID, StepID: &stepID, Data: []byte("img"), TakenAt: t0}))
	require.NoError(t, store.StopRecord(ctx, rec.ID, t0.Add(time.Minute), 60, "fine"))

	r := NewReconciler(store, remote, asUser(1), time.Minute, zap.NewNop())
	result := r.Sync(ctx)
	assert.Equal(t, Result{Pushed: 1}, result)

	require.Len(t, remote.pushed, 1)
	got := remote.pushed[0]
	assert.Equal(t, rec.ClientID, got.ClientID)
	assert.True(t, got.EndTime.Equal(t0.Add(time.Minute)))
	assert.Equal(t, int64(60), got.DurationSeconds)
	assert.Equal(t, "fine", got.Comment)
	require.Len(t, got.Steps, 1)
	assert.NotNil(t, got.Steps[0].CompletedAt)
	require.Len(t, got.Photos, 1)
	assert.Equal(t, []byte("img"), got.Photos[0].Data)

	stored, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.Synced)
}

func TestSecondPassMakesNoCalls(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	remote := &fakeRemote{healthy: true}
	finishedRecord(t, store, 1)

	r := NewReconciler(store, remote, asUser(1), time.Minute, zap.NewNop())
	r.Sync(ctx)
	require.Equal(t, 1, remote.calls)

	assert.Equal(t, Result{}, r.Sync(ctx))
	assert.Equal(t, 1, remote.calls)
}

func TestSyncPushesOnlySessionUsersRecords(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	remote := &fakeRemote{healthy: true}
	previous := finishedRecordFor(t, store, 1, 1)
	current := finishedRecordFor(t, store, 2, 1)

	r := NewReconciler(store, remote, asUser(2), time.Minute, zap.NewNop())
	assert.Equal(t, Result{Pushed: 1}, r.Sync(ctx))
	require.Len(t, remote.pushed, 1)
	assert.Equal(t, current.ClientID, remote.pushed[0].ClientID)

	left, err := store.GetRecord(ctx, previous.ID)
	require.NoError(t, err)
	assert.False(t, left.Synced)

	// The first user's record goes out once they log in again.
	r = NewReconciler(store, remote, asUser(1), time.Minute, zap.NewNop())
	assert.Equal(t, Result{Pushed: 1}, r.Sync(ctx))
	assert.Equal(t, previous.ClientID, remote.pushed[1].ClientID)
}

func TestSyncWithoutSessionMakesNoCalls(t *testing.T) {
	store := newStore(t)
	finishedRecord(t, store, 1)
	remote := &fakeRemote{healthy: true}

	r := NewReconciler(store, remote, nil, time.Minute, zap.NewNop())
	assert.Equal(t, Result{}, r.Sync(context.Background()))
	assert.Zero(t, remote.calls)
}

func TestFailedPushStaysUnsyncedAndRetries(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	good := finishedRecord(t, store, 1)
	bad := finishedRecord(t, store, 2)
	remote := &fakeRemote{healthy: true, reject: map[string]bool{bad.ClientID: true}}

	r := NewReconciler(store, remote, asUser(1), time.Minute, zap.NewNop())
	assert.Equal(t, Result{Pushed: 1, Failed: 1}, r.Sync(ctx))

	pending, err := store.UnsyncedRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, bad.ID, pending[0].ID)

	remote.reject = nil
	assert.Equal(t, Result{Pushed: 1}, r.Sync(ctx))
	assert.Equal(t, 3, remote.calls)

	stored, err := store.GetRecord(ctx, good.ID)
	require.NoError(t, err)
	assert.True(t, stored.Synced)
}

func TestRunningRecordIsNotPushed(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.CreateRecord(ctx, &models.TimeRecord{UserID: 1, ProcessID: 1, StartTime: t0}))
	remote := &fakeRemote{healthy: true}

	r := NewReconciler(store, remote, asUser(1), time.Minute, zap.NewNop())
	assert.Equal(t, Result{}, r.Sync(ctx))
	assert.Zero(t, remote.calls)
}

func TestSyncIfOnline(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	finishedRecord(t, store, 1)
	remote := &fakeRemote{}

	r := NewReconciler(store, remote, asUser(1), time.Minute, zap.NewNop())
	_, ran := r.SyncIfOnline(ctx)
	assert.False(t, ran)
	assert.False(t, r.Online())
	assert.Zero(t, remote.calls)

	remote.setHealthy(true)
	result, ran := r.SyncIfOnline(ctx)
	assert.True(t, ran)
	assert.Equal(t, 1, result.Pushed)
	assert.True(t, r.Online())
}

func TestLoopSyncsWhenConnectivityReturns(t *testing.T) {
	store := newStore(t)
	finishedRecord(t, store, 1)
	remote := &fakeRemote{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReconciler(store, remote, asUser(1), 10*time.Millisecond, zap.NewNop())
	r.Start(ctx)
	defer r.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, remote.pushCount())

	remote.setHealthy(true)
	require.Eventually(t, func() bool { return remote.pushCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestLoopSkipsWithoutSession(t *testing.T) {
	store := newStore(t)
	finishedRecord(t, store, 1)
	remote := &fakeRemote{healthy: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReconciler(store, remote, nil, 10*time.Millisecond, zap.NewNop())
	r.Start(ctx)
	r.Trigger()
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	assert.Zero(t, remote.pushCount())
}
