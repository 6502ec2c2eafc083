package controller

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Mansoor88-6/process-tracker/internal/database"
	"Mansoor88-6/process-tracker/internal/localstore"
	"Mansoor88-6/process-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeSync struct {
	online   bool
	triggers int
}

func (f *fakeSync) Online() bool { return f.online }
func (f *fakeSync) Trigger()     { f.triggers++ }

const (
	plainProcess = int64(1)
	stepProcess  = int64(2)
	oldProcess   = int64(3)
)

func newFixture(t *testing.T) (*localstore.Store, *fakeClock) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "client.db"), database.ClientSchema, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := localstore.New(db.DB, zap.NewNop())
	clock := &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}

	defs := []models.ProcessDefinition{
		{ID: plainProcess, Name: "Cleaning", Active: true},
		{ID: stepProcess, Name: "Assembly", Sequential: true, Active: true, Steps: []models.ProcessStep{
			{ID: 21, ProcessID: stepProcess, StepNumber: 1, Name: "Unpack"},
			{ID: 22, ProcessID: stepProcess, StepNumber: 2, Name: "Mount", RequiresPhoto: true},
		}},
		{ID: oldProcess, Name: "Retired", Active: false},
	}
	require.NoError(t, store.CacheProcesses(context.Background(), defs, clock.Now()))
	return store, clock
}

func TestStartStopPlainProcess(t *testing.T) {
	ctx := context.Background()
	store, clock := newFixture(t)
	syncer := &fakeSync{online: true}
	c := New(store, 7, zap.NewNop(), WithClock(clock.Now), WithSync(syncer))

	require.NoError(t, c.Start(ctx, plainProcess, nil, nil))
	assert.Equal(t, StateRunning, c.State())

	clock.Advance(95 * time.Second)
	assert.Equal(t, 95*time.Second, c.Elapsed())

	require.NoError(t, c.RequestStop())
	require.NoError(t, c.CancelStop())
	assert.Equal(t, StateRunning, c.State())

	require.NoError(t, c.RequestStop())
	rec, err := c.ConfirmStop(ctx, "all good")
	require.NoError(t, err)
	assert.Equal(t, StateNone, c.State())
	assert.Equal(t, int64(95), rec.DurationSeconds)
	assert.Equal(t, 1, syncer.triggers)

	stored, err := store.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EndTime)
	assert.Equal(t, int64(95), stored.DurationSeconds)
	assert.Equal(t, "all good", stored.Comment)
	assert.Equal(t, int64(7), stored.UserID)

	active, err := store.ActiveRecord(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestConfirmStopOfflineDoesNotTrigger(t *testing.T) {
	ctx := context.Background()
	store, clock := newFixture(t)
	syncer := &fakeSync{}
	c := New(store, 7, zap.NewNop(), WithClock(clock.Now), WithSync(syncer))

	require.NoError(t, c.Start(ctx, plainProcess, nil, nil))
	require.NoError(t, c.RequestStop())
	_, err := c.ConfirmStop(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, syncer.triggers)
}

func TestStartRejections(t *testing.T) {
	ctx := context.Background()
	store, clock := newFixture(t)
	c := New(store, 7, zap.NewNop(), WithClock(clock.Now))

	assert.ErrorIs(t, c.Start(ctx, 99, nil, nil), ErrUnknownProcess)
	assert.ErrorIs(t, c.Start(ctx, oldProcess, nil, nil), ErrUnknownProcess)

	require.NoError(t, c.Start(ctx, plainProcess, nil, nil))
	assert.ErrorIs(t, c.Start(ctx, plainProcess, nil, nil), ErrAlreadyActive)

	// A second controller for the same user sees the persisted record.
	other := New(store, 7, zap.NewNop(), WithClock(clock.Now))
	assert.ErrorIs(t, other.Start(ctx, plainProcess, nil, nil), ErrAlreadyActive)
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	store, clock := newFixture(t)
	c := New(store, 7, zap.NewNop(), WithClock(clock.Now))

	assert.ErrorIs(t, c.RequestStop(), ErrInvalidTransition)
	assert.ErrorIs(t, c.CancelStop(), ErrInvalidTransition)
	assert.ErrorIs(t, c.CompleteStep(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, c.NextStep(ctx), ErrInvalidTransition)
	_, err := c.ConfirmStop(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = c.AttachPhoto(ctx, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, c.Start(ctx, stepProcess, nil, nil))
	assert.Equal(t, StateStepPending, c.State())
	assert.ErrorIs(t, c.RequestStop(), ErrInvalidTransition)
}

func TestStepsWithPhotoGate(t *testing.T) {
	ctx := context.Background()
	store, clock := newFixture(t)
	c := New(store, 7, zap.NewNop(), WithClock(clock.Now))

	require.NoError(t, c.Start(ctx, stepProcess, nil, nil))
	v := c.Snapshot()
	require.NotNil(t, v.CurrentStep)
	assert.Equal(t, "Unpack", v.CurrentStep.Name)
	assert.Equal(t, 2, v.StepCount)

	// Photos taken outside a pending step only attach to the record.
	clock.Advance(10 * time.Second)
	require.NoError(t, c.CompleteStep(ctx))
	assert.Equal(t, StateStepDone, c.State())
	photo, err := c.AttachPhoto(ctx, []byte("overview"))
	require.NoError(t, err)
	assert.Nil(t, photo.StepID)

	require.NoError(t, c.NextStep(ctx))
	assert.Equal(t, "Mount", c.Snapshot().CurrentStep.Name)

	err = c.CompleteStep(ctx)
	assert.ErrorIs(t, err, ErrPhotoRequired)
	assert.Equal(t, StateStepPending, c.State())

	photo, err = c.AttachPhoto(ctx, []byte("mounted"))
	require.NoError(t, err)
	require.NotNil(t, photo.StepID)
	assert.Equal(t, int64(22), *photo.StepID)

	require.NoError(t, c.CompleteStep(ctx))
	assert.ErrorIs(t, c.NextStep(ctx), ErrNoMoreSteps)
	assert.Equal(t, StateStepDone, c.State())

	require.NoError(t, c.RequestStop())
	rec, err := c.ConfirmStop(ctx, "")
	require.NoError(t, err)

	steps, err := store.Steps(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	for _, s := range steps {
		assert.True(t, s.Done())
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store, clock := newFixture(t)

	fresh := New(store, 7, zap.NewNop(), WithClock(clock.Now))
	state, err := fresh.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateNone, state)

	c := New(store, 7, zap.NewNop(), WithClock(clock.Now))
	require.NoError(t, c.Start(ctx, stepProcess, nil, nil))

	restored := New(store, 7, zap.NewNop(), WithClock(clock.Now))
	state, err = restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStepPending, state)
	assert.Equal(t, 0, restored.Snapshot().StepIndex)

	require.NoError(t, c.CompleteStep(ctx))

	restored = New(store, 7, zap.NewNop(), WithClock(clock.Now))
	state, err = restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStepDone, state)

	require.NoError(t, restored.NextStep(ctx))
	assert.Equal(t, int64(22), restored.Snapshot().CurrentStep.ID)

	clock.Advance(time.Minute)
	assert.Equal(t, time.Minute, restored.Elapsed())
}

func TestRestorePlainRunning(t *testing.T) {
	ctx := context.Background()
	store, clock := newFixture(t)

	c := New(store, 7, zap.NewNop(), WithClock(clock.Now))
	require.NoError(t, c.Start(ctx, plainProcess, nil, nil))

	restored := New(store, 7, zap.NewNop(), WithClock(clock.Now))
	state, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
	require.NoError(t, restored.RequestStop())
}

func TestTickerEmitsWhileActive(t *testing.T) {
	ctx := context.Background()
	store, clock := newFixture(t)
	c := New(store, 7, zap.NewNop(), WithClock(clock.Now))

	var ticks atomic.Int32
	ticker := NewTicker(c, 5*time.Millisecond, zap.NewNop())
	ticker.Start(func(v View) {
		assert.NotEqual(t, StateNone, v.State)
		ticks.Add(1)
	})

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, ticks.Load())

	require.NoError(t, c.Start(ctx, plainProcess, nil, nil))
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, 5*time.Millisecond)

	ticker.Stop()
	ticker.Stop()
}
