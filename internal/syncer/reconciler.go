// Package syncer pushes finished local records to the server whenever it is reachable.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Mansoor88-6/process-tracker/internal/models"

	"go.uber.org/zap"
)

// RecordSource is the part of the local store the reconciler reads and updates.
type RecordSource interface {
	UnsyncedRecords(ctx context.Context, userID int64) ([]models.TimeRecord, error)
	Steps(ctx context.Context, recordID int64) ([]models.StepCompletion, error)
	Photos(ctx context.Context, recordID int64) ([]models.Photo, error)
	MarkSynced(ctx context.Context, id int64) error
}

// Remote is the part of the API client the reconciler talks to.
type Remote interface {
	PushRecord(ctx context.Context, record models.SyncRecord) bool
	HealthCheck(ctx context.Context) error
}

// SessionFunc reports the user logged in on this device, if any.
type SessionFunc func() (userID int64, ok bool)

// Result summarizes one pass.
type Result struct {
	Pushed int
	Failed int
}

// Reconciler drains unsynced finished records through the remote. Passes never overlap;
// a record that fails to push stays unsynced and is retried on the next pass.
type Reconciler struct {
	store         RecordSource
	remote        Remote
	session       SessionFunc
	probeInterval time.Duration
	logger        *zap.Logger

	passMu sync.Mutex

	mu       sync.RWMutex
	online   bool
	lastSync time.Time
	last     Result
	running  bool

	trigger  chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewReconciler builds a reconciler that pushes the records of whichever user session
// reports. Without a session a pass does nothing.
func NewReconciler(store RecordSource, remote Remote, session SessionFunc, probeInterval time.Duration, logger *zap.Logger) *Reconciler {
	if probeInterval <= 0 {
		probeInterval = 30 * time.Second
	}
	if session == nil {
		session = func() (int64, bool) { return 0, false }
	}
	return &Reconciler{
		store:         store,
		remote:        remote,
		session:       session,
		probeInterval: probeInterval,
		logger:        logger,
		trigger:       make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
	}
}

// Sync runs one pass over the logged-in user's unsynced records. Records of other users
// stay local; the server files every pushed record under the session's account.
func (r *Reconciler) Sync(ctx context.Context) Result {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	var result Result
	userID, ok := r.session()
	if !ok {
		return result
	}
	records, err := r.store.UnsyncedRecords(ctx, userID)
	if err != nil {
		r.logger.Error("Failed to read unsynced records", zap.Error(err))
		return result
	}
	if len(records) == 0 {
		return result
	}

	r.logger.Debug("Processing unsynced records", zap.Int("pending_count", len(records)))

	for i := range records {
		rec := &records[i]
		payload, err := r.buildPayload(ctx, rec)
		if err != nil {
			r.logger.Error("Failed to build sync payload", zap.Error(err), zap.Int64("record_id", rec.ID))
			result.Failed++
			continue
		}

		if !r.remote.PushRecord(ctx, payload) {
			result.Failed++
			continue
		}

		if err := r.store.MarkSynced(ctx, rec.ID); err != nil {
			// The server upserts by client id, so re-sending next pass is harmless.
			r.logger.Error("Failed to mark record synced", zap.Error(err), zap.Int64("record_id", rec.ID))
			result.Failed++
			continue
		}
		result.Pushed++
	}

	r.mu.Lock()
	r.lastSync = time.Now()
	r.last = result
	r.mu.Unlock()

	r.logger.Info("Sync pass finished",
		zap.Int("pushed", result.Pushed),
		zap.Int("failed", result.Failed),
	)
	return result
}

// SyncIfOnline probes the server and runs a pass only when it answers.
func (r *Reconciler) SyncIfOnline(ctx context.Context) (Result, bool) {
	if !r.probe(ctx) {
		return Result{}, false
	}
	return r.Sync(ctx), true
}

func (r *Reconciler) buildPayload(ctx context.Context, rec *models.TimeRecord) (models.SyncRecord, error) {
	if rec.EndTime == nil {
		return models.SyncRecord{}, fmt.Errorf("record %d is still running", rec.ID)
	}

	steps, err := r.store.Steps(ctx, rec.ID)
	if err != nil {
		return models.SyncRecord{}, err
	}
	photos, err := r.store.Photos(ctx, rec.ID)
	if err != nil {
		return models.SyncRecord{}, err
	}

	payload := models.SyncRecord{
		ClientID:        rec.ClientID,
		ProcessID:       rec.ProcessID,
		ObjectID:        rec.ObjectID,
		AssignmentID:    rec.AssignmentID,
		StartTime:       rec.StartTime,
		EndTime:         *rec.EndTime,
		DurationSeconds: rec.DurationSeconds,
		Comment:         rec.Comment,
	}
	for _, s := range steps {
		payload.Steps = append(payload.Steps, models.SyncStep{
			StepID:      s.StepID,
			StartedAt:   s.StartedAt,
			CompletedAt: s.CompletedAt,
		})
	}
	for _, p := range photos {
		payload.Photos = append(payload.Photos, models.SyncPhoto{
			StepID:  p.StepID,
			Data:    p.Data,
			TakenAt: p.TakenAt,
		})
	}
	return payload, nil
}

// Start runs a pass at launch when a session exists, then probes connectivity every
// probe interval and runs a pass on each offline to online transition or Trigger call.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info("Starting sync reconciler", zap.Duration("probe_interval", r.probeInterval))

	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop stops the background loop and waits for an in-flight pass to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Sync reconciler stopped")
}

// Trigger requests a pass from the background loop. It never blocks.
func (r *Reconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Online reports the result of the last connectivity probe.
func (r *Reconciler) Online() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.online
}

// LastSync returns when the last pass finished and its outcome.
func (r *Reconciler) LastSync() (time.Time, Result) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync, r.last
}

func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	if r.probe(ctx) && r.hasSession() {
		r.Sync(ctx)
	}

	ticker := time.NewTicker(r.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wasOnline := r.Online()
			if r.probe(ctx) && !wasOnline && r.hasSession() {
				r.logger.Info("Connectivity restored, syncing")
				r.Sync(ctx)
			}
		case <-r.trigger:
			if r.hasSession() {
				r.Sync(ctx)
			}
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) hasSession() bool {
	_, ok := r.session()
	return ok
}

func (r *Reconciler) probe(ctx context.Context) bool {
	err := r.remote.HealthCheck(ctx)
	online := err == nil

	r.mu.Lock()
	changed := r.online != online
	r.online = online
	r.mu.Unlock()

	if changed {
		r.logger.Info("Connectivity changed", zap.Bool("online", online))
	}
	if err != nil {
		r.logger.Debug("Health check failed", zap.Error(err))
	}
	return online
}
