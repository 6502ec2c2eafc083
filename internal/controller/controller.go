// Package controller holds the worker's timer state machine.
//
//	NONE -> RUNNING | STEP_PENDING            (Start)
//	STEP_PENDING -> STEP_DONE                 (CompleteStep)
//	STEP_DONE -> STEP_PENDING                 (NextStep)
//	RUNNING | STEP_DONE -> FINISHING          (RequestStop, CancelStop goes back)
//	FINISHING -> NONE                         (ConfirmStop)
//
// State is derived from the local store, so a restarted client resumes where it left off.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Mansoor88-6/process-tracker/internal/localstore"
	"Mansoor88-6/process-tracker/internal/models"

	"go.uber.org/zap"
)

// State is the timer state shown to the worker.
type State string

const (
	StateNone        State = "NONE"
	StateRunning     State = "RUNNING"
	StateStepPending State = "STEP_PENDING"
	StateStepDone    State = "STEP_DONE"
	StateFinishing   State = "FINISHING"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyActive     = errors.New("a record is already running")
	ErrPhotoRequired     = errors.New("add a photo first")
	ErrNoMoreSteps       = errors.New("no more steps")
	ErrUnknownProcess    = errors.New("unknown process")
)

// Store is the part of the local store the controller drives.
type Store interface {
	CreateRecord(ctx context.Context, rec *models.TimeRecord) error
	StopRecord(ctx context.Context, id int64, endTime time.Time, durationSeconds int64, comment string) error
	ActiveRecord(ctx context.Context, userID int64) (*models.TimeRecord, error)
	StartStep(ctx context.Context, recordID, stepID int64, at time.Time) error
	CompleteStep(ctx context.Context, recordID, stepID int64, at time.Time) error
	Steps(ctx context.Context, recordID int64) ([]models.StepCompletion, error)
	AppendPhoto(ctx context.Context, photo *models.Photo) error
	HasPhotoForStep(ctx context.Context, recordID, stepID int64) (bool, error)
	CachedProcess(ctx context.Context, id int64) (*models.ProcessDefinition, error)
}

// SyncTrigger is notified after a record is finished.
type SyncTrigger interface {
	Online() bool
	Trigger()
}

// View is a read-only snapshot for rendering.
type View struct {
	State       State
	Record      *models.TimeRecord
	Process     *models.ProcessDefinition
	CurrentStep *models.ProcessStep
	StepIndex   int
	StepCount   int
	Elapsed     time.Duration
}

// Controller drives one user's timer over the local store.
type Controller struct {
	store  Store
	userID int64
	sync   SyncTrigger
	now    func() time.Time
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	prevState State
	record    *models.TimeRecord
	process   *models.ProcessDefinition
	stepIndex int
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSync makes ConfirmStop request a sync pass when online.
func WithSync(s SyncTrigger) Option {
	return func(c *Controller) { c.sync = s }
}

// New returns a controller in StateNone. Call Restore to resume an active record.
func New(store Store, userID int64, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		userID:    userID,
		now:       time.Now,
		logger:    logger,
		state:     StateNone,
		stepIndex: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) clock() time.Time {
	return c.now().UTC().Truncate(time.Second)
}

func (c *Controller) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, op, c.state)
}

// Restore derives the state from the local store.
func (c *Controller) Restore(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()

	rec, err := c.store.ActiveRecord(ctx, c.userID)
	if err != nil {
		return c.state, err
	}
	if rec == nil {
		return c.state, nil
	}
	c.record = rec
	c.state = StateRunning

	proc, err := c.store.CachedProcess(ctx, rec.ProcessID)
	if err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			c.logger.Warn("Active record references an uncached process; resuming without steps",
				zap.Int64("record_id", rec.ID),
				zap.Int64("process_id", rec.ProcessID),
			)
			return c.state, nil
		}
		return c.state, err
	}
	c.process = proc
	if !proc.HasSteps() {
		return c.state, nil
	}

	rows, err := c.store.Steps(ctx, rec.ID)
	if err != nil {
		return c.state, err
	}
	if len(rows) == 0 {
		if err := c.openStep(ctx, 0); err != nil {
			return c.state, err
		}
		return c.state, nil
	}

	last := rows[len(rows)-1]
	for _, row := range rows {
		if !row.Done() {
			last = row
			break
		}
	}
	c.stepIndex = proc.StepIndex(last.StepID)
	if c.stepIndex < 0 {
		c.logger.Warn("Open step no longer in process definition; resuming without steps",
			zap.Int64("record_id", rec.ID),
			zap.Int64("step_id", last.StepID),
		)
		c.process = nil
		return c.state, nil
	}
	if last.Done() {
		c.state = StateStepDone
	} else {
		c.state = StateStepPending
	}

	c.logger.Info("Timer restored",
		zap.Int64("record_id", rec.ID),
		zap.String("state", string(c.state)),
		zap.Int("step_index", c.stepIndex),
	)
	return c.state, nil
}

// Start begins a new record for processID.
func (c *Controller) Start(ctx context.Context, processID int64, objectID, assignmentID *int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNone {
		return fmt.Errorf("%w: %w", c.invalid("start"), ErrAlreadyActive)
	}
	active, err := c.store.ActiveRecord(ctx, c.userID)
	if err != nil {
		return err
	}
	if active != nil {
		return ErrAlreadyActive
	}

	proc, err := c.store.CachedProcess(ctx, processID)
	if err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return fmt.Errorf("process %d: %w", processID, ErrUnknownProcess)
		}
		return err
	}
	if !proc.Active {
		return fmt.Errorf("process %d is inactive: %w", processID, ErrUnknownProcess)
	}

	rec := &models.TimeRecord{
		UserID:       c.userID,
		ProcessID:    processID,
		ObjectID:     objectID,
		AssignmentID: assignmentID,
		StartTime:    c.clock(),
	}
	if err := c.store.CreateRecord(ctx, rec); err != nil {
		return err
	}
	c.record = rec
	c.process = proc
	c.state = StateRunning

	if proc.HasSteps() {
		if err := c.openStep(ctx, 0); err != nil {
			return err
		}
	}

	c.logger.Info("Timer started",
		zap.Int64("record_id", rec.ID),
		zap.Int64("process_id", processID),
		zap.String("state", string(c.state)),
	)
	return nil
}

func (c *Controller) openStep(ctx context.Context, index int) error {
	step := c.process.Steps[index]
	if err := c.store.StartStep(ctx, c.record.ID, step.ID, c.clock()); err != nil {
		return err
	}
	c.stepIndex = index
	c.state = StateStepPending
	return nil
}

// CompleteStep marks the current step done. Photo-gated steps need a photo first.
func (c *Controller) CompleteStep(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStepPending {
		return c.invalid("complete step")
	}
	step := c.process.Steps[c.stepIndex]
	if step.RequiresPhoto {
		ok, err := c.store.HasPhotoForStep(ctx, c.record.ID, step.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("step %q: %w", step.Name, ErrPhotoRequired)
		}
	}

	if err := c.store.CompleteStep(ctx, c.record.ID, step.ID, c.clock()); err != nil {
		return err
	}
	c.state = StateStepDone

	c.logger.Debug("Step completed",
		zap.Int64("record_id", c.record.ID),
		zap.Int64("step_id", step.ID),
	)
	return nil
}

// NextStep opens the step after the completed one.
func (c *Controller) NextStep(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStepDone {
		return c.invalid("advance step")
	}
	next := c.stepIndex + 1
	if next >= len(c.process.Steps) {
		return ErrNoMoreSteps
	}
	return c.openStep(ctx, next)
}

// AttachPhoto stores a photo on the active record, and on the current step while one is pending.
func (c *Controller) AttachPhoto(ctx context.Context, data []byte) (*models.Photo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateNone {
		return nil, c.invalid("attach photo")
	}
	photo := &models.Photo{
		RecordID: c.record.ID,
		Data:     data,
		TakenAt:  c.clock(),
	}
	if c.state == StateStepPending {
		stepID := c.process.Steps[c.stepIndex].ID
		photo.StepID = &stepID
	}
	if err := c.store.AppendPhoto(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

// RequestStop asks for confirmation before finishing.
func (c *Controller) RequestStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning && c.state != StateStepDone {
		return c.invalid("stop")
	}
	c.prevState = c.state
	c.state = StateFinishing
	return nil
}

// CancelStop leaves FINISHING and returns to the state before RequestStop.
func (c *Controller) CancelStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateFinishing {
		return c.invalid("cancel stop")
	}
	c.state = c.prevState
	return nil
}

// ConfirmStop finishes the record and returns it.
func (c *Controller) ConfirmStop(ctx context.Context, comment string) (*models.TimeRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateFinishing {
		return nil, c.invalid("confirm stop")
	}

	end := c.clock()
	duration := models.DurationSeconds(c.record.StartTime, end)
	if err := c.store.StopRecord(ctx, c.record.ID, end, duration, comment); err != nil {
		return nil, err
	}

	finished := *c.record
	finished.EndTime = &end
	finished.DurationSeconds = duration
	finished.Comment = comment

	c.logger.Info("Timer stopped",
		zap.Int64("record_id", finished.ID),
		zap.Int64("duration_seconds", duration),
	)

	c.reset()

	if c.sync != nil && c.sync.Online() {
		c.sync.Trigger()
	}
	return &finished, nil
}

func (c *Controller) reset() {
	c.state = StateNone
	c.prevState = StateNone
	c.record = nil
	c.process = nil
	c.stepIndex = -1
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed is derived from the start time and never stored.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed()
}

func (c *Controller) elapsed() time.Duration {
	if c.record == nil {
		return 0
	}
	d := c.clock().Sub(c.record.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Snapshot returns the current state with the elapsed time for display.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:     c.state,
		StepIndex: c.stepIndex,
		Elapsed:   c.elapsed(),
	}
	if c.record != nil {
		rec := *c.record
		v.Record = &rec
	}
	if c.process != nil {
		v.Process = c.process
		v.StepCount = len(c.process.Steps)
		if c.stepIndex >= 0 && c.stepIndex < len(c.process.Steps) {
			step := c.process.Steps[c.stepIndex]
			v.CurrentStep = &step
		}
	}
	return v
}
