package controller

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ticker pushes a fresh View to onTick on a fixed interval while a record is active.
type Ticker struct {
	ctrl     *Controller
	interval time.Duration
	onTick   func(View)
	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewTicker returns a stopped ticker. A non-positive interval means one second.
func NewTicker(ctrl *Controller, interval time.Duration, logger *zap.Logger) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{
		ctrl:     ctrl,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins calling onTick from a background goroutine.
func (t *Ticker) Start(onTick func(View)) {
	t.onTick = onTick

	t.wg.Add(1)
	go t.loop()

	t.logger.Debug("Display ticker started", zap.Duration("interval", t.interval))
}

// Stop ends the loop and waits for it. It is safe to call more than once.
func (t *Ticker) Stop() {
	t.mu.Lock()
	select {
	case <-t.stopChan:
		t.mu.Unlock()
		return
	default:
		close(t.stopChan)
	}
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Ticker) loop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.tick()

	for {
		select {
		case <-ticker.C:
			t.tick()
		case <-t.stopChan:
			return
		}
	}
}

func (t *Ticker) tick() {
	select {
	case <-t.stopChan:
		return
	default:
	}

	v := t.ctrl.Snapshot()
	if v.State == StateNone || t.onTick == nil {
		return
	}
	t.onTick(v)
}
