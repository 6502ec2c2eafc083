package service

import (
	"sync"
	"time"

	"Mansoor88-6/process-tracker/internal/models"

	"go.uber.org/zap"
)

type cachedProcesses struct {
	defs      []models.ProcessDefinition
	timestamp time.Time
}

// ProcessCache keeps process lists for a TTL. Admin writes call Invalidate.
type ProcessCache struct {
	mu        sync.RWMutex
	entries   map[string]*cachedProcesses
	ttl       time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	cleanupWg sync.WaitGroup
}

// NewProcessCache creates a cache and starts its cleanup goroutine. A zero TTL disables caching.
func NewProcessCache(ttl time.Duration, logger *zap.Logger) *ProcessCache {
	c := &ProcessCache{
		entries:  make(map[string]*cachedProcesses),
		ttl:      ttl,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	if ttl > 0 {
		c.cleanupWg.Add(1)
		go c.cleanupLoop()
	}
	return c
}

func (c *ProcessCache) Store(key string, defs []models.ProcessDefinition) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cachedProcesses{defs: defs, timestamp: time.Now()}
}

// Get returns the list for key if present and not expired.
func (c *ProcessCache) Get(key string) ([]models.ProcessDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.defs, true
}

// Invalidate drops every entry.
func (c *ProcessCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) > 0 {
		c.logger.Debug("Process cache invalidated", zap.Int("entries", len(c.entries)))
	}
	c.entries = make(map[string]*cachedProcesses)
}

func (c *ProcessCache) cleanupLoop() {
	defer c.cleanupWg.Done()

	interval := c.ttl
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		}
	}
}

func (c *ProcessCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, entry := range c.entries {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.entries, key)
			expired++
		}
	}
	if expired > 0 {
		c.logger.Debug("Cleaned up expired process lists", zap.Int("count", expired))
	}
}

// Stop stops the cleanup goroutine.
func (c *ProcessCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.cleanupWg.Wait()
}
