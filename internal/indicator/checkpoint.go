package indicator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/streamta/internal/storage"
	"github.com/mohamedkhairy/streamta/pkg/logger"
)

// PositionFunc reports the last acknowledged stream message ID
type PositionFunc func() string

// Checkpointer periodically snapshots the engine into a SnapshotStore
type Checkpointer struct {
	engine   *Engine
	store    storage.SnapshotStore
	key      string
	interval time.Duration
	position PositionFunc

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	lastAt  time.Time
	lastErr error
}

// NewCheckpointer creates a checkpointer. position may be nil.
func NewCheckpointer(engine *Engine, store storage.SnapshotStore, key string, interval time.Duration, position PositionFunc) *Checkpointer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Checkpointer{
		engine:   engine,
		store:    store,
		key:      key,
		interval: interval,
		position: position,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Restore loads the latest snapshot into the engine. It reports whether a
// snapshot was applied; a missing or incompatible snapshot means a cold start.
func (c *Checkpointer) Restore(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() {
		checkpointLatency.WithLabelValues("restore").Observe(time.Since(start).Seconds())
	}()

	snap, err := c.store.LoadSnapshot(ctx, c.key)
	if err != nil {
		checkpointTotal.WithLabelValues("restore", "error").Inc()
		return false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap == nil {
		checkpointTotal.WithLabelValues("restore", "empty").Inc()
		logger.Info("No snapshot found, starting cold", logger.String("key", c.key))
		return false, nil
	}
	if !snap.Compatible() {
		checkpointTotal.WithLabelValues("restore", "empty").Inc()
		logger.Warn("Ignoring incompatible snapshot, starting cold",
			logger.String("key", c.key),
			logger.Int("version", snap.Version),
		)
		return false, nil
	}

	if err := c.engine.Restore(snap); err != nil {
		checkpointTotal.WithLabelValues("restore", "error").Inc()
		return false, err
	}

	checkpointTotal.WithLabelValues("restore", "success").Inc()
	logger.Info("Restored engine from snapshot",
		logger.String("key", c.key),
		logger.String("stream_id", snap.StreamID),
		logger.Time("taken_at", snap.TakenAt),
		logger.Int("symbols", len(snap.Symbols)),
	)
	return true, nil
}

// Checkpoint snapshots the engine and stores it
func (c *Checkpointer) Checkpoint(ctx context.Context) error {
	start := time.Now()
	defer func() {
		checkpointLatency.WithLabelValues("save").Observe(time.Since(start).Seconds())
	}()

	var streamID string
	if c.position != nil {
		streamID = c.position()
	}
	snap := c.engine.Snapshot(streamID)

	err := c.store.SaveSnapshot(ctx, c.key, snap)

	c.mu.Lock()
	c.lastErr = err
	if err == nil {
		c.lastAt = snap.TakenAt
	}
	c.mu.Unlock()

	if err != nil {
		checkpointTotal.WithLabelValues("save", "error").Inc()
		logger.CountError("indicator", "checkpoint")
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	checkpointTotal.WithLabelValues("save", "success").Inc()
	logger.Debug("Saved engine snapshot",
		logger.String("key", c.key),
		logger.String("stream_id", streamID),
		logger.Int("symbols", len(snap.Symbols)),
		logger.Duration("latency", time.Since(start)),
	)
	return nil
}

// Start checkpoints every interval until stopped
func (c *Checkpointer) Start() error {
	if c.interval <= 0 {
		return fmt.Errorf("checkpoint interval must be positive, got %s", c.interval)
	}
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("checkpointer is already running")
	}
	c.running = true
	c.mu.Unlock()

	logger.Info("Starting checkpointer",
		logger.String("key", c.key),
		logger.Duration("interval", c.interval),
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(c.ctx, c.interval)
				if err := c.Checkpoint(ctx); err != nil {
					logger.Error("Checkpoint failed", logger.ErrorField(err))
				}
				cancel()
			}
		}
	}()
	return nil
}

// Stop stops the periodic loop and writes a final checkpoint
func (c *Checkpointer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return c.Checkpoint(ctx)
}

// Status returns the time of the last successful checkpoint and the last error
func (c *Checkpointer) Status() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAt, c.lastErr
}
