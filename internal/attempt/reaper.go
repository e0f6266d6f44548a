package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Reaper periodically drops idle sessions from a Manager.
type Reaper struct {
	manager  *Manager
	idle     time.Duration
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewReaper creates a reaper that removes sessions idle for longer than idle.
func NewReaper(manager *Manager, idle time.Duration, logger *slog.Logger) *Reaper {
	interval := idle / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Reaper{
		manager:  manager,
		idle:     idle,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the reaper loop is active.
func (r *Reaper) Running() bool {
	return r.running.Load()
}

// Start runs the reap loop until ctx ends or Stop is called. Call in a
// goroutine.
func (r *Reaper) Start(ctx context.Context) {
	r.running.Store(true)
	defer r.running.Store(false)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.safeReap(ctx)
		}
	}
}

// Stop signals the reaper to stop.
func (r *Reaper) Stop() {
	select {
	case r.stop <- struct{}{}:
	default:
	}
}

func (r *Reaper) safeReap(ctx context.Context) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("panic in attempt reaper", "panic", fmt.Sprint(v))
		}
	}()
	if n := r.manager.ReapIdle(ctx, r.idle); n > 0 {
		r.logger.Info("reaped idle attempts", "count", n, "remaining", r.manager.Len())
	}
}
