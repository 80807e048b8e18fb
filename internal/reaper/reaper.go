// Package reaper periodically evicts idle job records.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Target removes job records idle since before cutoff.
type Target interface {
	Reap(ctx context.Context, cutoff time.Time) (int, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Config controls the sweep cadence.
type Config struct {
	Interval time.Duration
	MaxIdle  time.Duration
}

// Reaper sweeps Target on a ticker.
type Reaper struct {
	target Target
	clock  Clock
	cfg    Config
	logger *zap.Logger
}

// New constructs a Reaper.
func New(target Target, clock Clock, cfg Config, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 24 * time.Hour
	}
	return &Reaper{target: target, clock: clock, cfg: cfg, logger: logger}
}

// Run blocks, sweeping every Interval until the context finishes.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs a single eviction pass and returns the number of removed records.
func (r *Reaper) Sweep(ctx context.Context) int {
	cutoff := r.clock.Now().Add(-r.cfg.MaxIdle)
	removed, err := r.target.Reap(ctx, cutoff)
	if err != nil {
		r.logger.Error("job reaping failed", zap.Error(err))
	}
	if removed > 0 {
		r.logger.Info("reaped idle jobs", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed
}
