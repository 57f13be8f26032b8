package upload

import (
	"context"
	"time"

	"github.com/ava-vs/chunkvault/internal/logging"
)

// Sweeper periodically removes expired upload sessions. It is an
// independent scheduled task, never part of any request path.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	maxAge   time.Duration
	logger   logging.Logger
}

func NewSweeper(manager *Manager, interval, maxAge time.Duration, logger logging.Logger) *Sweeper {
	return &Sweeper{
		manager:  manager,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With("module", "upload_sweeper"),
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info(ctx, "sweeper started", "interval", sw.interval.String(), "max_age", sw.maxAge.String())

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			if n := sw.manager.Sweep(ctx, sw.maxAge); n > 0 {
				sw.logger.Info(ctx, "sweep finished", "sessions_removed", n)
			}
		}
	}
}
