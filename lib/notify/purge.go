package notify

import (
	"context"
	"time"

	"github.com/coursekit/coursekit/lib/logger"
)

// --------------------------------------------------------------------------
// Purge Worker
// --------------------------------------------------------------------------

// Default purge tuning, suitable for interactive use.
const (
	DefaultPurgeChunkPause = 100 * time.Millisecond
)

// PurgeConfig configures a purge run. TTLs of zero disable the respective
// side of the purge.
type PurgeConfig struct {
	// UnreadTTL removes unread notifications older than this.
	UnreadTTL time.Duration
	// ReadTTL removes read notifications older than this.
	ReadTTL time.Duration
	// ChunkPause is slept between purge passes, keeping sustained runs from
	// starving interactive load.
	ChunkPause time.Duration
}

// PurgeWorker drives TTL-based purging against a Store. It holds no state
// beyond its configuration; scheduling (cron, timers) is the caller's
// concern.
type PurgeWorker struct {
	store Store
	cfg   PurgeConfig
	log   *logger.Logger
}

// NewPurgeWorker creates a worker. A nil logger is replaced with a nop.
func NewPurgeWorker(store Store, cfg PurgeConfig, log *logger.Logger) *PurgeWorker {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.ChunkPause <= 0 {
		cfg.ChunkPause = DefaultPurgeChunkPause
	}
	return &PurgeWorker{store: store, cfg: cfg, log: log.With("pkg", "notify.purge")}
}

// Run executes one purge pass and returns what it removed.
func (w *PurgeWorker) Run(ctx context.Context) (PurgeResult, error) {
	now := time.Now().UTC()
	cutoffs := PurgeCutoffs{}
	if w.cfg.UnreadTTL > 0 {
		t := now.Add(-w.cfg.UnreadTTL)
		cutoffs.UnreadOlderThan = &t
	}
	if w.cfg.ReadTTL > 0 {
		t := now.Add(-w.cfg.ReadTTL)
		cutoffs.ReadOlderThan = &t
	}
	if cutoffs.UnreadOlderThan == nil && cutoffs.ReadOlderThan == nil {
		return PurgeResult{}, nil
	}

	result, err := w.store.PurgeExpiredNotifications(ctx, cutoffs)
	if err != nil {
		w.log.Error("purge pass failed", "err", err)
		return PurgeResult{}, err
	}
	w.log.Info("purge pass complete", "deleted", result.Deleted, "archived", result.Archived)
	return result, nil
}

// RunEvery executes purge passes separated by the configured pause until the
// context is cancelled. Totals are accumulated and returned.
func (w *PurgeWorker) RunEvery(ctx context.Context, passes int) (PurgeResult, error) {
	var total PurgeResult
	for i := 0; i < passes; i++ {
		result, err := w.Run(ctx)
		if err != nil {
			return total, err
		}
		total.Deleted += result.Deleted
		total.Archived += result.Archived

		if i == passes-1 {
			break
		}
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-time.After(w.cfg.ChunkPause):
		}
	}
	return total, nil
}
