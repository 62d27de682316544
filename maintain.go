package resolver

import (
	"context"
	"time"

	"github.com/nsloop/recur/dnscache"
)

// Maintain runs one pass of decay cleanup over w's own per-worker state:
// throttle and EDNS-status entries past expiry/age, and NS-speed collections
// unread since the configured cutoff, per spec.md §4.1-§4.2's prunability
// invariants. Each Worker calls this periodically against its own maps; the
// host owns the schedule.
func (w *Worker) Maintain(now time.Time) {
	cutoff := now
	if w.Limits.NSSpeedCutoff > 0 {
		cutoff = now.Add(-w.Limits.NSSpeedCutoff)
	}
	w.speeds.PruneStale(cutoff)
	w.throttle.Prune(now)
	w.edns.Prune(cutoff)
}

// failureCutoff bounds how long a server-down or non-resolving-NS entry
// survives without a fresh failure, independent of NSSpeedCutoff since
// spec.md leaves the two uncoupled.
const failureCutoff = 30 * time.Minute

// Maintain prunes the process-wide failure counters and cleans cache's
// expired entries. Unlike per-Worker state, this must run exactly once
// across all workers sharing s.
func (s *Shared) Maintain(now time.Time, cache *dnscache.Memory) {
	cutoff := now.Add(-failureCutoff)
	s.Fails.Prune(cutoff)
	s.NonResolving.Prune(cutoff)
	if cache != nil {
		cache.Clean()
	}
}

// RunMaintenance blocks, calling w.Maintain and, once per interval,
// s.Maintain, until ctx is canceled. Intended to run in its own goroutine
// per worker, the one shared-state sweep guarded by running it from a single
// designated worker (typically worker 0) to avoid redundant cache sweeps.
func RunMaintenance(ctx context.Context, w *Worker, sweepShared bool, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.Maintain(now)
			if sweepShared {
				w.Shared.Maintain(now, w.Cache)
			}
		}
	}
}
