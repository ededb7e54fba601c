package progress

import (
	"sync"
	"time"
)

// Throttle rate-limits the chunk-completion progress path to at most one
// emission per interval, per spec.md §4.5.2. Batch-boundary and terminal
// events bypass it entirely (callers invoke Reporter.Emit directly for those).
// Safe for concurrent use, since chunk completions are observed from
// multiple goroutines within a batch.
type Throttle struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Allow reports whether enough time has elapsed since the last allowed call,
// and if so records now as the new baseline.
func (t *Throttle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
