package scheduler

import (
	"sync"
	"time"

	"github.com/andinafx/cambio/pkg/clock"
)

// Throttler permits at most one invocation per interval, measured by elapsed
// clock time since the last permitted call. Calls inside the window are
// dropped, not queued.
type Throttler struct {
	mu       sync.Mutex
	clk      clock.Clock
	interval time.Duration
	last     time.Time
}

// NewThrottler returns a throttler with the given minimum interval.
func NewThrottler(clk clock.Clock, interval time.Duration) *Throttler {
	return &Throttler{clk: clk, interval: interval}
}

// Allow reports whether a call may proceed now. The first call always
// passes.
func (t *Throttler) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Reset forgets the last permitted call, so the next Allow passes.
func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = time.Time{}
}
