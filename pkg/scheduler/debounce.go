// Package scheduler provides debounce and throttle primitives built on
// cancellable delayed-task handles from pkg/clock, so every behavior is
// testable against a manual clock.
package scheduler

import (
	"sync"
	"time"

	"github.com/andinafx/cambio/pkg/clock"
)

// Debouncer delays propagating a changing value until it has been stable for
// the configured delay. Every Push restarts the timer; only the last value
// inside the stability window reaches the sink, never an intermediate one.
type Debouncer[T any] struct {
	mu       sync.Mutex
	clk      clock.Clock
	delay    time.Duration
	sink     func(T)
	pending  T
	timer    clock.Timer
	deadline time.Time
	stopped  bool
}

// NewDebouncer returns a value debouncer delivering stable values to sink.
func NewDebouncer[T any](clk clock.Clock, delay time.Duration, sink func(T)) *Debouncer[T] {
	return &Debouncer[T]{clk: clk, delay: delay, sink: sink}
}

// Push records v as the candidate value and restarts the stability window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = v
	d.deadline = d.clk.Now().Add(d.delay)
	if d.timer != nil {
		d.timer.Reset(d.delay)
		return
	}
	d.timer = d.clk.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	// A Push that raced this fire (timer expired, goroutine blocked on the
	// lock) has already re-armed the timer and moved the deadline forward;
	// delivering now would hand out a value with zero stability and the
	// re-armed timer would deliver it a second time. Skip; the re-armed
	// fire delivers at the new deadline.
	if d.clk.Now().Before(d.deadline) {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.timer = nil
	sink := d.sink
	d.mu.Unlock()
	sink(v)
}

// Stop cancels any pending delivery. Further pushes are ignored; a stopped
// debouncer never invokes its sink again.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// CallbackDebouncer delays invoking a callback until calls stop arriving for
// the configured delay. Only the last call's closure runs.
type CallbackDebouncer struct {
	inner *Debouncer[func()]
}

// NewCallbackDebouncer returns a trailing-edge callback debouncer.
func NewCallbackDebouncer(clk clock.Clock, delay time.Duration) *CallbackDebouncer {
	return &CallbackDebouncer{
		inner: NewDebouncer(clk, delay, func(fn func()) { fn() }),
	}
}

// Call schedules fn; a later Call before the delay elapses replaces it.
func (c *CallbackDebouncer) Call(fn func()) { c.inner.Push(fn) }

// Stop cancels the pending callback so nothing fires after disposal.
func (c *CallbackDebouncer) Stop() { c.inner.Stop() }
