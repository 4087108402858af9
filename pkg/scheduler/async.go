package scheduler

import (
	"context"
	"sync"
)

// AsyncDebouncer wraps an async operation so that a new call cancels any
// in-flight prior call. A cancelled call's result is discarded and never
// delivered, so stale responses cannot overwrite fresh state.
type AsyncDebouncer[R any] struct {
	mu      sync.Mutex
	fn      func(context.Context) (R, error)
	cancel  context.CancelFunc
	running int
	gen     uint64
}

// NewAsyncDebouncer wraps fn with superseding-call semantics.
func NewAsyncDebouncer[R any](fn func(context.Context) (R, error)) *AsyncDebouncer[R] {
	return &AsyncDebouncer[R]{fn: fn}
}

// Do runs the wrapped operation, first cancelling any in-flight call. If this
// call is itself superseded or cancelled before it completes, the result is
// dropped and context.Canceled is returned.
func (a *AsyncDebouncer[R]) Do(ctx context.Context) (R, error) {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.gen++
	gen := a.gen
	a.running++
	a.mu.Unlock()

	result, err := a.fn(runCtx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.running--
	if gen != a.gen || runCtx.Err() != nil {
		var zero R
		return zero, context.Canceled
	}
	cancel()
	a.cancel = nil
	return result, err
}

// Cancel aborts the in-flight call, if any.
func (a *AsyncDebouncer[R]) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Loading reports whether a call is currently in flight.
func (a *AsyncDebouncer[R]) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running > 0
}
