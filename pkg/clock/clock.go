// Package clock abstracts wall-clock time behind a small interface so the
// scheduler and session timers can be driven by a manual clock in tests
// instead of real sleeps.
package clock

import "time"

// Timer is a cancellable delayed task handle.
type Timer interface {
	// Stop cancels the pending fire. It reports whether the timer was
	// still pending.
	Stop() bool
	// Reset re-arms the timer to fire after d. It reports whether the
	// timer was still pending before the reset.
	Reset(d time.Duration) bool
}

// Clock supplies the current time and schedules delayed tasks.
type Clock interface {
	Now() time.Time
	// AfterFunc runs fn after d has elapsed, on an unspecified goroutine.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Real is the production clock backed by the time package.
type Real struct{}

// New returns the production clock.
func New() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool                 { return r.t.Stop() }
func (r realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
