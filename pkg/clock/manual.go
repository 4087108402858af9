package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a test clock. Time only moves when Advance is called; due timers
// fire synchronously inside Advance, in deadline order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManual returns a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{
		clock:    m,
		deadline: m.now.Add(d),
		fn:       fn,
		pending:  true,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d and fires every timer whose deadline
// falls within the window. Callbacks run synchronously on the calling
// goroutine, outside the clock lock.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	for {
		next := m.nextDueLocked(target)
		if next == nil {
			break
		}
		if next.deadline.After(m.now) {
			m.now = next.deadline
		}
		next.pending = false
		fn := next.fn
		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// nextDueLocked returns the pending timer with the earliest deadline at or
// before target, or nil.
func (m *Manual) nextDueLocked(target time.Time) *manualTimer {
	pending := m.timers[:0:0]
	for _, t := range m.timers {
		if t.pending {
			pending = append(pending, t)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].deadline.Before(pending[j].deadline)
	})
	for _, t := range pending {
		if !t.deadline.After(target) {
			return t
		}
	}
	return nil
}

type manualTimer struct {
	clock    *Manual
	deadline time.Time
	fn       func()
	pending  bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.pending
	t.pending = false
	return was
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.pending
	t.deadline = t.clock.now.Add(d)
	t.pending = true
	return was
}
