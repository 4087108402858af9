package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andinafx/cambio/pkg/clock"
)

func TestDebouncerPropagatesOnlyLastValue(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))

	var mu sync.Mutex
	var delivered []string
	d := NewDebouncer(clk, 300*time.Millisecond, func(v string) {
		mu.Lock()
		delivered = append(delivered, v)
		mu.Unlock()
	})

	// Burst of ten changes within 50ms.
	values := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, v := range values {
		d.Push(v)
		clk.Advance(5 * time.Millisecond)
	}
	mu.Lock()
	assert.Empty(t, delivered, "nothing delivered inside the burst")
	mu.Unlock()

	clk.Advance(300 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"j"}, delivered)
	mu.Unlock()
}

func TestDebouncerDeliversAgainAfterQuietPeriod(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))

	var delivered []int
	d := NewDebouncer(clk, 100*time.Millisecond, func(v int) {
		delivered = append(delivered, v)
	})

	d.Push(1)
	clk.Advance(100 * time.Millisecond)
	d.Push(2)
	clk.Advance(100 * time.Millisecond)

	assert.Equal(t, []int{1, 2}, delivered)
}

func TestDebouncerStopCancelsPendingDelivery(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))

	fired := false
	d := NewDebouncer(clk, 100*time.Millisecond, func(string) { fired = true })

	d.Push("x")
	d.Stop()
	clk.Advance(time.Second)

	assert.False(t, fired)

	// Pushes after Stop are ignored.
	d.Push("y")
	clk.Advance(time.Second)
	assert.False(t, fired)
}

func TestDebouncerDeliversEachValueAtMostOnce(t *testing.T) {
	// Real clock: every push lands right at the firing boundary, where the
	// timer goroutine and a Push race for the lock. A fire that lost that
	// race must not deliver, and the re-armed timer must not produce a
	// second delivery of the same value.
	const delay = 2 * time.Millisecond

	var mu sync.Mutex
	var delivered []int
	d := NewDebouncer(clock.New(), delay, func(v int) {
		mu.Lock()
		delivered = append(delivered, v)
		mu.Unlock()
	})

	for i := 0; i < 200; i++ {
		d.Push(i)
		time.Sleep(delay)
	}
	time.Sleep(20 * delay)
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, delivered)
	seen := make(map[int]bool, len(delivered))
	for _, v := range delivered {
		require.False(t, seen[v], "value %d delivered twice", v)
		seen[v] = true
	}
}

func TestCallbackDebouncerRunsLastCallback(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))

	var got string
	d := NewCallbackDebouncer(clk, 200*time.Millisecond)
	d.Call(func() { got = "first" })
	clk.Advance(50 * time.Millisecond)
	d.Call(func() { got = "second" })
	clk.Advance(200 * time.Millisecond)

	assert.Equal(t, "second", got)
}

func TestAsyncDebouncerSupersedesInFlightCall(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	a := NewAsyncDebouncer(func(ctx context.Context) (string, error) {
		started <- struct{}{}
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	type outcome struct {
		result string
		err    error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		r, err := a.Do(context.Background())
		firstDone <- outcome{r, err}
	}()
	<-started
	assert.True(t, a.Loading())

	secondDone := make(chan outcome, 1)
	go func() {
		r, err := a.Do(context.Background())
		secondDone <- outcome{r, err}
	}()
	<-started

	// First call was cancelled by the second; its result is discarded.
	first := <-firstDone
	require.ErrorIs(t, first.err, context.Canceled)
	assert.Empty(t, first.result)

	close(release)
	second := <-secondDone
	require.NoError(t, second.err)
	assert.Equal(t, "done", second.result)
	assert.False(t, a.Loading())
}

func TestAsyncDebouncerExplicitCancel(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	a := NewAsyncDebouncer(func(ctx context.Context) (int, error) {
		started <- struct{}{}
		select {
		case <-release:
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := a.Do(context.Background())
		done <- err
	}()
	<-started
	a.Cancel()

	require.ErrorIs(t, <-done, context.Canceled)
}

func TestAsyncDebouncerPropagatesOperationError(t *testing.T) {
	wantErr := errors.New("gateway unavailable")
	a := NewAsyncDebouncer(func(ctx context.Context) (int, error) {
		return 0, wantErr
	})

	_, err := a.Do(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestThrottlerDropsCallsInsideWindow(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	th := NewThrottler(clk, time.Second)

	assert.True(t, th.Allow(), "first call passes")
	assert.False(t, th.Allow())
	clk.Advance(500 * time.Millisecond)
	assert.False(t, th.Allow())
	clk.Advance(500 * time.Millisecond)
	assert.True(t, th.Allow(), "window elapsed")
	assert.False(t, th.Allow())

	th.Reset()
	assert.True(t, th.Allow(), "reset clears the window")
}
