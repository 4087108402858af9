package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andinafx/cambio/pkg/storage"
)

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := New[string](nil, "test:", time.Minute, nil)

	s.Set(ctx, "k", "v", SetOptions{TTL: 40 * time.Millisecond})

	got, ok := s.Get(ctx, "k")
	require.True(t, ok, "entry retrievable immediately")
	assert.Equal(t, "v", got)

	time.Sleep(60 * time.Millisecond)
	_, ok = s.Get(ctx, "k")
	assert.False(t, ok, "entry expired after its TTL")

	// Overwriting an expired entry works.
	s.Set(ctx, "k", "v2", SetOptions{TTL: time.Minute})
	got, ok = s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
}

func TestStoreDurablePromotion(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()

	first := New[int](backend, "rates:", time.Minute, nil)
	first.Set(ctx, "house:7", 42, SetOptions{Persistent: true})

	// A fresh store with an empty memory tier finds the entry durably and
	// promotes it.
	second := New[int](backend, "rates:", time.Minute, nil)
	got, ok := second.Get(ctx, "house:7")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	// Promotion landed in memory: wipe the backend and the entry is still
	// served.
	require.NoError(t, backend.Delete(ctx, "rates:house:7"))
	got, ok = second.Get(ctx, "house:7")
	require.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestStoreDurableEntryExpires(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()

	s := New[int](backend, "rates:", time.Minute, nil)
	s.Set(ctx, "house:1", 1, SetOptions{TTL: 30 * time.Millisecond, Persistent: true})

	time.Sleep(50 * time.Millisecond)

	fresh := New[int](backend, "rates:", time.Minute, nil)
	_, ok := fresh.Get(ctx, "house:1")
	assert.False(t, ok, "expired durable entry is a miss")

	// Lazy expiration: the stale bytes are still in the backend.
	_, exists, err := backend.Get(ctx, "rates:house:1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStoreNonPersistentStaysOutOfDurableTier(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()

	s := New[string](backend, "q:", time.Minute, nil)
	s.Set(ctx, "k", "v", SetOptions{})

	_, exists, err := backend.Get(ctx, "q:k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStoreInvalidatePattern(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()

	s := New[int](backend, "c:", time.Minute, nil)
	s.Set(ctx, "rates:house:1", 1, SetOptions{Persistent: true})
	s.Set(ctx, "rates:house:2", 2, SetOptions{Persistent: true})
	s.Set(ctx, "currencies:all", 3, SetOptions{Persistent: true})

	s.InvalidatePattern(ctx, "rates:")

	assert.False(t, s.Has(ctx, "rates:house:1"))
	assert.False(t, s.Has(ctx, "rates:house:2"))
	assert.True(t, s.Has(ctx, "currencies:all"))

	// Durable tier was scanned too.
	_, exists, err := backend.Get(ctx, "c:rates:house:1")
	require.NoError(t, err)
	assert.False(t, exists)
	_, exists, err = backend.Get(ctx, "c:currencies:all")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStoreRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()

	s := New[int](backend, "c:", time.Minute, nil)
	s.Set(ctx, "a", 1, SetOptions{Persistent: true})
	s.Set(ctx, "b", 2, SetOptions{Persistent: true})

	s.Remove(ctx, "a")
	assert.False(t, s.Has(ctx, "a"))
	assert.True(t, s.Has(ctx, "b"))

	s.Clear(ctx)
	assert.False(t, s.Has(ctx, "b"))
	keys, err := backend.Keys(ctx, "c:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStoreCorruptDurableEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	require.NoError(t, backend.Set(ctx, "c:bad", []byte(`{"data":"not-an-envelope`)))

	s := New[int](backend, "c:", time.Minute, nil)
	_, ok := s.Get(ctx, "bad")
	assert.False(t, ok)
}

func TestWithCacheMemoizes(t *testing.T) {
	ctx := context.Background()
	s := New[string](nil, "memo:", time.Minute, nil)

	calls := 0
	lookup := WithCache(s, func(_ context.Context, houseID int64) (string, error) {
		calls++
		return fmt.Sprintf("rates-for-%d", houseID), nil
	}, func(houseID int64) string {
		return fmt.Sprintf("house:%d", houseID)
	}, SetOptions{})

	for i := 0; i < 3; i++ {
		got, err := lookup(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, "rates-for-9", got)
	}
	assert.Equal(t, 1, calls)

	got, err := lookup(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "rates-for-10", got)
	assert.Equal(t, 2, calls)
}

func TestWithCacheDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	s := New[string](nil, "memo:", time.Minute, nil)

	wantErr := errors.New("upstream down")
	calls := 0
	lookup := WithCache(s, func(context.Context, string) (string, error) {
		calls++
		return "", wantErr
	}, func(k string) string { return k }, SetOptions{})

	_, err := lookup(ctx, "k")
	require.ErrorIs(t, err, wantErr)
	_, err = lookup(ctx, "k")
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 2, calls, "errors are retried, not cached")
}
