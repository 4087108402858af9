// Package cache is the two-tier cache of the back office: a fast in-memory
// tier in front of an optional durable storage tier. Each entry tracks its
// own expiration; expired entries are treated as misses lazily rather than
// evicted eagerly. TTLs are differentiated per cache domain (volatile rate
// data short, near-static reference data long) via config, not a single
// global default.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/andinafx/cambio/pkg/storage"
)

// SetOptions controls a single Set call.
type SetOptions struct {
	// TTL overrides the store default when positive.
	TTL time.Duration
	// Persistent mirrors the entry into the durable tier so it survives a
	// restart.
	Persistent bool
}

// envelope is the durable encoding of one entry. Timestamps are epoch
// milliseconds.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
	ExpiresAt int64           `json:"expires_at"`
}

// Store is a typed two-tier cache. The zero value is not usable; construct
// with New.
type Store[T any] struct {
	mem        *gocache.Cache
	durable    storage.Backend
	namespace  string
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a store. durable may be nil for a memory-only cache; namespace
// prefixes every durable key so several stores can share one backend.
func New[T any](durable storage.Backend, namespace string, defaultTTL time.Duration, logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{
		// No janitor: expiration is lazy, misses on read, overwritten on
		// the next Set.
		mem:        gocache.New(defaultTTL, 0),
		durable:    durable,
		namespace:  namespace,
		defaultTTL: defaultTTL,
		logger:     logger.With(slog.String("component", "cache"), slog.String("namespace", namespace)),
		now:        time.Now,
	}
}

// Get looks up key: memory tier first, then the durable tier. A durable hit
// is promoted back into memory with its remaining TTL.
func (s *Store[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	if v, ok := s.mem.Get(key); ok {
		typed, ok := v.(T)
		if !ok {
			return zero, false
		}
		return typed, true
	}
	if s.durable == nil {
		return zero, false
	}

	raw, ok, err := s.durable.Get(ctx, s.namespace+key)
	if err != nil {
		s.logger.Warn("durable cache read failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn("durable cache entry is corrupt", "key", key, "error", err)
		return zero, false
	}
	remaining := time.UnixMilli(env.ExpiresAt).Sub(s.now())
	if remaining <= 0 {
		// Lazy expiration: stale entries stay until overwritten.
		return zero, false
	}
	var value T
	if err := json.Unmarshal(env.Data, &value); err != nil {
		s.logger.Warn("durable cache entry does not decode", "key", key, "error", err)
		return zero, false
	}
	s.mem.Set(key, value, remaining)
	return value, true
}

// Set stores value under key, overwriting any previous entry in both tiers.
// Durable write failures are logged and swallowed: a cache is best-effort.
func (s *Store[T]) Set(ctx context.Context, key string, value T, opts SetOptions) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.mem.Set(key, value, ttl)

	if !opts.Persistent || s.durable == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value does not encode", "key", key, "error", err)
		return
	}
	now := s.now()
	raw, err := json.Marshal(envelope{
		Data:      data,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		s.logger.Warn("cache envelope does not encode", "key", key, "error", err)
		return
	}
	if err := s.durable.Set(ctx, s.namespace+key, raw); err != nil {
		s.logger.Warn("durable cache write failed", "key", key, "error", err)
	}
}

// Has reports whether key resolves to a live entry in either tier.
func (s *Store[T]) Has(ctx context.Context, key string) bool {
	_, ok := s.Get(ctx, key)
	return ok
}

// Remove drops key from both tiers.
func (s *Store[T]) Remove(ctx context.Context, key string) {
	s.mem.Delete(key)
	if s.durable == nil {
		return
	}
	if err := s.durable.Delete(ctx, s.namespace+key); err != nil {
		s.logger.Warn("durable cache delete failed", "key", key, "error", err)
	}
}

// Clear drops every entry in both tiers.
func (s *Store[T]) Clear(ctx context.Context) {
	s.mem.Flush()
	if s.durable == nil {
		return
	}
	keys, err := s.durable.Keys(ctx, s.namespace)
	if err != nil {
		s.logger.Warn("durable cache scan failed", "error", err)
		return
	}
	for _, k := range keys {
		if err := s.durable.Delete(ctx, k); err != nil {
			s.logger.Warn("durable cache delete failed", "key", k, "error", err)
		}
	}
}

// InvalidatePattern removes every entry whose key contains substr, scanning
// both tiers.
func (s *Store[T]) InvalidatePattern(ctx context.Context, substr string) {
	for key := range s.mem.Items() {
		if strings.Contains(key, substr) {
			s.mem.Delete(key)
		}
	}
	if s.durable == nil {
		return
	}
	keys, err := s.durable.Keys(ctx, s.namespace)
	if err != nil {
		s.logger.Warn("durable cache scan failed", "error", err)
		return
	}
	for _, k := range keys {
		if strings.Contains(strings.TrimPrefix(k, s.namespace), substr) {
			if err := s.durable.Delete(ctx, k); err != nil {
				s.logger.Warn("durable cache delete failed", "key", k, "error", err)
			}
		}
	}
}

// WithCache memoizes fn through the store. Two concurrent misses for the
// same key may both invoke fn; that is acceptable for idempotent reads,
// which is the only kind this cache fronts.
func WithCache[A, T any](s *Store[T], fn func(context.Context, A) (T, error), keyFn func(A) string, opts SetOptions) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		key := keyFn(arg)
		if v, ok := s.Get(ctx, key); ok {
			return v, nil
		}
		v, err := fn(ctx, arg)
		if err != nil {
			var zero T
			return zero, err
		}
		s.Set(ctx, key, v, opts)
		return v, nil
	}
}
