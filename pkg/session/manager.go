// Package session owns the teller-window session state machine:
//
//	closed -> open <-> paused -> closed
//
// The Manager is the single owner of the session. Consumers receive value
// copies (View) and the teller service re-checks Allowed before every
// conversion action instead of trusting its callers.
//
// The snapshot is persisted through a storage.Backend on every
// state-affecting transition and restored on startup; a missing or corrupt
// snapshot restores as closed (fail-safe). The store is not locked against a
// second process opening the same window: the back office is single-owner
// per window, and the platform is the authority on double opens.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andinafx/cambio/pkg/clock"
	"github.com/andinafx/cambio/pkg/domain"
	"github.com/andinafx/cambio/pkg/gateway"
	"github.com/andinafx/cambio/pkg/storage"
)

// SnapshotKey is the single durable key holding the serialized session.
const SnapshotKey = "cambio:window:session"

var (
	// ErrNotClosed rejects Open when a session already exists.
	ErrNotClosed = errors.New("window session is not closed")
	// ErrNotOpen rejects Pause when the session is not open.
	ErrNotOpen = errors.New("window session is not open")
	// ErrNotPaused rejects Resume when the session is not paused.
	ErrNotPaused = errors.New("window session is not paused")
	// ErrNotActive rejects Close when there is no session to close.
	ErrNotActive = errors.New("window session is not active")
)

// Gateway is the slice of the platform client the state machine needs.
type Gateway interface {
	OpenWindow(ctx context.Context, req gateway.OpenWindowRequest) (gateway.WindowConfirmation, error)
	CloseWindow(ctx context.Context, req gateway.CloseWindowRequest) error
}

// View is a read-only copy of the session for consumers.
type View = domain.WindowSession

// OpenRequest carries everything the open transition needs.
type OpenRequest struct {
	WindowID        int64
	ExchangeHouseID int64
	OperatorID      int64
	OpeningBalances []gateway.Balance
}

// CloseRequest carries the closing-balance reconciliation.
type CloseRequest struct {
	ClosingBalances []gateway.Balance
}

// Manager is the session state machine.
type Manager struct {
	mu       sync.Mutex
	gw       Gateway
	store    storage.Backend
	clk      clock.Clock
	logger   *slog.Logger
	current  domain.WindowSession
	pausedAt time.Time
	onClose  []func()
}

// NewManager returns a Manager in the closed state. Call Restore to pick up
// a persisted session.
func NewManager(gw Gateway, store storage.Backend, clk clock.Clock, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		gw:      gw,
		store:   store,
		clk:     clk,
		logger:  logger.With(slog.String("component", "session")),
		current: domain.WindowSession{Status: domain.WindowClosed},
	}
}

// OnClose registers a callback invoked after a successful close transition.
// The teller service uses this to clear its working state.
func (m *Manager) OnClose(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = append(m.onClose, fn)
}

// Restore loads the persisted snapshot. Anything short of a well-formed
// active session (missing key, bad JSON, unknown status tag, zero IDs)
// restores as closed and scrubs the bad snapshot.
func (m *Manager) Restore(ctx context.Context) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = domain.WindowSession{Status: domain.WindowClosed}

	raw, ok, err := m.store.Get(ctx, SnapshotKey)
	if err != nil {
		m.logger.Warn("session snapshot read failed, restoring closed", "error", err)
		return m.current
	}
	if !ok {
		return m.current
	}

	var snap domain.WindowSession
	if err := json.Unmarshal(raw, &snap); err != nil {
		m.logger.Warn("session snapshot is corrupt, restoring closed", "error", err)
		m.scrubLocked(ctx)
		return m.current
	}
	if !snap.Status.Valid() || !snap.Active() || snap.WindowID <= 0 || snap.ExchangeHouseID <= 0 {
		m.logger.Warn("session snapshot fails validation, restoring closed",
			"status", string(snap.Status), "window_id", snap.WindowID)
		m.scrubLocked(ctx)
		return m.current
	}

	m.current = snap
	if snap.Status == domain.WindowPaused {
		m.pausedAt = m.clk.Now()
	}
	m.logger.Info("session restored",
		"window_id", snap.WindowID, "status", string(snap.Status))
	return m.current
}

// Open transitions closed -> open. The platform call commits opening
// balances; on failure the state machine stays closed.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.WindowClosed {
		return m.current, ErrNotClosed
	}

	conf, err := m.gw.OpenWindow(ctx, gateway.OpenWindowRequest{
		WindowID:        req.WindowID,
		ExchangeHouseID: req.ExchangeHouseID,
		OperatorID:      req.OperatorID,
		OpeningBalances: req.OpeningBalances,
	})
	if err != nil {
		m.logger.Error("window open failed", "window_id", req.WindowID, "error", err)
		return m.current, fmt.Errorf("open window %d: %w", req.WindowID, err)
	}

	openedAt := conf.OpenedAt
	if openedAt.IsZero() {
		openedAt = m.clk.Now()
	}
	m.current = domain.WindowSession{
		WindowID:          req.WindowID,
		ExchangeHouseID:   req.ExchangeHouseID,
		WindowName:        conf.WindowName,
		OperatorName:      conf.OperatorName,
		ExchangeHouseName: conf.ExchangeHouseName,
		OpenedAt:          openedAt,
		Status:            domain.WindowOpen,
	}
	m.persistLocked(ctx)
	m.logger.Info("window opened",
		"window_id", req.WindowID, "house_id", req.ExchangeHouseID)
	return m.current, nil
}

// Pause transitions open -> paused. Purely client-local: the platform is not
// called, but the snapshot records the pause so a restart restores the lock.
func (m *Manager) Pause(ctx context.Context) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.WindowOpen {
		return m.current, ErrNotOpen
	}
	m.current.Status = domain.WindowPaused
	m.pausedAt = m.clk.Now()
	m.persistLocked(ctx)
	m.logger.Info("window paused", "window_id", m.current.WindowID)
	return m.current, nil
}

// Resume transitions paused -> open and resets the pause counter.
func (m *Manager) Resume(ctx context.Context) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.WindowPaused {
		return m.current, ErrNotPaused
	}
	m.current.Status = domain.WindowOpen
	m.pausedAt = time.Time{}
	m.persistLocked(ctx)
	m.logger.Info("window resumed", "window_id", m.current.WindowID)
	return m.current, nil
}

// Close transitions open|paused -> closed. On platform failure the prior
// state is kept untouched; on success the snapshot is deleted and the
// OnClose callbacks run.
func (m *Manager) Close(ctx context.Context, req CloseRequest) error {
	m.mu.Lock()

	if !m.current.Active() {
		m.mu.Unlock()
		return ErrNotActive
	}

	windowID := m.current.WindowID
	err := m.gw.CloseWindow(ctx, gateway.CloseWindowRequest{
		WindowID:        windowID,
		ClosingBalances: req.ClosingBalances,
	})
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("window close failed", "window_id", windowID, "error", err)
		return fmt.Errorf("close window %d: %w", windowID, err)
	}

	m.current = domain.WindowSession{Status: domain.WindowClosed}
	m.pausedAt = time.Time{}
	m.scrubLocked(ctx)
	callbacks := make([]func(), len(m.onClose))
	copy(callbacks, m.onClose)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	m.logger.Info("window closed", "window_id", windowID)
	return nil
}

// Current returns a read-only copy of the session.
func (m *Manager) Current() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Allowed reports whether conversion actions may run. Only an open window
// qualifies; paused and closed both gate everything.
func (m *Manager) Allowed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Status == domain.WindowOpen
}

// PausedFor reports how long the current pause has lasted, or zero when the
// session is not paused. Resume resets it.
func (m *Manager) PausedFor() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Status != domain.WindowPaused || m.pausedAt.IsZero() {
		return 0
	}
	return m.clk.Now().Sub(m.pausedAt)
}

// persistLocked serializes the session under SnapshotKey. Persistence
// failures are logged, not fatal: the in-memory machine stays authoritative
// for this process and a restart falls back to closed.
func (m *Manager) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(m.current)
	if err != nil {
		m.logger.Error("session snapshot does not encode", "error", err)
		return
	}
	if err := m.store.Set(ctx, SnapshotKey, raw); err != nil {
		m.logger.Error("session snapshot write failed", "error", err)
	}
}

func (m *Manager) scrubLocked(ctx context.Context) {
	if err := m.store.Delete(ctx, SnapshotKey); err != nil {
		m.logger.Warn("session snapshot delete failed", "error", err)
	}
}
