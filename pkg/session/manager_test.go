package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andinafx/cambio/pkg/clock"
	"github.com/andinafx/cambio/pkg/domain"
	"github.com/andinafx/cambio/pkg/gateway"
	"github.com/andinafx/cambio/pkg/storage"
)

type stubGateway struct {
	openCalls  int
	closeCalls int
	openErr    error
	closeErr   error
	conf       gateway.WindowConfirmation
}

func (s *stubGateway) OpenWindow(_ context.Context, req gateway.OpenWindowRequest) (gateway.WindowConfirmation, error) {
	s.openCalls++
	if s.openErr != nil {
		return gateway.WindowConfirmation{}, s.openErr
	}
	conf := s.conf
	conf.WindowID = req.WindowID
	return conf, nil
}

func (s *stubGateway) CloseWindow(context.Context, gateway.CloseWindowRequest) error {
	s.closeCalls++
	return s.closeErr
}

func newTestManager(t *testing.T) (*Manager, *stubGateway, *storage.Memory, *clock.Manual) {
	t.Helper()
	gw := &stubGateway{conf: gateway.WindowConfirmation{
		WindowName:        "Ventanilla 1",
		OperatorName:      "R. Huamán",
		ExchangeHouseName: "Cambios Andina",
		OpenedAt:          time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}}
	store := storage.NewMemory()
	clk := clock.NewManual(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	return NewManager(gw, store, clk, nil), gw, store, clk
}

func openReq() OpenRequest {
	return OpenRequest{WindowID: 1, ExchangeHouseID: 2, OperatorID: 3}
}

func TestOpenTransitionsAndPersists(t *testing.T) {
	ctx := context.Background()
	m, _, store, _ := newTestManager(t)

	view, err := m.Open(ctx, openReq())
	require.NoError(t, err)
	assert.Equal(t, domain.WindowOpen, view.Status)
	assert.Equal(t, "Ventanilla 1", view.WindowName)
	assert.True(t, m.Allowed())

	raw, ok, err := store.Get(ctx, SnapshotKey)
	require.NoError(t, err)
	require.True(t, ok)
	var snap domain.WindowSession
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, domain.WindowOpen, snap.Status)
	assert.EqualValues(t, 1, snap.WindowID)
}

func TestOpenFailureStaysClosed(t *testing.T) {
	ctx := context.Background()
	m, gw, store, _ := newTestManager(t)
	gw.openErr = errors.New("network down")

	_, err := m.Open(ctx, openReq())
	require.Error(t, err)
	assert.Equal(t, domain.WindowClosed, m.Current().Status)
	assert.False(t, m.Allowed())

	_, ok, err := store.Get(ctx, SnapshotKey)
	require.NoError(t, err)
	assert.False(t, ok, "no snapshot after failed open")
}

func TestOpenRequiresClosed(t *testing.T) {
	ctx := context.Background()
	m, gw, _, _ := newTestManager(t)

	_, err := m.Open(ctx, openReq())
	require.NoError(t, err)

	_, err = m.Open(ctx, openReq())
	assert.ErrorIs(t, err, ErrNotClosed)
	assert.Equal(t, 1, gw.openCalls, "second open never reaches the platform")
}

func TestPauseResumeCycle(t *testing.T) {
	ctx := context.Background()
	m, _, _, clk := newTestManager(t)

	_, err := m.Open(ctx, openReq())
	require.NoError(t, err)

	view, err := m.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WindowPaused, view.Status)
	assert.False(t, m.Allowed(), "paused gates conversion actions")

	clk.Advance(90 * time.Second)
	assert.Equal(t, 90*time.Second, m.PausedFor())

	// Pause from paused is rejected without state change.
	_, err = m.Pause(ctx)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Equal(t, domain.WindowPaused, m.Current().Status)

	view, err = m.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WindowOpen, view.Status)
	assert.Zero(t, m.PausedFor(), "resume resets the counter")
	assert.True(t, m.Allowed())

	// Resume from open is rejected.
	_, err = m.Resume(ctx)
	assert.ErrorIs(t, err, ErrNotPaused)
}

func TestCloseClearsSnapshotAndRunsCallbacks(t *testing.T) {
	ctx := context.Background()
	m, _, store, _ := newTestManager(t)

	cleared := false
	m.OnClose(func() { cleared = true })

	_, err := m.Open(ctx, openReq())
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx, CloseRequest{}))
	assert.Equal(t, domain.WindowClosed, m.Current().Status)
	assert.False(t, m.Allowed())
	assert.True(t, cleared, "close runs working-state callbacks")

	_, ok, err := store.Get(ctx, SnapshotKey)
	require.NoError(t, err)
	assert.False(t, ok, "snapshot removed on close")
}

func TestCloseFromPaused(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(t)

	_, err := m.Open(ctx, openReq())
	require.NoError(t, err)
	_, err = m.Pause(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx, CloseRequest{}))
	assert.Equal(t, domain.WindowClosed, m.Current().Status)
}

func TestCloseFromClosedIsRejected(t *testing.T) {
	m, gw, _, _ := newTestManager(t)

	err := m.Close(context.Background(), CloseRequest{})
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Zero(t, gw.closeCalls)
}

func TestCloseFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	m, gw, store, _ := newTestManager(t)

	_, err := m.Open(ctx, openReq())
	require.NoError(t, err)

	gw.closeErr = errors.New("reconciliation rejected")
	err = m.Close(ctx, CloseRequest{})
	require.Error(t, err)
	assert.Equal(t, domain.WindowOpen, m.Current().Status, "no partial transition")

	_, ok, err := store.Get(ctx, SnapshotKey)
	require.NoError(t, err)
	assert.True(t, ok, "snapshot untouched after failed close")
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, gw, store, clk := newTestManager(t)

	_, err := m.Open(ctx, openReq())
	require.NoError(t, err)
	_, err = m.Pause(ctx)
	require.NoError(t, err)

	// A new manager over the same store picks the session up, pause
	// included.
	restored := NewManager(gw, store, clk, nil)
	view := restored.Restore(ctx)
	assert.Equal(t, domain.WindowPaused, view.Status)
	assert.Equal(t, "Ventanilla 1", view.WindowName)
	assert.False(t, restored.Allowed())
}

func TestRestoreMissingSnapshotIsClosed(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	view := m.Restore(context.Background())
	assert.Equal(t, domain.WindowClosed, view.Status)
}

func TestRestoreCorruptSnapshotFailsSafe(t *testing.T) {
	ctx := context.Background()
	m, _, store, _ := newTestManager(t)

	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"status": "open`},
		{"unknown status tag", `{"window_id":1,"exchange_house_id":2,"status":"frozen"}`},
		{"closed status stored", `{"window_id":1,"exchange_house_id":2,"status":"closed"}`},
		{"zero window id", `{"window_id":0,"exchange_house_id":2,"status":"open"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, SnapshotKey, []byte(tt.raw)))

			view := m.Restore(ctx)
			assert.Equal(t, domain.WindowClosed, view.Status)
			assert.False(t, m.Allowed())

			_, ok, err := store.Get(ctx, SnapshotKey)
			require.NoError(t, err)
			assert.False(t, ok, "bad snapshot scrubbed")
		})
	}
}
