package facade

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fitstate/internal/services"
	"git.home.luguber.info/inful/fitstate/internal/state"
)

type staticComponents map[string]services.ServiceStatus

func (s staticComponents) ComponentStatuses() map[string]services.ServiceStatus { return s }

func newStore(t *testing.T) *state.Store {
	t.Helper()
	s := state.New(state.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(s.Dispose)
	return s
}

func TestFacade_GetState(t *testing.T) {
	store := newStore(t)
	f := New(store)

	_, ok := f.GetState(state.MustPath("test.missing"))
	assert.False(t, ok)

	p := state.MustPath("test.counter")
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Set(t.Context(), p, i))
	}
	v, ok := f.GetState(p)
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.GreaterOrEqual(t, len(f.GetHistory()), 3)
	assert.Equal(t, map[string]any{"test.counter": 3}, f.GetStateTree())
}

func TestFacade_GetSubscriptions(t *testing.T) {
	store := newStore(t)
	f := New(store)

	calls := 0
	_, err := store.Subscribe(state.MustPath("test.subscription"), func(context.Context, state.Change) { calls++ }, state.WithLabel("chart-panel"))
	require.NoError(t, err)
	_, err = store.Subscribe(state.MustPath("other"), func(context.Context, state.Change) {})
	require.NoError(t, err)

	require.NoError(t, store.Set(t.Context(), state.MustPath("test.subscription"), "triggered"))
	assert.Equal(t, 1, calls)

	report := f.GetSubscriptions()
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, []string{"other", "test.subscription"}, report.Paths())

	details, ok := report.SubscriptionDetails["test.subscription"]
	require.True(t, ok)
	assert.Equal(t, 1, details.Count)
	require.Len(t, details.Subscribers, 1)
	assert.Equal(t, "chart-panel", details.Subscribers[0].Label)
	assert.Equal(t, uint64(1), details.Subscribers[0].Deliveries)
}

func TestFacade_ReadsAreIdempotent(t *testing.T) {
	store := newStore(t)
	f := New(store, WithComponents(staticComponents{"state": services.StatusRunning}))
	require.NoError(t, store.Set(t.Context(), state.MustPath("a"), 1))
	_, err := store.Subscribe(state.MustPath("a"), func(context.Context, state.Change) {})
	require.NoError(t, err)

	tree, hist := f.GetStateTree(), f.GetHistory()
	for range 10 {
		f.GetState(state.MustPath("a"))
		f.GetHistory()
		f.GetSubscriptions()
		f.GetInitializationStatus()
	}
	assert.Equal(t, tree, f.GetStateTree())
	assert.Equal(t, hist, f.GetHistory())
}

func TestFacade_InitializationStatus(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return started.Add(90 * time.Second) }

	tests := []struct {
		name       string
		components ComponentSource
		want       bool
	}{
		{"no source", nil, false},
		{"empty source", staticComponents{}, false},
		{"all running", staticComponents{"state": services.StatusRunning, "journal": services.StatusRunning}, true},
		{"one starting", staticComponents{"state": services.StatusRunning, "admin": services.StatusStarting}, false},
		{"one failed", staticComponents{"state": services.StatusFailed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			f := New(store, WithComponents(tt.components), WithStartedAt(started), WithClock(clock), WithVersion("v1.2.3"))

			status := f.GetInitializationStatus()
			assert.Equal(t, tt.want, status.IsInitialized)
			assert.NotNil(t, status.Components)
			assert.Equal(t, "1m30s", status.SystemState.Uptime)
			assert.Equal(t, "v1.2.3", status.SystemState.Version)
			assert.Equal(t, started, status.SystemState.StartedAt)
		})
	}
}

func TestFacade_InitializationStatusAfterReset(t *testing.T) {
	store := newStore(t)
	f := New(store, WithComponents(staticComponents{"state": services.StatusRunning}))
	require.NoError(t, store.Set(t.Context(), state.MustPath("a"), 1))

	store.Reset()

	status := f.GetInitializationStatus()
	assert.True(t, status.IsInitialized)
	require.NotNil(t, status.Components)
	assert.Equal(t, services.StatusRunning, status.Components["state"].Status)
	assert.True(t, status.Components["state"].Ready)
	assert.Equal(t, 0, status.SystemState.StateKeys)
	assert.Equal(t, 0, status.SystemState.HistoryLength)
	assert.False(t, status.SystemState.Disposed)
}

func TestFacade_AfterDispose(t *testing.T) {
	store := newStore(t)
	f := New(store)
	store.Dispose()

	status := f.GetInitializationStatus()
	assert.True(t, status.SystemState.Disposed)
	assert.NotNil(t, status.Components)
	assert.NotNil(t, f.GetSubscriptions().SubscriptionDetails)
	assert.Empty(t, f.GetStateTree())
}
