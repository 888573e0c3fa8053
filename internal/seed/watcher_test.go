package seed

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fitstate/internal/state"
)

func writeSeed(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestWatcher_AppliesAtStart(t *testing.T) {
	store := state.New()
	t.Cleanup(store.Dispose)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	writeSeed(t, path, "values:\n  ui.theme: dark\n")

	w, err := NewWatcher(store, WatcherConfig{Path: path, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop(t.Context()) })

	assert.True(t, w.IsRunning())
	assert.Equal(t, uint64(1), w.Applies())
	v, ok := store.Get(state.MustPath("ui.theme"))
	require.True(t, ok)
	assert.Equal(t, "dark", v)

	require.NoError(t, w.Stop(t.Context()))
	assert.False(t, w.IsRunning())
}

func TestWatcher_StartFailsOnInvalidSeed(t *testing.T) {
	store := state.New()
	t.Cleanup(store.Dispose)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	writeSeed(t, path, "values:\n  \"bad path\": 1\n")

	w, err := NewWatcher(store, WatcherConfig{Path: path, Watch: true})
	require.NoError(t, err)
	require.Error(t, w.Start(t.Context()))
	assert.False(t, w.IsRunning())
}

func TestWatcher_ReappliesOnChange(t *testing.T) {
	store := state.New()
	t.Cleanup(store.Dispose)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	writeSeed(t, path, "values:\n  ui.theme: dark\n")

	w, err := NewWatcher(store, WatcherConfig{
		Path:     path,
		Watch:    true,
		Debounce: 20 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop(t.Context()) })

	writeSeed(t, path, "values:\n  ui.theme: light\n  ui.lang: en\n")

	assert.Eventually(t, func() bool {
		v, _ := store.Get(state.MustPath("ui.theme"))
		lang, ok := store.Get(state.MustPath("ui.lang"))
		return v == "light" && ok && lang == "en"
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, w.Applies(), uint64(2))

	require.NoError(t, w.Stop(t.Context()))
	assert.False(t, w.IsRunning())
}
