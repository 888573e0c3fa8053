package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
)

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	values := map[string]any{
		"test.counter": 42,
		"ui.theme":     "dark",
		"ui.flags":     []any{"a", "b"},
		"file.meta":    map[string]any{"name": "ride.fit", "laps": 3},
		"nothing":      nil,
	}
	for raw, v := range values {
		require.NoError(t, s.Set(t.Context(), MustPath(raw), v))
	}
	for raw, v := range values {
		got, ok := s.Get(MustPath(raw))
		require.True(t, ok, raw)
		assert.Equal(t, v, got, raw)
	}
}

func TestStore_GetUnset(t *testing.T) {
	s := newTestStore(t)
	v, ok := s.Get(MustPath("never.written"))
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestStore_CounterScenario(t *testing.T) {
	s := newTestStore(t)
	p := MustPath("test.counter")
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Set(t.Context(), p, i))
	}

	got, ok := s.Get(p)
	require.True(t, ok)
	assert.Equal(t, 3, got)

	history := s.History()
	require.Len(t, history, 3)
	assert.False(t, history[0].HadPrevious)
	assert.Nil(t, history[0].Previous)
	assert.Equal(t, 1, history[1].Previous)
	assert.Equal(t, 2, history[2].Previous)
	assert.Equal(t, 3, history[2].Value)
	for i, e := range history {
		assert.Equal(t, uint64(i+1), e.Sequence)
		assert.Equal(t, p, e.Path)
		assert.Equal(t, 0, e.Depth)
	}
}

func TestStore_HistoryGrowth(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set(t.Context(), MustPath("seed"), true))
	before := s.HistoryLen()

	const n = 25
	for i := range n {
		require.NoError(t, s.Set(t.Context(), MustPath("grow.value"), i))
		assert.Equal(t, before+i+1, s.HistoryLen())
	}
	assert.Len(t, s.History(), before+n)
}

func TestStore_HistoryTimestamps(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return fixed }))
	require.NoError(t, s.Set(t.Context(), MustPath("a"), 1))
	assert.Equal(t, fixed, s.History()[0].Timestamp)
}

func TestStore_ReadsDoNotMutate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set(t.Context(), MustPath("a.b"), 1))
	require.NoError(t, s.Set(t.Context(), MustPath("a.c"), "x"))

	snap := s.Snapshot()
	hist := s.History()
	for range 5 {
		s.Get(MustPath("a.b"))
		s.Snapshot()
		s.History()
		s.Subscriptions()
	}
	assert.Equal(t, snap, s.Snapshot())
	assert.Equal(t, hist, s.History())
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := newTestStore(t)
	meta := map[string]any{"laps": []any{1, 2}, "name": "ride"}
	require.NoError(t, s.Set(t.Context(), MustPath("file.meta"), meta))

	// caller keeps mutating its own map after the write
	meta["name"] = "changed"

	snap := s.Snapshot()
	stored := snap["file.meta"].(map[string]any)
	assert.Equal(t, "ride", stored["name"])

	stored["name"] = "hacked"
	stored["laps"].([]any)[0] = 99

	got, _ := s.Get(MustPath("file.meta"))
	assert.Equal(t, map[string]any{"laps": []any{1, 2}, "name": "ride"}, got)

	history := s.History()
	history[0].Value.(map[string]any)["name"] = "rewritten"
	assert.Equal(t, "ride", s.History()[0].Value.(map[string]any)["name"])
}

func TestStore_Reset(t *testing.T) {
	rec := newCountingRecorder()
	obs := &recordingObserver{}
	s := newTestStore(t, WithRecorder(rec), WithObserver(obs))

	// reset with no prior state is safe
	s.Reset()

	calls := 0
	_, err := s.Subscribe(MustPath("test.subscription"), func(_ context.Context, _ Change) { calls++ })
	require.NoError(t, err)

	require.NoError(t, s.Set(t.Context(), MustPath("test.subscription"), "before"))
	require.NoError(t, s.Set(t.Context(), MustPath("other"), 1))

	s.Reset()
	assert.Empty(t, s.Snapshot())
	assert.Empty(t, s.History())
	assert.Equal(t, 0, s.Keys())
	assert.Equal(t, 2, rec.resets)
	assert.Equal(t, 2, obs.resets)

	// subscriptions survive and sequence restarts
	assert.Equal(t, 1, s.SubscriptionCount())
	require.NoError(t, s.Set(t.Context(), MustPath("test.subscription"), "after"))
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(1), s.History()[0].Sequence)
	assert.False(t, s.History()[0].HadPrevious)
}

func TestStore_ZeroPath(t *testing.T) {
	s := newTestStore(t)
	err := s.Set(t.Context(), Path{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Equal(t, 0, s.HistoryLen())

	_, err = s.Subscribe(Path{}, func(context.Context, Change) {})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestStore_Dispose(t *testing.T) {
	rec := newCountingRecorder()
	s := New(WithRecorder(rec))
	require.NoError(t, s.Set(t.Context(), MustPath("a"), 1))

	calls := 0
	_, err := s.Subscribe(MustPath("a"), func(context.Context, Change) { calls++ })
	require.NoError(t, err)

	s.Dispose()
	s.Dispose()
	assert.True(t, s.Disposed())

	err = s.Set(t.Context(), MustPath("a"), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreDisposed)
	assert.True(t, errors.HasCategory(err, errors.CategoryState))
	assert.Equal(t, 1, rec.rejected["disposed"])

	_, err = s.Subscribe(MustPath("a"), func(context.Context, Change) {})
	assert.ErrorIs(t, err, ErrStoreDisposed)

	_, ok := s.Get(MustPath("a"))
	assert.False(t, ok)
	assert.Empty(t, s.Snapshot())
	assert.Empty(t, s.History())
	assert.Empty(t, s.Subscriptions())
	assert.Equal(t, 0, calls)

	// reset after dispose is a no-op
	s.Reset()
	assert.Equal(t, 0, rec.resets)
}

func TestStore_MetricsRecorded(t *testing.T) {
	rec := newCountingRecorder()
	s := newTestStore(t, WithRecorder(rec))

	unsub, err := s.Subscribe(MustPath("a"), func(context.Context, Change) {})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.subscriptions)

	require.NoError(t, s.Set(t.Context(), MustPath("a"), 1))
	require.NoError(t, s.Set(t.Context(), MustPath("b"), 2))

	assert.Equal(t, 2, rec.writes["top_level"])
	assert.Equal(t, 2, rec.dispatches)
	assert.Equal(t, 2, rec.historyLength)
	assert.Equal(t, 1, rec.listeners["success"])

	unsub()
	assert.Equal(t, 0, rec.subscriptions)
}
