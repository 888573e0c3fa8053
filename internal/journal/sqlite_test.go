package journal

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/state"
)

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setRecord(t *testing.T, session string, seq uint64, path string, value any) Record {
	t.Helper()
	rec, err := NewSetRecord(session, state.HistoryEntry{
		Sequence:  seq,
		Path:      state.MustPath(path),
		Value:     value,
		Timestamp: time.Unix(1700000000, int64(seq)),
	})
	require.NoError(t, err)
	return rec
}

func TestSQLiteStore_AppendAndBySession(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, setRecord(t, "s1", 1, "test.counter", 1)))
	require.NoError(t, store.Append(ctx, setRecord(t, "s1", 2, "ui.meta", map[string]any{"zoom": 2})))
	require.NoError(t, store.Append(ctx, NewResetRecord("s1", time.Unix(1700000001, 0))))
	require.NoError(t, store.Append(ctx, setRecord(t, "s2", 1, "test.counter", 5)))

	records, err := store.BySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, KindSet, records[0].Kind)
	assert.Equal(t, "test.counter", records[0].Path)
	assert.Equal(t, uint64(1), records[0].Sequence)
	assert.JSONEq(t, `1`, string(records[0].Value))
	assert.Nil(t, records[0].Previous)
	assert.JSONEq(t, `{"zoom":2}`, string(records[1].Value))
	assert.Equal(t, KindReset, records[2].Kind)
	assert.Less(t, records[0].ID, records[1].ID)
	assert.Equal(t, time.Unix(1700000000, 1).UnixNano(), records[0].RecordedAt.UnixNano())

	byPath, err := store.ByPath(ctx, "test.counter")
	require.NoError(t, err)
	require.Len(t, byPath, 2)
	assert.Equal(t, "s1", byPath[0].SessionID)
	assert.Equal(t, "s2", byPath[1].SessionID)

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, 3, sessions[0].Records)
	assert.Equal(t, "s2", sessions[1].ID)
	assert.False(t, sessions[0].LastAt.Before(sessions[0].FirstAt))
}

func TestSQLiteStore_PreviousValue(t *testing.T) {
	store := newMemoryStore(t)
	rec, err := NewSetRecord("s", state.HistoryEntry{
		Sequence:    2,
		Path:        state.MustPath("a"),
		Previous:    "old",
		HadPrevious: true,
		Value:       "new",
		Depth:       1,
	})
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), rec))

	records, err := store.BySession(t.Context(), "s")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].HadPrevious)
	assert.Equal(t, 1, records[0].Depth)
	assert.Equal(t, json.RawMessage(`"old"`), records[0].Previous)
	assert.False(t, records[0].RecordedAt.IsZero())
}

func TestSQLiteStore_FilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), setRecord(t, "s", 1, "a", true)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.BySession(t.Context(), "s")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteStore_OpenFailure(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryJournal))
}

func TestNewSetRecord_Unencodable(t *testing.T) {
	_, err := NewSetRecord("s", state.HistoryEntry{Path: state.MustPath("a"), Value: make(chan int)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncodeFailed)
}

func TestReplay(t *testing.T) {
	records := []Record{
		setRecord(t, "s", 1, "a", 1),
		setRecord(t, "s", 2, "b", "x"),
		NewResetRecord("s", time.Now()),
		setRecord(t, "s", 1, "a", 2),
		setRecord(t, "s", 2, "c", []any{"p", "q"}),
		setRecord(t, "s", 3, "c", nil),
	}

	tree, err := Replay(records)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(2), "c": nil}, tree)

	_, err = Replay([]Record{{Kind: KindSet, Path: "a", Value: json.RawMessage(`{`)}})
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestSQLiteStore_Prune(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, setRecord(t, "old", 1, "a", 1)))
	require.NoError(t, store.Append(ctx, setRecord(t, "old", 2, "b", 2)))
	require.NoError(t, store.Append(ctx, setRecord(t, "current", 1, "a", 3)))
	require.NoError(t, store.Append(ctx, setRecord(t, "mixed", 1, "a", 4)))
	require.NoError(t, store.Append(ctx, NewResetRecord("mixed", time.Now())))

	n, err := store.Prune(ctx, time.Now().Add(-time.Hour), "current")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"current", "mixed"}, ids)

	n, err = store.Prune(ctx, time.Now().Add(-time.Hour), "current")
	require.NoError(t, err)
	assert.Zero(t, n)
}
