package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
)

func TestSubscribe_NotificationExactness(t *testing.T) {
	s := newTestStore(t)
	var got []Change
	_, err := s.Subscribe(MustPath("test.subscription"), func(_ context.Context, c Change) {
		got = append(got, c)
	})
	require.NoError(t, err)

	require.NoError(t, s.Set(t.Context(), MustPath("test.subscription"), "triggered"))
	require.NoError(t, s.Set(t.Context(), MustPath("test"), "parent"))
	require.NoError(t, s.Set(t.Context(), MustPath("test.subscription.child"), "child"))
	require.NoError(t, s.Set(t.Context(), MustPath("other"), 1))

	require.Len(t, got, 1)
	assert.Equal(t, "triggered", got[0].Value)
	assert.Equal(t, MustPath("test.subscription"), got[0].Path)
	assert.False(t, got[0].HadPrevious)
	assert.Equal(t, uint64(1), got[0].Sequence)

	details := s.Subscriptions()
	require.Contains(t, details, "test.subscription")
	require.Len(t, details["test.subscription"], 1)
	assert.Equal(t, uint64(1), details["test.subscription"][0].Deliveries)
}

func TestSubscribe_WriteVisibleToListener(t *testing.T) {
	s := newTestStore(t)
	p := MustPath("a")
	var seen any
	_, err := s.Subscribe(p, func(_ context.Context, c Change) {
		seen, _ = s.Get(c.Path)
	})
	require.NoError(t, err)

	require.NoError(t, s.Set(t.Context(), p, "now"))
	assert.Equal(t, "now", seen)
}

func TestSubscribe_PreviousValue(t *testing.T) {
	s := newTestStore(t)
	p := MustPath("a")
	require.NoError(t, s.Set(t.Context(), p, 1))

	var change Change
	_, err := s.Subscribe(p, func(_ context.Context, c Change) { change = c })
	require.NoError(t, err)
	require.NoError(t, s.Set(t.Context(), p, 2))

	assert.True(t, change.HadPrevious)
	assert.Equal(t, 1, change.Previous)
	assert.Equal(t, 2, change.Value)
	assert.Equal(t, uint64(2), change.Sequence)
}

func TestSubscribe_RegistrationOrder(t *testing.T) {
	s := newTestStore(t)
	p := MustPath("ordered")
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		_, err := s.Subscribe(p, func(context.Context, Change) { order = append(order, name) }, WithLabel(name))
		require.NoError(t, err)
	}

	require.NoError(t, s.Set(t.Context(), p, true))
	assert.Equal(t, []string{"first", "second", "third"}, order)

	infos := s.Subscriptions()["ordered"]
	require.Len(t, infos, 3)
	assert.Equal(t, "first", infos[0].Label)
	assert.Equal(t, "third", infos[2].Label)
	assert.NotEqual(t, infos[0].ID, infos[1].ID)
}

func TestUnsubscribe(t *testing.T) {
	s := newTestStore(t)
	p := MustPath("test.unsub")
	var a, b int
	unsubA, err := s.Subscribe(p, func(context.Context, Change) { a++ })
	require.NoError(t, err)
	_, err = s.Subscribe(p, func(context.Context, Change) { b++ })
	require.NoError(t, err)

	require.NoError(t, s.Set(t.Context(), p, 1))
	unsubA()
	require.NoError(t, s.Set(t.Context(), p, 2))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, s.SubscriptionCount())

	// idempotent
	assert.NotPanics(t, func() {
		unsubA()
		unsubA()
	})
	assert.Equal(t, 1, s.SubscriptionCount())
	assert.Len(t, s.Subscriptions()["test.unsub"], 1)
}

func TestUnsubscribe_LastRemovesPath(t *testing.T) {
	s := newTestStore(t)
	unsub, err := s.Subscribe(MustPath("solo"), func(context.Context, Change) {})
	require.NoError(t, err)
	unsub()
	assert.NotContains(t, s.Subscriptions(), "solo")
}

func TestUnsubscribe_DuringDispatch(t *testing.T) {
	s := newTestStore(t)
	p := MustPath("p")
	var secondCalls int
	var unsubSecond Unsubscribe

	_, err := s.Subscribe(p, func(context.Context, Change) { unsubSecond() })
	require.NoError(t, err)
	unsubSecond, err = s.Subscribe(p, func(context.Context, Change) { secondCalls++ })
	require.NoError(t, err)

	require.NoError(t, s.Set(t.Context(), p, 1))
	assert.Equal(t, 0, secondCalls)
}

func TestSubscribe_DuringDispatchSeesNextWrite(t *testing.T) {
	s := newTestStore(t)
	p := MustPath("p")
	var late int
	subscribed := false

	_, err := s.Subscribe(p, func(context.Context, Change) {
		if subscribed {
			return
		}
		subscribed = true
		_, err := s.Subscribe(p, func(context.Context, Change) { late++ })
		assert.NoError(t, err)
	})
	require.NoError(t, err)

	require.NoError(t, s.Set(t.Context(), p, 1))
	assert.Equal(t, 0, late)
	require.NoError(t, s.Set(t.Context(), p, 2))
	assert.Equal(t, 1, late)
}

func TestSubscribe_NilListener(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Subscribe(MustPath("a"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNilListener)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestSubscribe_ResetDuringSubscription(t *testing.T) {
	s := newTestStore(t)
	p := MustPath("p")
	_, err := s.Subscribe(p, func(context.Context, Change) { s.Reset() })
	require.NoError(t, err)

	require.NoError(t, s.Set(t.Context(), p, 1))
	assert.Empty(t, s.Snapshot())
	assert.Equal(t, 0, s.HistoryLen())
	assert.Equal(t, 1, s.SubscriptionCount())
}
