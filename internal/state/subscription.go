package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/fitstate/internal/logfields"
)

// Change describes a write as delivered to a listener. Value and Previous are
// copies; changing them does not touch the store.
type Change struct {
	Path        Path
	Value       any
	Previous    any
	HadPrevious bool
	Sequence    uint64
}

// Listener is invoked synchronously for every write to its subscribed path. Writes
// issued from a listener must use ctx.
type Listener func(ctx context.Context, change Change)

// Unsubscribe removes the registration that returned it. Calling it again is a no-op.
type Unsubscribe func()

// SubscriptionInfo is diagnostic metadata about one registration.
type SubscriptionInfo struct {
	ID           string    `json:"id" yaml:"id"`
	Path         string    `json:"path" yaml:"path"`
	Label        string    `json:"label,omitempty" yaml:"label,omitempty"`
	RegisteredAt time.Time `json:"registered_at" yaml:"registered_at"`
	Deliveries   uint64    `json:"deliveries" yaml:"deliveries"`
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscription)

// WithLabel names the subscriber in logs and diagnostics.
func WithLabel(label string) SubscribeOption {
	return func(sub *subscription) { sub.label = label }
}

type subscription struct {
	id           string
	path         Path
	label        string
	registeredAt time.Time
	listener     Listener
	active       atomic.Bool
	deliveries   atomic.Uint64
}

func (sub *subscription) name() string {
	if sub.label != "" {
		return sub.label
	}
	return sub.id
}

func (sub *subscription) info() SubscriptionInfo {
	return SubscriptionInfo{
		ID:           sub.id,
		Path:         sub.path.s,
		Label:        sub.label,
		RegisteredAt: sub.registeredAt,
		Deliveries:   sub.deliveries.Load(),
	}
}

// Subscribe registers cb for writes to exactly p. Listeners on the same path run
// in registration order. A subscription made while a write is being dispatched
// first sees the next write.
func (s *Store) Subscribe(p Path, cb Listener, opts ...SubscribeOption) (Unsubscribe, error) {
	if p.IsZero() {
		return nil, ErrInvalidPath.WithContext("reason", "zero path")
	}
	if cb == nil {
		return nil, ErrNilListener.WithContext("path", p.s)
	}

	sub := &subscription{
		id:       uuid.NewString(),
		path:     p,
		listener: cb,
	}
	for _, opt := range opts {
		opt(sub)
	}
	sub.active.Store(true)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrStoreDisposed
	}
	sub.registeredAt = s.now()
	s.subs[p.s] = append(s.subs[p.s], sub)
	s.subCount++
	count := s.subCount
	s.mu.Unlock()

	s.recorder.SetActiveSubscriptions(count)
	s.logger.Debug("Subscription registered",
		logfields.Path(p.s),
		logfields.SubscriptionID(sub.id),
		logfields.Listener(sub.name()))

	var once sync.Once
	return func() { once.Do(func() { s.unsubscribe(sub) }) }, nil
}

func (s *Store) unsubscribe(sub *subscription) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	list := s.subs[sub.path.s]
	for i, candidate := range list {
		if candidate == sub {
			list = append(list[:i:i], list[i+1:]...)
			s.subCount--
			break
		}
	}
	if len(list) == 0 {
		delete(s.subs, sub.path.s)
	} else {
		s.subs[sub.path.s] = list
	}
	count := s.subCount
	s.mu.Unlock()

	s.recorder.SetActiveSubscriptions(count)
	s.logger.Debug("Subscription removed",
		logfields.Path(sub.path.s),
		logfields.SubscriptionID(sub.id))
}

// Subscriptions returns metadata for every active subscription keyed by path,
// each list in registration order.
func (s *Store) Subscriptions() map[string][]SubscriptionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]SubscriptionInfo, len(s.subs))
	for path, list := range s.subs {
		infos := make([]SubscriptionInfo, 0, len(list))
		for _, sub := range list {
			infos = append(infos, sub.info())
		}
		out[path] = infos
	}
	return out
}

// SubscriptionCount returns the number of active subscriptions.
func (s *Store) SubscriptionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subCount
}
