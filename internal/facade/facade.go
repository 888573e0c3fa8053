// Package facade is the read-only introspection layer over a state store.
//
// Diagnostic tooling and components that need consolidated visibility use a
// Facade instead of holding the store itself. No Facade method mutates state,
// history or subscriptions.
package facade

import (
	"slices"
	"time"

	"git.home.luguber.info/inful/fitstate/internal/services"
	"git.home.luguber.info/inful/fitstate/internal/state"
)

// ComponentSource reports the lifecycle status of tracked components.
// *services.ServiceOrchestrator satisfies it.
type ComponentSource interface {
	ComponentStatuses() map[string]services.ServiceStatus
}

// ComponentStatus is the readiness of one component.
type ComponentStatus struct {
	Status services.ServiceStatus `json:"status" yaml:"status"`
	Ready  bool                   `json:"ready" yaml:"ready"`
}

// SystemState summarizes the store and process for diagnostics.
type SystemState struct {
	StartedAt     time.Time `json:"started_at" yaml:"started_at"`
	Uptime        string    `json:"uptime" yaml:"uptime"`
	StateKeys     int       `json:"state_keys" yaml:"state_keys"`
	HistoryLength int       `json:"history_length" yaml:"history_length"`
	Subscriptions int       `json:"subscriptions" yaml:"subscriptions"`
	Disposed      bool      `json:"disposed" yaml:"disposed"`
	Version       string    `json:"version" yaml:"version"`
}

// InitializationStatus aggregates component readiness. IsInitialized is true only
// when at least one component is tracked and every tracked component is running.
type InitializationStatus struct {
	IsInitialized bool                       `json:"is_initialized" yaml:"is_initialized"`
	Components    map[string]ComponentStatus `json:"components" yaml:"components"`
	SystemState   SystemState                `json:"system_state" yaml:"system_state"`
}

// PathSubscriptions describes the subscriptions registered on one path.
type PathSubscriptions struct {
	Count       int                      `json:"count" yaml:"count"`
	Subscribers []state.SubscriptionInfo `json:"subscribers" yaml:"subscribers"`
}

// SubscriptionReport is the subscription view keyed by path.
type SubscriptionReport struct {
	Total               int                          `json:"total" yaml:"total"`
	SubscriptionDetails map[string]PathSubscriptions `json:"subscription_details" yaml:"subscription_details"`
}

// Paths returns the subscribed paths in sorted order.
func (r SubscriptionReport) Paths() []string {
	out := make([]string, 0, len(r.SubscriptionDetails))
	for p := range r.SubscriptionDetails {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Facade is the masterStateManager view over a Store.
type Facade struct {
	store      *state.Store
	components ComponentSource
	startedAt  time.Time
	version    string
	now        func() time.Time
}

// Option configures a Facade.
type Option func(*Facade)

// WithComponents sets the source of component readiness.
func WithComponents(src ComponentSource) Option {
	return func(f *Facade) { f.components = src }
}

// WithVersion sets the version reported in SystemState.
func WithVersion(v string) Option {
	return func(f *Facade) { f.version = v }
}

// WithStartedAt overrides the start time used for uptime.
func WithStartedAt(t time.Time) Option {
	return func(f *Facade) { f.startedAt = t }
}

// WithClock overrides the time source used for uptime.
func WithClock(now func() time.Time) Option {
	return func(f *Facade) {
		if now != nil {
			f.now = now
		}
	}
}

// New creates a Facade over store.
func New(store *state.Store, opts ...Option) *Facade {
	f := &Facade{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.startedAt.IsZero() {
		f.startedAt = f.now()
	}
	return f
}

// GetState returns the value at p; ok is false when p is unset.
func (f *Facade) GetState(p state.Path) (any, bool) {
	return f.store.Get(p)
}

// GetStateTree returns a deep copy of the whole tree.
func (f *Facade) GetStateTree() map[string]any {
	return f.store.Snapshot()
}

// GetHistory returns all entries since the last reset, oldest first.
func (f *Facade) GetHistory() []state.HistoryEntry {
	return f.store.History()
}

// GetSubscriptions returns metadata for every active subscription.
func (f *Facade) GetSubscriptions() SubscriptionReport {
	subs := f.store.Subscriptions()
	report := SubscriptionReport{SubscriptionDetails: make(map[string]PathSubscriptions, len(subs))}
	for p, infos := range subs {
		report.SubscriptionDetails[p] = PathSubscriptions{Count: len(infos), Subscribers: infos}
		report.Total += len(infos)
	}
	return report
}

// GetInitializationStatus computes readiness from the component source. It always
// returns non-nil maps, also before any component has started.
func (f *Facade) GetInitializationStatus() InitializationStatus {
	status := InitializationStatus{
		Components: make(map[string]ComponentStatus),
		SystemState: SystemState{
			StartedAt:     f.startedAt,
			Uptime:        f.now().Sub(f.startedAt).Round(time.Second).String(),
			StateKeys:     f.store.Keys(),
			HistoryLength: f.store.HistoryLen(),
			Subscriptions: f.store.SubscriptionCount(),
			Disposed:      f.store.Disposed(),
			Version:       f.version,
		},
	}

	if f.components != nil {
		for name, s := range f.components.ComponentStatuses() {
			status.Components[name] = ComponentStatus{Status: s, Ready: s == services.StatusRunning}
		}
	}

	status.IsInitialized = len(status.Components) > 0
	for _, c := range status.Components {
		if !c.Ready {
			status.IsInitialized = false
			break
		}
	}
	return status
}
