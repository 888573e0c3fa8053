package state

import (
	"context"
	"fmt"
	"sync/atomic"

	"git.home.luguber.info/inful/fitstate/internal/services"
)

// ServiceName identifies the store among managed components.
const ServiceName = "state"

// Service adapts a Store to the service orchestrator so its readiness is reported
// alongside the other components.
type Service struct {
	store   *Store
	running atomic.Bool
}

// NewService wraps store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Name implements services.ManagedService.
func (ss *Service) Name() string { return ServiceName }

// Start marks the store as serving. A disposed store cannot be started.
func (ss *Service) Start(_ context.Context) error {
	if ss.store.Disposed() {
		return ErrStoreDisposed
	}
	ss.running.Store(true)
	return nil
}

// Stop marks the store as stopped. Values stay readable until the store is disposed.
func (ss *Service) Stop(_ context.Context) error {
	ss.running.Store(false)
	return nil
}

// Health implements services.ManagedService.
func (ss *Service) Health() services.HealthStatus {
	switch {
	case ss.store.Disposed():
		return services.Unhealthy("store disposed")
	case !ss.running.Load():
		return services.Unhealthy("not started")
	default:
		return services.Healthy(fmt.Sprintf("%d keys, %d subscriptions", ss.store.Keys(), ss.store.SubscriptionCount()))
	}
}

// Dependencies implements services.ManagedService.
func (ss *Service) Dependencies() []string { return nil }

// Store returns the wrapped store.
func (ss *Service) Store() *Store { return ss.store }
