package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/logfields"
)

// ServiceStatus represents the current lifecycle state of a component.
type ServiceStatus string

const (
	StatusNotStarted ServiceStatus = "not_started"
	StatusStarting   ServiceStatus = "starting"
	StatusRunning    ServiceStatus = "running"
	StatusStopping   ServiceStatus = "stopping"
	StatusStopped    ServiceStatus = "stopped"
	StatusFailed     ServiceStatus = "failed"
)

// ServiceInfo contains metadata about a managed component.
type ServiceInfo struct {
	Name         string        `json:"name" yaml:"name"`
	Status       ServiceStatus `json:"status" yaml:"status"`
	Health       HealthStatus  `json:"health" yaml:"health"`
	Dependencies []string      `json:"dependencies" yaml:"dependencies"`
	StartedAt    *time.Time    `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	StoppedAt    *time.Time    `json:"stopped_at,omitempty" yaml:"stopped_at,omitempty"`
	LastError    string        `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// ServiceOrchestrator manages the lifecycle of multiple components with dependency resolution.
type ServiceOrchestrator struct {
	services   map[string]ManagedService
	status     map[string]ServiceStatus
	startedAt  map[string]time.Time
	stoppedAt  map[string]time.Time
	lastErrors map[string]error
	mu         sync.RWMutex

	// lifecycleMu serializes StartAll and StopAll without blocking status reads.
	lifecycleMu sync.Mutex

	startTimeout time.Duration
	stopTimeout  time.Duration
	logger       *slog.Logger
}

// NewServiceOrchestrator creates a new service orchestrator.
func NewServiceOrchestrator() *ServiceOrchestrator {
	return &ServiceOrchestrator{
		services:     make(map[string]ManagedService),
		status:       make(map[string]ServiceStatus),
		startedAt:    make(map[string]time.Time),
		stoppedAt:    make(map[string]time.Time),
		lastErrors:   make(map[string]error),
		startTimeout: 30 * time.Second,
		stopTimeout:  10 * time.Second,
		logger:       slog.Default(),
	}
}

// WithTimeouts configures start and stop timeouts.
func (so *ServiceOrchestrator) WithTimeouts(start, stop time.Duration) *ServiceOrchestrator {
	so.startTimeout = start
	so.stopTimeout = stop
	return so
}

// WithLogger sets the logger used for lifecycle events.
func (so *ServiceOrchestrator) WithLogger(l *slog.Logger) *ServiceOrchestrator {
	if l != nil {
		so.logger = l
	}
	return so
}

// RegisterService adds a component to the orchestrator.
func (so *ServiceOrchestrator) RegisterService(service ManagedService) error {
	so.mu.Lock()
	defer so.mu.Unlock()

	name := service.Name()
	if name == "" {
		return errors.ValidationError("service name cannot be empty").Build()
	}

	if _, exists := so.services[name]; exists {
		return errors.ValidationError(fmt.Sprintf("service %s already registered", name)).
			WithContext("service", name).
			Build()
	}

	so.services[name] = service
	so.status[name] = StatusNotStarted

	so.logger.Debug("Service registered", logfields.Component(name), slog.Any("dependencies", service.Dependencies()))
	return nil
}

// StartAll starts all components in dependency order. On failure every component
// already started is stopped again.
func (so *ServiceOrchestrator) StartAll(ctx context.Context) error {
	so.lifecycleMu.Lock()
	defer so.lifecycleMu.Unlock()

	so.mu.RLock()
	startOrder, err := so.calculateStartOrder()
	so.mu.RUnlock()
	if err != nil {
		return errors.InternalError("failed to calculate service start order").
			WithCause(err).
			Build()
	}

	so.logger.Info("Starting services", logfields.Count(len(startOrder)), slog.Any("order", startOrder))

	for _, serviceName := range startOrder {
		if err := so.startService(ctx, serviceName); err != nil {
			so.stopStartedServices(ctx, startOrder)
			return err
		}
	}

	so.logger.Info("All services started successfully")
	return nil
}

// StopAll stops all running components in reverse dependency order.
func (so *ServiceOrchestrator) StopAll(ctx context.Context) error {
	so.lifecycleMu.Lock()
	defer so.lifecycleMu.Unlock()

	so.mu.RLock()
	startOrder, err := so.calculateStartOrder()
	so.mu.RUnlock()
	if err != nil {
		return errors.InternalError("failed to calculate service stop order").
			WithCause(err).
			Build()
	}

	stopOrder := slices.Clone(startOrder)
	slices.Reverse(stopOrder)

	so.logger.Info("Stopping services", logfields.Count(len(stopOrder)), slog.Any("order", stopOrder))

	var lastError error
	for _, serviceName := range stopOrder {
		if err := so.stopService(ctx, serviceName); err != nil {
			lastError = err
			so.logger.Error("Error stopping service", logfields.Component(serviceName), logfields.Error(err))
		}
	}

	if lastError != nil {
		return errors.RuntimeError("some services failed to stop gracefully").
			WithCause(lastError).
			Build()
	}

	so.logger.Info("All services stopped successfully")
	return nil
}

// GetServiceInfo returns information about a specific component.
func (so *ServiceOrchestrator) GetServiceInfo(name string) (ServiceInfo, bool) {
	so.mu.RLock()
	defer so.mu.RUnlock()
	return so.serviceInfo(name)
}

func (so *ServiceOrchestrator) serviceInfo(name string) (ServiceInfo, bool) {
	service, exists := so.services[name]
	if !exists {
		return ServiceInfo{}, false
	}

	info := ServiceInfo{
		Name:         name,
		Status:       so.status[name],
		Dependencies: service.Dependencies(),
		Health:       service.Health(),
	}

	if startTime, exists := so.startedAt[name]; exists {
		info.StartedAt = &startTime
	}

	if stopTime, exists := so.stoppedAt[name]; exists {
		info.StoppedAt = &stopTime
	}

	if err, exists := so.lastErrors[name]; exists && err != nil {
		info.LastError = err.Error()
	}

	return info, true
}

// GetAllServiceInfo returns information about all components sorted by name.
func (so *ServiceOrchestrator) GetAllServiceInfo() []ServiceInfo {
	so.mu.RLock()
	defer so.mu.RUnlock()

	infos := make([]ServiceInfo, 0, len(so.services))
	for _, name := range so.sortedNames() {
		if info, ok := so.serviceInfo(name); ok {
			infos = append(infos, info)
		}
	}
	return infos
}

// ComponentStatuses returns the lifecycle status of every registered component.
func (so *ServiceOrchestrator) ComponentStatuses() map[string]ServiceStatus {
	so.mu.RLock()
	defer so.mu.RUnlock()

	out := make(map[string]ServiceStatus, len(so.status))
	for name, status := range so.status {
		out[name] = status
	}
	return out
}

func (so *ServiceOrchestrator) sortedNames() []string {
	names := make([]string, 0, len(so.services))
	for name := range so.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// calculateStartOrder determines the order in which components should be started.
// Caller must hold so.mu.
func (so *ServiceOrchestrator) calculateStartOrder() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if visiting[name] {
			return fmt.Errorf("circular dependency detected involving service: %s", name)
		}

		if visited[name] {
			return nil
		}

		visiting[name] = true

		service, exists := so.services[name]
		if !exists {
			return fmt.Errorf("service not found: %s", name)
		}

		for _, dep := range service.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}

		visiting[name] = false
		visited[name] = true
		order = append(order, name)

		return nil
	}

	for _, name := range so.sortedNames() {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return order, nil
}

func (so *ServiceOrchestrator) setStatus(name string, status ServiceStatus) {
	so.mu.Lock()
	so.status[name] = status
	so.mu.Unlock()
}

// startService starts a single component with timeout.
func (so *ServiceOrchestrator) startService(ctx context.Context, name string) error {
	so.mu.RLock()
	service := so.services[name]
	so.mu.RUnlock()

	so.setStatus(name, StatusStarting)

	timeoutCtx, cancel := context.WithTimeout(ctx, so.startTimeout)
	defer cancel()

	so.logger.Debug("Starting service", logfields.Component(name))
	startTime := time.Now()

	err := runWithContext(timeoutCtx, service.Start)

	so.mu.Lock()
	defer so.mu.Unlock()
	if err != nil {
		so.status[name] = StatusFailed
		so.lastErrors[name] = err
		return errors.RuntimeError(fmt.Sprintf("failed to start service %s", name)).
			WithCause(err).
			WithContext("service", name).
			Build()
	}

	so.status[name] = StatusRunning
	so.startedAt[name] = startTime
	so.lastErrors[name] = nil

	so.logger.Info("Service started", logfields.Component(name), logfields.DurationMS(float64(time.Since(startTime).Microseconds())/1000))
	return nil
}

// stopService stops a single component with timeout.
func (so *ServiceOrchestrator) stopService(ctx context.Context, name string) error {
	so.mu.RLock()
	service := so.services[name]
	running := so.status[name] == StatusRunning
	so.mu.RUnlock()

	if !running {
		return nil
	}

	so.setStatus(name, StatusStopping)

	timeoutCtx, cancel := context.WithTimeout(ctx, so.stopTimeout)
	defer cancel()

	so.logger.Debug("Stopping service", logfields.Component(name))
	stopTime := time.Now()

	err := runWithContext(timeoutCtx, service.Stop)

	so.mu.Lock()
	defer so.mu.Unlock()
	if err != nil {
		so.status[name] = StatusFailed
		so.lastErrors[name] = err
		return err
	}

	so.status[name] = StatusStopped
	so.stoppedAt[name] = stopTime

	so.logger.Info("Service stopped", logfields.Component(name), logfields.DurationMS(float64(time.Since(stopTime).Microseconds())/1000))
	return nil
}

// stopStartedServices stops running components in reverse start order (cleanup on start failure).
func (so *ServiceOrchestrator) stopStartedServices(ctx context.Context, startOrder []string) {
	for _, name := range slices.Backward(startOrder) {
		if err := so.stopService(ctx, name); err != nil {
			so.logger.Error("Error stopping service during cleanup", logfields.Component(name), logfields.Error(err))
		}
	}
}

// runWithContext returns ctx.Err() when fn outlives ctx.
func runWithContext(ctx context.Context, fn func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
