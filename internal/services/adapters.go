package services

import (
	"context"
)

// Runner is the lifecycle shape shared by the long-running components
// (diagnostics server, scheduler, file watcher).
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}

// RunnerService adapts a Runner to the ManagedService interface.
type RunnerService struct {
	runner Runner
	name   string
	idle   string
	deps   []string
}

// NewHTTPServerService adapts an HTTP server.
func NewHTTPServerService(name string, server Runner, deps ...string) *RunnerService {
	return &RunnerService{runner: server, name: name, idle: "server not running", deps: deps}
}

// NewSchedulerService adapts a job scheduler.
func NewSchedulerService(name string, scheduler Runner, deps ...string) *RunnerService {
	return &RunnerService{runner: scheduler, name: name, idle: "scheduler not running", deps: deps}
}

// NewWatcherService adapts a file watcher.
func NewWatcherService(name string, watcher Runner, deps ...string) *RunnerService {
	return &RunnerService{runner: watcher, name: name, idle: "not watching", deps: deps}
}

func (r *RunnerService) Name() string {
	return r.name
}

func (r *RunnerService) Start(ctx context.Context) error {
	return r.runner.Start(ctx)
}

func (r *RunnerService) Stop(ctx context.Context) error {
	return r.runner.Stop(ctx)
}

func (r *RunnerService) Health() HealthStatus {
	if r.runner.IsRunning() {
		return Healthy("")
	}
	return Unhealthy(r.idle)
}

func (r *RunnerService) Dependencies() []string {
	return r.deps
}
