// Package scheduler runs periodic maintenance jobs for a runtime.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
)

// ServiceName identifies the scheduler among managed components.
const ServiceName = "scheduler"

// Job names registered by the runtime.
const (
	HeartbeatJob    = "heartbeat"
	JournalPruneJob = "journal-prune"
)

// Scheduler wraps gocron scheduler for managing periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	running   atomic.Bool
	stopped   atomic.Bool
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.RuntimeError("failed to create gocron scheduler").WithCause(err).Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger,
	}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) error {
	s.logger.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
	s.running.Store(true)
	return nil
}

// Stop gracefully shuts down the scheduler. It may be called before Start and
// more than once.
func (s *Scheduler) Stop(_ context.Context) error {
	if s.stopped.Swap(true) {
		return nil
	}
	s.running.Store(false)
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool { return s.running.Load() }

// ScheduleEvery runs fn every interval. A run still in progress when the next is
// due causes that run to be skipped. Returns the job ID.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", errors.ValidationError("schedule interval must be positive").
			WithContext("job", name).
			WithContext("interval", interval.String()).
			Build()
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.RuntimeError(fmt.Sprintf("failed to create periodic job %s", name)).WithCause(err).Build()
	}
	return job.ID().String(), nil
}

// ScheduleCron runs fn on a five-field cron expression. Returns the job ID.
func (s *Scheduler) ScheduleCron(name, expr string, fn func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.ValidationError(fmt.Sprintf("invalid cron expression for job %s", name)).
			WithCause(err).
			WithContext("expr", expr).
			Build()
	}
	return job.ID().String(), nil
}

// ScheduleHeartbeat registers the heartbeat job.
func (s *Scheduler) ScheduleHeartbeat(interval time.Duration, fn func()) (string, error) {
	return s.ScheduleEvery(HeartbeatJob, interval, fn)
}

// JobNames returns the names of all registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}
