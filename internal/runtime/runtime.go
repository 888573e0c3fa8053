// Package runtime assembles a state store, its facade and the supporting
// components (journal, seed watcher, scheduler, admin server) from
// configuration, and owns their lifecycle.
package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/fitstate/internal/admin"
	"git.home.luguber.info/inful/fitstate/internal/config"
	"git.home.luguber.info/inful/fitstate/internal/facade"
	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/journal"
	"git.home.luguber.info/inful/fitstate/internal/logfields"
	"git.home.luguber.info/inful/fitstate/internal/metrics"
	"git.home.luguber.info/inful/fitstate/internal/scheduler"
	"git.home.luguber.info/inful/fitstate/internal/seed"
	"git.home.luguber.info/inful/fitstate/internal/services"
	"git.home.luguber.info/inful/fitstate/internal/state"
	"git.home.luguber.info/inful/fitstate/internal/tracing"
	"git.home.luguber.info/inful/fitstate/internal/version"
)

// Runtime is one process-local state store with its components. Create
// replaces the global singleton: callers own the Runtime and dispose it.
type Runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessionID string

	registry     *prom.Registry
	recorder     metrics.Recorder
	store        *state.Store
	facade       *facade.Facade
	orchestrator *services.ServiceOrchestrator

	journalStore journal.Store
	ownsJournal  bool
	writer       *journal.Writer
	seedWatcher  *seed.Watcher
	scheduler    *scheduler.Scheduler
	admin        *admin.Server

	shutdownTracing tracing.ShutdownFunc

	disposeOnce sync.Once
	disposeErr  error
}

// Create builds a runtime from cfg. Nothing is started until Start.
func Create(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, derrors.ConfigError("configuration is required").Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = prom.NewRegistry()
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	r := &Runtime{
		cfg:             cfg,
		sessionID:       uuid.NewString(),
		registry:        o.registry,
		recorder:        metrics.NewPrometheusRecorder(o.registry),
		shutdownTracing: func(context.Context) error { return nil },
	}
	r.logger = o.logger.With(logfields.SessionID(r.sessionID))

	tp := o.tracerProvider
	if tp == nil {
		var (
			shutdown tracing.ShutdownFunc
			err      error
		)
		tp, shutdown, err = tracing.Setup(ctx, tracing.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return nil, err
		}
		r.shutdownTracing = shutdown
	}

	r.store = state.New(
		state.WithLogger(r.logger),
		state.WithRecorder(r.recorder),
		state.WithMaxDispatchDepth(cfg.Store.MaxDispatchDepth),
		state.WithNestedWrites(nestedWriteMode(cfg.Store.NestedWrites)),
		state.WithDispatchTimeout(cfg.Store.DispatchTimeout),
		state.WithTracerProvider(tp),
	)
	r.orchestrator = services.NewServiceOrchestrator().WithLogger(r.logger)
	r.facade = facade.New(r.store,
		facade.WithComponents(r.orchestrator),
		facade.WithVersion(version.Version),
	)

	if err := r.wire(o); err != nil {
		_ = r.Dispose(ctx)
		return nil, err
	}
	return r, nil
}

func (r *Runtime) wire(o options) error {
	if err := r.orchestrator.RegisterService(state.NewService(r.store)); err != nil {
		return err
	}
	if err := r.wireJournal(o); err != nil {
		return err
	}
	if err := r.wireSeed(); err != nil {
		return err
	}
	if err := r.wireScheduler(); err != nil {
		return err
	}
	return r.wireAdmin()
}

func (r *Runtime) wireJournal(o options) error {
	switch {
	case o.journalStore != nil:
		r.journalStore = o.journalStore
	case r.cfg.Journal.Enabled:
		js, err := journal.NewSQLiteStore(r.cfg.Journal.Path)
		if err != nil {
			return err
		}
		r.journalStore = js
		r.ownsJournal = true
	default:
		return nil
	}

	r.writer = journal.NewWriter(r.journalStore, journal.WriterConfig{
		SessionID: r.sessionID,
		QueueSize: r.cfg.Journal.QueueSize,
		Logger:    r.logger,
		Recorder:  r.recorder,
		Retry:     r.cfg.Journal.Retry.Policy(),
	})
	r.store.AddObserver(r.writer)
	return r.orchestrator.RegisterService(r.writer)
}

func (r *Runtime) wireSeed() error {
	if r.cfg.Seed.File == "" {
		return nil
	}
	w, err := seed.NewWatcher(r.store, seed.WatcherConfig{
		Path:     r.cfg.Seed.File,
		Watch:    r.cfg.Seed.Watch,
		Debounce: r.cfg.Seed.Debounce,
		Logger:   r.logger,
	})
	if err != nil {
		return err
	}
	r.seedWatcher = w
	return r.orchestrator.RegisterService(services.NewWatcherService(seed.ServiceName, w, state.ServiceName))
}

// pruneTimeout bounds one journal retention run.
const pruneTimeout = time.Minute

func (r *Runtime) wireScheduler() error {
	heartbeat := r.cfg.Scheduler.HeartbeatInterval > 0
	prune := r.writer != nil && r.cfg.Journal.Retention > 0
	if !heartbeat && !prune {
		return nil
	}
	s, err := scheduler.NewScheduler(r.logger)
	if err != nil {
		return err
	}
	if heartbeat {
		if _, err := s.ScheduleHeartbeat(r.cfg.Scheduler.HeartbeatInterval, r.heartbeat); err != nil {
			_ = s.Stop(context.Background())
			return err
		}
	}
	if prune {
		if _, err := s.ScheduleCron(scheduler.JournalPruneJob, r.cfg.Scheduler.JournalPrune, r.pruneJournal); err != nil {
			_ = s.Stop(context.Background())
			return err
		}
	}
	r.scheduler = s
	return r.orchestrator.RegisterService(services.NewSchedulerService(scheduler.ServiceName, s, state.ServiceName))
}

func (r *Runtime) wireAdmin() error {
	if !r.cfg.Admin.Enabled {
		return nil
	}
	r.admin = admin.New(r.facade, admin.Config{
		Addr:        r.cfg.Admin.Addr,
		MetricsPath: r.cfg.Admin.MetricsPath,
		Registry:    r.registry,
		Logger:      r.logger,
	})
	return r.orchestrator.RegisterService(services.NewHTTPServerService(admin.ServiceName, r.admin, state.ServiceName))
}

// heartbeat logs the initialization summary and refreshes the store gauges.
func (r *Runtime) heartbeat() {
	status := r.facade.GetInitializationStatus()
	r.recorder.SetHistoryLength(status.SystemState.HistoryLength)
	r.recorder.SetActiveSubscriptions(status.SystemState.Subscriptions)
	r.logger.Info("Heartbeat",
		slog.Bool("initialized", status.IsInitialized),
		slog.Int("components", len(status.Components)),
		slog.Int("state_keys", status.SystemState.StateKeys),
		slog.Int("history_length", status.SystemState.HistoryLength),
		slog.Int("subscriptions", status.SystemState.Subscriptions),
		slog.String("uptime", status.SystemState.Uptime))
}

// pruneJournal deletes journal sessions older than the configured retention.
// The current session is kept.
func (r *Runtime) pruneJournal() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	before := time.Now().Add(-r.cfg.Journal.Retention)
	n, err := r.journalStore.Prune(ctx, before, r.sessionID)
	if err != nil {
		r.logger.Warn("Journal prune failed", logfields.Error(err))
		return
	}
	r.logger.Info("Journal pruned", logfields.Count(int(n)),
		slog.String("retention", r.cfg.Journal.Retention.String()))
}

// Scheduler returns the job scheduler, or nil when no job is configured.
func (r *Runtime) Scheduler() *scheduler.Scheduler { return r.scheduler }

// Start starts every component in dependency order.
func (r *Runtime) Start(ctx context.Context) error {
	if r.store.Disposed() {
		return state.ErrStoreDisposed
	}
	if err := r.orchestrator.StartAll(ctx); err != nil {
		return err
	}
	r.heartbeat()
	return nil
}

// Dispose stops all components, disposes the store, closes an owned journal
// and flushes tracing. It is safe to call more than once.
func (r *Runtime) Dispose(ctx context.Context) error {
	r.disposeOnce.Do(func() {
		var errs []error
		if err := r.orchestrator.StopAll(ctx); err != nil {
			errs = append(errs, err)
		}
		// A scheduler that was never started still owns gocron goroutines.
		if r.scheduler != nil {
			if err := r.scheduler.Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		r.store.Dispose()
		if r.ownsJournal && r.journalStore != nil {
			if err := r.journalStore.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, err)
		}
		r.disposeErr = errors.Join(errs...)
		r.logger.Info("Runtime disposed")
	})
	return r.disposeErr
}

// Store returns the state store.
func (r *Runtime) Store() *state.Store { return r.store }

// Facade returns the read-only introspection view.
func (r *Runtime) Facade() *facade.Facade { return r.facade }

// SessionID identifies this runtime's journal records.
func (r *Runtime) SessionID() string { return r.sessionID }

// Registry returns the Prometheus registry backing the metrics endpoint.
func (r *Runtime) Registry() *prom.Registry { return r.registry }

// Admin returns the admin server, or nil when it is disabled.
func (r *Runtime) Admin() *admin.Server { return r.admin }

// Components returns lifecycle information for every registered component.
func (r *Runtime) Components() []services.ServiceInfo {
	return r.orchestrator.GetAllServiceInfo()
}

func nestedWriteMode(n config.NestedWrites) state.NestedWriteMode {
	if n == config.NestedWritesReject {
		return state.NestedReject
	}
	return state.NestedAllow
}
