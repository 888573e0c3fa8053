package seed

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/logfields"
)

// ServiceName identifies the seed watcher among managed components.
const ServiceName = "seed"

// DefaultDebounce delays re-application after a burst of file events.
const DefaultDebounce = 500 * time.Millisecond

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Path     string
	Watch    bool
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher applies a seed file at start and, when watching, re-applies it after
// the file changes.
type Watcher struct {
	path     string
	watch    bool
	debounce time.Duration
	target   Target
	logger   *slog.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	reloadCh chan struct{}

	running atomic.Bool
	applies atomic.Uint64
}

// NewWatcher creates a watcher for cfg.Path that writes to target.
func NewWatcher(target Target, cfg WatcherConfig) (*Watcher, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, errors.FileSystemError("failed to resolve seed path").
			WithCause(err).
			WithContext("file", cfg.Path).
			Build()
	}
	w := &Watcher{
		path:     absPath,
		watch:    cfg.Watch,
		debounce: cfg.Debounce,
		target:   target,
		logger:   cfg.Logger,
		reloadCh: make(chan struct{}, 1),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w, nil
}

// Start applies the seed once and, when watching, begins monitoring the file.
// The monitoring goroutines outlive ctx; Stop ends them.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running.Load() {
		return nil
	}

	if err := w.apply(ctx); err != nil {
		if !errors.HasCategory(err, errors.CategoryListener) {
			return err
		}
		w.logger.Warn("Seed applied with listener failures", logfields.File(w.path), logfields.Error(err))
	}

	if w.watch {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.FileSystemError("failed to create file watcher").WithCause(err).Build()
		}
		// Watch the directory: editors replace files rather than writing in place.
		dir := filepath.Dir(w.path)
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return errors.FileSystemError("failed to watch seed directory").
				WithCause(err).
				WithContext("dir", dir).
				Build()
		}
		w.fsw = fsw

		loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		w.cancel = cancel
		w.wg.Add(2)
		go w.watchLoop(loopCtx)
		go w.reloadLoop(loopCtx)
		w.logger.Info("Watching seed file", logfields.File(w.path))
	}

	w.running.Store(true)
	return nil
}

// Stop ends file monitoring and waits for the loops to exit.
func (w *Watcher) Stop(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running.Load() {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsw != nil {
		if err := w.fsw.Close(); err != nil {
			w.logger.Error("Error closing seed watcher", logfields.Error(err))
		}
	}
	w.wg.Wait()
	w.fsw = nil
	w.cancel = nil
	w.running.Store(false)
	return nil
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (w *Watcher) IsRunning() bool { return w.running.Load() }

// Applies returns how many times the seed file has been applied.
func (w *Watcher) Applies() uint64 { return w.applies.Load() }

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				w.logger.Debug("Seed file change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
				w.trigger()
			case event.Has(fsnotify.Remove):
				w.logger.Warn("Seed file removed", logfields.File(event.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Seed watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) trigger() {
	select {
	case w.reloadCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) reloadLoop(ctx context.Context) {
	defer w.wg.Done()
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.reloadCh:
			timer.Reset(w.debounce)
		case <-timer.C:
			if err := w.apply(ctx); err != nil {
				w.logger.Error("Failed to re-apply seed file", logfields.File(w.path), logfields.Error(err))
			}
		}
	}
}

func (w *Watcher) apply(ctx context.Context) error {
	s, err := Load(w.path)
	if err != nil {
		return err
	}
	n, err := Apply(ctx, w.target, s)
	w.applies.Add(1)
	w.logger.Info("Seed applied", logfields.File(w.path), logfields.Count(n))
	return err
}
