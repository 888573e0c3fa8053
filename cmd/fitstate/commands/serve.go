package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/fitstate/internal/config"
	"git.home.luguber.info/inful/fitstate/internal/logfields"
	"git.home.luguber.info/inful/fitstate/internal/runtime"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Seed      string `help:"Seed file applied at start (overrides seed.file)" type:"path"`
	Watch     bool   `help:"Re-apply the seed file when it changes"`
	AdminAddr string `name:"admin-addr" help:"Admin listen address (overrides admin.addr)"`
	NoAdmin   bool   `name:"no-admin" help:"Disable the admin HTTP server"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	s.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunServe(ctx, cfg, g.Logger, nil)
}

func (s *ServeCmd) apply(cfg *config.Config) {
	if s.Seed != "" {
		cfg.Seed.File = s.Seed
	}
	if s.Watch {
		cfg.Seed.Watch = true
	}
	if s.AdminAddr != "" {
		cfg.Admin.Addr = s.AdminAddr
	}
	if s.NoAdmin {
		cfg.Admin.Enabled = false
	}
}

// RunServe creates and starts a runtime, calls onReady when every component is
// running, and blocks until ctx is done. The runtime is always disposed.
func RunServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, onReady func(*runtime.Runtime)) (err error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt, err := runtime.Create(ctx, cfg, runtime.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer stopCancel()
		if derr := rt.Dispose(stopCtx); derr != nil && err == nil {
			err = derr
		}
	}()

	if err := rt.Start(ctx); err != nil {
		return err
	}
	logger.Info("fitstate serving, waiting for shutdown signal",
		logfields.SessionID(rt.SessionID()),
		logfields.Count(len(rt.Components())))
	if onReady != nil {
		onReady(rt)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping runtime")
	return nil
}
