// Package admin serves the read-only diagnostics HTTP surface: health and
// readiness probes, the facade views as JSON, and Prometheus metrics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/fitstate/internal/facade"
	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/logfields"
	"git.home.luguber.info/inful/fitstate/internal/metrics"
)

// ServiceName is the component name the admin server registers under.
const ServiceName = "admin"

// DefaultMetricsPath is used when Config.MetricsPath is empty.
const DefaultMetricsPath = "/metrics"

// Config configures the admin server.
type Config struct {
	Addr        string
	MetricsPath string
	// Registry backs the metrics endpoint. Nil serves the default registry.
	Registry *prom.Registry
	Logger   *slog.Logger
}

// Server is the diagnostics HTTP server. It satisfies services.Runner.
type Server struct {
	cfg          Config
	facade       *facade.Facade
	logger       *slog.Logger
	errorAdapter *derrors.HTTPErrorAdapter

	mu      sync.Mutex
	srv     *http.Server
	ln      net.Listener
	running bool
}

// New creates an admin server over f.
func New(f *facade.Facade, cfg Config) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultMetricsPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:          cfg,
		facade:       f,
		logger:       logger,
		errorAdapter: derrors.NewHTTPErrorAdapter(logger),
	}
}

// Handler returns the routed handler wrapped in logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/state", s.handleStateTree)
	mux.HandleFunc("GET /api/state/{path}", s.handleStatePath)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/subscriptions", s.handleSubscriptions)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("GET "+s.cfg.MetricsPath, metrics.HTTPHandler(s.cfg.Registry))
	return chain(s.logger, s.errorAdapter, mux)
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return derrors.RuntimeError("admin listen failed").
			WithCause(err).
			WithContext("addr", s.cfg.Addr).
			Build()
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.srv = srv
	s.ln = ln
	s.running = true

	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("admin server error", logfields.Error(serveErr))
		}
	}()

	s.logger.Info("Admin server listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.cfg.Addr
}
