package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/mux"

	"chrono-hq/reaper/pkg/config"
	"chrono-hq/reaper/pkg/promstore"
	"chrono-hq/reaper/pkg/retention"
	"chrono-hq/reaper/pkg/retention/store"
	"chrono-hq/reaper/pkg/telemetry/metrics"
)

// Server is the management HTTP server for the retention engine.
type Server struct {
	config       *config.ServerConfig
	handler      *Handler
	instr        *metrics.Collector
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new management server.
func NewServer(cfg *config.ServerConfig, policies store.Store, orch *retention.Orchestrator, sched *retention.Scheduler, remote *promstore.Client, instr *metrics.Collector) *Server {
	return &Server{
		config:       cfg,
		handler:      NewHandler(policies, orch, sched, remote),
		instr:        instr,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting management server", "address", s.config.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("management server stopped")
	})

	return shutdownErr
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/policies", s.handler.CreatePolicy).Methods(http.MethodPost)
	api.HandleFunc("/policies", s.handler.ListPolicies).Methods(http.MethodGet)
	// Registered before the {id} routes so "execute-all" never matches
	// an id.
	api.HandleFunc("/policies/execute-all", s.handler.ExecuteAll).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}", s.handler.GetPolicy).Methods(http.MethodGet)
	api.HandleFunc("/policies/{id}", s.handler.UpdatePolicy).Methods(http.MethodPut)
	api.HandleFunc("/policies/{id}", s.handler.DeletePolicy).Methods(http.MethodDelete)
	api.HandleFunc("/policies/{id}/execute", s.handler.ExecutePolicy).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}/dry-run", s.handler.DryRunPolicy).Methods(http.MethodPost)
	api.HandleFunc("/policies/{id}/logs", s.handler.ListExecutionLogs).Methods(http.MethodGet)
	api.HandleFunc("/scheduler/status", s.handler.SchedulerStatus).Methods(http.MethodGet)
	api.HandleFunc("/connection", s.handler.CheckConnection).Methods(http.MethodGet)

	router.HandleFunc("/health", s.handler.Health).Methods(http.MethodGet)

	if s.instr != nil {
		router.Handle("/metrics", s.instr.Handler()).Methods(http.MethodGet)
	}

	var handler http.Handler = router
	handler = loggingMiddleware(handler)
	handler = recoveryMiddleware(handler)

	return handler
}

// Handler returns the configured HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
