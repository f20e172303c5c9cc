// Package server exposes the focusd HTTP API: interval lifecycle operations
// under /api/v1, per-owner settings and session history, and the operational
// endpoints (/healthz, /metrics, /status).
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/focusd/internal/config"
	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
	"git.home.luguber.info/inful/focusd/internal/server/middleware"
	"git.home.luguber.info/inful/focusd/internal/service"
)

// Server is the focusd HTTP API server.
type Server struct {
	cfg          config.ServerConfig
	svc          *service.Service
	logger       *slog.Logger
	errorAdapter *derrors.HTTPErrorAdapter
	metrics      http.Handler
	httpServer   *http.Server
}

// New builds the server. metricsHandler may be nil to disable /metrics.
func New(cfg config.ServerConfig, svc *service.Service, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:          cfg,
		svc:          svc,
		logger:       logger,
		errorAdapter: derrors.NewHTTPErrorAdapter(logger),
		metrics:      metricsHandler,
	}
	chain := middleware.Chain(logger, s.errorAdapter)
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      chain(s.routes()),
		ReadTimeout:  cfg.ReadTimeoutDuration(),
		WriteTimeout: cfg.WriteTimeoutDuration(),
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/intervals", s.handleCreate)
	mux.HandleFunc("GET /api/v1/intervals", s.handleList)
	mux.HandleFunc("GET /api/v1/intervals/active", s.handleActive)
	mux.HandleFunc("GET /api/v1/intervals/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/intervals/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/v1/intervals/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/intervals/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/v1/intervals/{id}/start", s.transitionHandler(s.svc.Start))
	mux.HandleFunc("POST /api/v1/intervals/{id}/pause", s.transitionHandler(s.svc.Pause))
	mux.HandleFunc("POST /api/v1/intervals/{id}/resume", s.transitionHandler(s.svc.Resume))
	mux.HandleFunc("POST /api/v1/intervals/{id}/complete", s.transitionHandler(s.svc.Complete))
	mux.HandleFunc("POST /api/v1/intervals/{id}/cancel", s.transitionHandler(s.svc.Cancel))

	mux.HandleFunc("GET /api/v1/settings", s.handleGetSettings)
	mux.HandleFunc("PATCH /api/v1/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/v1/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/v1/sessions/daily", s.handleDailyTotals)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Handler exposes the fully wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the listener until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
