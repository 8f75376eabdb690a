// Package api exposes the management HTTP API: reputation checks,
// blocklist enablement and operational endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/busybox42/relaycheck/internal/dnsbl"
)

// Config represents API server configuration
type Config struct {
	Listen       string
	AuthEnabled  bool
	AuthUser     string
	AuthPassword string // bcrypt hash
}

// Server serves the management API
type Server struct {
	config     Config
	checker    *dnsbl.Checker
	registry   *dnsbl.Registry
	logger     *slog.Logger
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer creates an API server over the given checker and registry
func NewServer(config Config, checker *dnsbl.Checker, registry *dnsbl.Registry, logger *slog.Logger) *Server {
	if config.Listen == "" {
		config.Listen = "127.0.0.1:8125"
	}

	s := &Server{
		config:    config,
		checker:   checker,
		registry:  registry,
		logger:    logger.With("component", "api"),
		startedAt: time.Now(),
	}

	router := mux.NewRouter()
	router.Use(s.requestLogger)

	apiRouter := router.PathPrefix("/api").Subrouter()
	if config.AuthEnabled {
		apiRouter.Use(s.basicAuth)
	}
	apiRouter.HandleFunc("/check", s.handleCheck).Methods("POST")
	apiRouter.HandleFunc("/blocklists", s.handleListBlocklists).Methods("GET")
	apiRouter.HandleFunc("/blocklists/reset", s.handleResetBlocklists).Methods("POST")
	apiRouter.HandleFunc("/blocklists/{name:.+}", s.handleSetBlocklist).Methods("PUT")
	apiRouter.HandleFunc("/health", s.handleHealth).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         config.Listen,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the root handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe runs the server until Shutdown is called
func (s *Server) ListenAndServe() error {
	s.logger.Info("api server listening", "addr", s.config.Listen)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("api server shutting down")
	return s.httpServer.Shutdown(ctx)
}
