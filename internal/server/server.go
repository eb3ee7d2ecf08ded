// Package server provides the HTTP API for fileparse.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/fileparse/internal/config"
	"go.uber.org/zap"
)

// requestTimeout bounds every route except parse, which streams until its
// input ends or the client goes away.
const requestTimeout = 60 * time.Second

// Server is the HTTP server for the fileparse API.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	timeout time.Duration
}

// NewServer creates a server. Parse defaults (encoding, delimiter) come from
// cfg.Parse and listen settings from cfg.Server.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config:  cfg,
		logger:  logger,
		timeout: requestTimeout,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	timeout := middleware.Timeout(s.timeout)

	r.With(timeout).Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.With(timeout).Get("/formats", s.handleFormats)
		r.Post("/parse", s.handleParse)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
