// Package api serves the completed run's results read-only over HTTP,
// together with the Prometheus metrics endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netsentry/kpi-rca/internal/config"
	"github.com/netsentry/kpi-rca/internal/models"
)

// Results is the immutable view of one completed run that the server exposes.
type Results struct {
	Bundle     *models.ResultBundle
	Baselines  map[string]models.NodeBaseline
	Statistics map[string]models.NodeStatistics
}

// Server wraps the HTTP results listener and lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	results    *Results
}

// NewServer constructs a results server bound to the configured address.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, results *Results) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if results == nil || results.Bundle == nil {
		return nil, fmt.Errorf("results bundle is required")
	}

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		listener: lis,
		results:  results,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/summary", s.handleSummary).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/degradations", s.handleDegradations).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/degradations/{index}/events", s.handleIntervalEvents).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/verdicts", s.handleVerdicts).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/baselines", s.handleBaselines).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s, nil
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	if s.httpServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown attempts a graceful shutdown within the context deadline.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("results server shutdown", slog.Any("error", err))
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
