// Package server provides the HTML form and JSON API for clustering GEO series.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/geocluster/internal/collect"
	"github.com/hyperjump/geocluster/internal/config"
	"github.com/hyperjump/geocluster/internal/metrics"
	"github.com/hyperjump/geocluster/internal/pipeline"
)

// Collector gathers GEO records for PMIDs.
type Collector interface {
	Collect(ctx context.Context, pmids []string) (*collect.Collection, error)
}

// PMIDSource supplies the suggested PMIDs shown in the form.
type PMIDSource interface {
	IDs() []string
}

// Server is the HTTP server for the geocluster UI and API.
type Server struct {
	pipeline  *pipeline.Pipeline
	collector Collector
	pmids     PMIDSource
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. pmids may be nil.
func NewServer(
	p *pipeline.Pipeline,
	collector Collector,
	pmids PMIDSource,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pipeline:  p,
		collector: collector,
		pmids:     pmids,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	timeout := time.Duration(s.config.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleClusterForm)
	r.Post("/api/v1/cluster", s.handleCluster)
	r.Get("/api/v1/pmids", s.handlePMIDs)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	metrics.Register()
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
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
