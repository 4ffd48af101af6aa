package ui

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/internal/crawler"
	"github.com/thep200/github-graph-crawler/internal/store"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

// Server is the status web server: document counts by type, crawl counters,
// health.
type Server struct {
	Logger  log.Logger
	Config  *cfg.Config
	Store   store.Store
	Crawler *crawler.Crawler
	server  *http.Server
	port    int
}

func NewServer(logger log.Logger, config *cfg.Config, st store.Store, cr *crawler.Crawler, port int) (*Server, error) {
	return &Server{
		Logger:  logger,
		Config:  config,
		Store:   st,
		Crawler: cr,
		port:    port,
	}, nil
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	handler, err := NewHandler(s.Logger, s.Config, s.Store, s.Crawler)
	if err != nil {
		return fmt.Errorf("failed to create status handler: %w", err)
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.Logger.Info(context.Background(), "Starting status server on port %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.Logger.Info(ctx, "Shutting down status server")
		return s.server.Shutdown(ctx)
	}
	return nil
}
