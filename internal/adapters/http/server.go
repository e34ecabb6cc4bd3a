package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ufogalaxy/devicelink/internal/adapters/http/handlers"
	"github.com/ufogalaxy/devicelink/internal/adapters/http/middleware"
)

// Server exposes the local status surface of a running link.
type Server struct {
	addr       string
	router     *chi.Mux
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(addr string, source handlers.StatsSource, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{addr: addr, logger: logger}
	s.setupRouter(source, version)
	return s
}

func (s *Server) setupRouter(source handlers.StatsSource, version string) {
	r := chi.NewRouter()

	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Metrics)

	status := handlers.NewStatusHandler(source, version, s.logger)
	r.Get("/healthz", status.Health)
	r.Get("/status", status.Status)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting status server", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down status server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}
