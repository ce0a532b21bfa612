// Package api serves a record file over a JSON REST API.
//
// Routes live under /api/v1 and require the X-API-Key header when a key is
// configured. Prometheus metrics are served unauthenticated at /metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP handler for s. gatherer serves /metrics; nil
// leaves the route out.
func (s *Server) Router(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	if s.config.RequestIDs {
		r.Use(requestIDMiddleware)
	}
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// unprotected for scraping
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		auth := apiKeyMiddleware(s.config.APIKey)
		if s.metrics != nil {
			auth = s.metrics.InstrumentAuthMiddleware(auth)
		}
		r.Use(auth)

		r.Get("/health", s.instrument("GET", "/api/v1/health", s.handleHealth))

		r.Get("/records", s.instrument("GET", "/api/v1/records", s.handleListRecords))
		r.Post("/records", s.instrument("POST", "/api/v1/records", s.handleCreateRecord))
		r.Get("/records/count", s.instrument("GET", "/api/v1/records/count", s.handleCount))
		r.Post("/records/swap", s.instrument("POST", "/api/v1/records/swap", s.handleSwap))
		r.Get("/records/{index}", s.instrument("GET", "/api/v1/records/{index}", s.handleGetRecord))
		r.Put("/records/{index}", s.instrument("PUT", "/api/v1/records/{index}", s.handlePutRecord))
		r.Post("/records/{index}", s.instrument("POST", "/api/v1/records/{index}", s.handleInsertRecord))
		r.Delete("/records/{index}", s.instrument("DELETE", "/api/v1/records/{index}", s.handleDeleteRecord))
	})

	return r
}

func (s *Server) instrument(method, endpoint string, h http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return h
	}
	return s.metrics.InstrumentHandler(method, endpoint, h)
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully
func (s *Server) Serve(ctx context.Context, gatherer prometheus.Gatherer) error {
	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting recfile REST API server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
