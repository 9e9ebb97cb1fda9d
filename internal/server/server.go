// Package server assembles the HTTP surface: signed worker delivery
// endpoints, the authenticated ops API, and the service probes.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"jobrelay/internal/server/handlers"
	"jobrelay/internal/server/middleware"
)

// Deps carries everything the server mounts.
type Deps struct {
	// Handlers serves the ops API and probes.
	Handlers *handlers.Handlers

	// Workers maps delivery endpoint paths to their signed worker handlers.
	Workers map[string]http.Handler

	// Metrics serves the Prometheus scrape endpoint, if set.
	Metrics http.Handler

	// OpsToken guards every /ops route.
	OpsToken string

	// OpsRateLimit and OpsRateBurst throttle the ops API per client.
	OpsRateLimit int
	OpsRateBurst int

	Logger *slog.Logger
}

// Server is the HTTP server for the worker and ops APIs.
type Server struct {
	httpServer *http.Server
}

// New creates a new server.
func New(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	// Worker delivery endpoints. The provider is the caller here; requests
	// are gated by payload signature inside each handler, not by the ops
	// token.
	for endpoint, handler := range deps.Workers {
		mux.Handle("POST "+endpoint, handler)
	}

	// Ops API
	opsAuth := middleware.RequireOpsAuth(deps.OpsToken)
	opsRate := middleware.NewRateLimiter(
		middleware.WithRate(deps.OpsRateLimit, deps.OpsRateBurst),
	).Middleware()
	ops := func(h http.HandlerFunc) http.Handler {
		return opsAuth(opsRate(h))
	}

	h := deps.Handlers
	mux.Handle("POST /ops/jobs", ops(h.EnqueueJob))
	mux.Handle("POST /ops/schedules", ops(h.CreateSchedule))
	mux.Handle("GET /ops/executions/{id}", ops(h.GetExecution))
	mux.Handle("GET /ops/executions", ops(h.ListExecutions))
	mux.Handle("GET /ops/failed", ops(h.ListFailed))
	mux.Handle("GET /ops/types", ops(h.ListJobTypes))

	// Probes and metrics stay unauthenticated.
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	root := middleware.RequestID(middleware.Logging(deps.Logger)(mux))

	return &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     root,
			ReadTimeout: 10 * time.Second,
			// No WriteTimeout: report generation legitimately holds a
			// delivery request for minutes. Per-job deadlines come from
			// the registry, not the server.
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
