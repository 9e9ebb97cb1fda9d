// Package handlers contains HTTP handlers for the ops API and service probes.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"jobrelay/internal/jobs"
	"jobrelay/internal/store"
	"jobrelay/pkg/api"

	"github.com/google/uuid"
)

// Store combines the persistence surfaces the ops handlers depend on.
type Store interface {
	Ping(ctx context.Context) error
	store.ExecutionStore
}

// Dispatcher is the enqueue/schedule surface of the job dispatcher.
type Dispatcher interface {
	Enqueue(ctx context.Context, payload jobs.Payload, meta jobs.Metadata, opts ...jobs.EnqueueOption) (uuid.UUID, error)
	Schedule(ctx context.Context, cronExpr string, payload jobs.Payload, meta jobs.Metadata) (string, error)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store      Store
	dispatcher Dispatcher
	registry   *jobs.Registry
	logger     *slog.Logger
}

// New creates a new Handlers instance.
func New(s Store, d Dispatcher, registry *jobs.Registry, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:      s,
		dispatcher: d,
		registry:   registry,
		logger:     logger,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
