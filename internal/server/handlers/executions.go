package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"jobrelay/internal/jobs"
	"jobrelay/internal/logger"
	"jobrelay/internal/store"
	"jobrelay/pkg/api"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// GetExecution handles GET /ops/executions/{id}.
// Returns the current status and outcome of a job execution.
func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	execution, err := h.store.GetExecutionByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Execution not found", http.StatusNotFound)
			return
		}
		logger.FromContext(ctx, h.logger).Error("failed to load execution",
			"job_id", jobID.String(), "error", err)
		h.httpError(w, "Failed to load execution", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, executionResponse(execution))
}

// ListExecutions handles GET /ops/executions?type=...&limit=...
// Returns the most recent executions of one job type.
func (h *Handlers) ListExecutions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobType := r.URL.Query().Get("type")
	if jobType == "" {
		h.httpError(w, "Missing type parameter", http.StatusBadRequest)
		return
	}
	if _, err := h.registry.Config(jobs.JobType(jobType)); err != nil {
		h.httpError(w, "Unknown job type", http.StatusBadRequest)
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.httpError(w, "Invalid limit parameter", http.StatusBadRequest)
		return
	}

	executions, err := h.store.ListExecutionsByType(ctx, jobType, limit)
	if err != nil {
		logger.FromContext(ctx, h.logger).Error("failed to list executions",
			"job_type", jobType, "error", err)
		h.httpError(w, "Failed to list executions", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, listResponse(executions))
}

// ListFailed handles GET /ops/failed?limit=...
// Returns the most recent failed executions for operator review.
func (h *Handlers) ListFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.httpError(w, "Invalid limit parameter", http.StatusBadRequest)
		return
	}

	executions, err := h.store.ListFailedExecutions(ctx, limit)
	if err != nil {
		logger.FromContext(ctx, h.logger).Error("failed to list failed executions",
			"error", err)
		h.httpError(w, "Failed to list executions", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, listResponse(executions))
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func executionResponse(e *store.JobExecution) api.ExecutionResponse {
	return api.ExecutionResponse{
		JobID:          e.JobID.String(),
		JobType:        e.JobType,
		Status:         string(e.Status),
		RetryCount:     e.RetryCount,
		Result:         e.Result,
		Error:          e.Error,
		UserID:         e.UserID,
		OrganizationID: e.OrganizationID,
		StartedAt:      e.StartedAt,
		CompletedAt:    e.CompletedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func listResponse(executions []*store.JobExecution) api.ListExecutionsResponse {
	resp := api.ListExecutionsResponse{
		Executions: make([]api.ExecutionResponse, 0, len(executions)),
	}
	for _, e := range executions {
		resp.Executions = append(resp.Executions, executionResponse(e))
	}
	return resp
}
