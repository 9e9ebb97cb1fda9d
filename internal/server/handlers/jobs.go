package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"jobrelay/internal/jobs"
	"jobrelay/internal/logger"
	"jobrelay/pkg/api"
)

// EnqueueJob handles POST /ops/jobs.
// It validates the payload, persists a pending execution record, and hands
// the job to the delivery provider. 202 means accepted for delivery, not
// delivered.
func (h *Handlers) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid body", http.StatusBadRequest)
		return
	}

	payload, err := jobs.DecodePayload(jobs.JobType(req.Type), req.Payload)
	if err != nil {
		if errors.Is(err, jobs.ErrUnregisteredType) {
			h.httpError(w, fmt.Sprintf("Unknown job type %q", req.Type), http.StatusBadRequest)
			return
		}
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	meta := jobs.Metadata{
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		IdempotencyKey: req.IdempotencyKey,
	}

	var opts []jobs.EnqueueOption
	if req.Retries != nil {
		opts = append(opts, jobs.WithRetries(*req.Retries))
	}
	if req.DelaySeconds > 0 {
		opts = append(opts, jobs.WithDelay(time.Duration(req.DelaySeconds)*time.Second))
	}

	jobID, err := h.dispatcher.Enqueue(ctx, payload, meta, opts...)
	if err != nil {
		if jobs.IsValidation(err) {
			h.httpError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(ctx, h.logger).Error("failed to enqueue job",
			"job_type", req.Type, "error", err)
		h.httpError(w, "Failed to enqueue job", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusAccepted, api.EnqueueResponse{JobID: jobID.String()})
}

// CreateSchedule handles POST /ops/schedules.
// It registers a recurring delivery with the provider. No execution record
// is created here; records are created per firing.
func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid body", http.StatusBadRequest)
		return
	}

	payload, err := jobs.DecodePayload(jobs.JobType(req.Type), req.Payload)
	if err != nil {
		if errors.Is(err, jobs.ErrUnregisteredType) {
			h.httpError(w, fmt.Sprintf("Unknown job type %q", req.Type), http.StatusBadRequest)
			return
		}
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	meta := jobs.Metadata{
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
	}

	scheduleID, err := h.dispatcher.Schedule(ctx, req.Cron, payload, meta)
	if err != nil {
		if jobs.IsValidation(err) {
			h.httpError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(ctx, h.logger).Error("failed to create schedule",
			"job_type", req.Type, "cron", req.Cron, "error", err)
		h.httpError(w, "Failed to create schedule", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, api.ScheduleResponse{ScheduleID: scheduleID})
}
