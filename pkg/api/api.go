// Package api contains shared JSON request/response structs.
// This package is shared between the CLI, the ops API, and the worker
// endpoints.
package api

import (
	"encoding/json"
	"time"
)

// EnqueueRequest is the request body for enqueueing a job through the ops
// API. Payload is passed through to the job's payload schema untouched.
type EnqueueRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`

	UserID         string `json:"user_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Retries overrides the registered retry budget when set.
	Retries *int `json:"retries,omitempty"`

	// DelaySeconds postpones the first delivery attempt.
	DelaySeconds int `json:"delay_seconds,omitempty"`
}

// EnqueueResponse is the response body after enqueueing a job.
type EnqueueResponse struct {
	JobID string `json:"job_id"`
}

// ScheduleRequest is the request body for registering a recurring job.
type ScheduleRequest struct {
	Type    string          `json:"type"`
	Cron    string          `json:"cron"`
	Payload json.RawMessage `json:"payload"`

	UserID         string `json:"user_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// ScheduleResponse is the response body after registering a schedule.
type ScheduleResponse struct {
	ScheduleID string `json:"schedule_id"`
}

// WorkerResponse is the acknowledgment a worker endpoint returns to the
// delivery provider.
type WorkerResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ExecutionResponse represents an execution record in API responses.
type ExecutionResponse struct {
	JobID          string          `json:"job_id"`
	JobType        string          `json:"job_type"`
	Status         string          `json:"status"`
	RetryCount     int             `json:"retry_count"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *string         `json:"error,omitempty"`
	UserID         *string         `json:"user_id,omitempty"`
	OrganizationID *string         `json:"organization_id,omitempty"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ListExecutionsResponse is the response body for execution listings.
type ListExecutionsResponse struct {
	Executions []ExecutionResponse `json:"executions"`
}

// JobTypeInfo describes one registered job type.
type JobTypeInfo struct {
	Type        string `json:"type"`
	Endpoint    string `json:"endpoint"`
	Retries     int    `json:"retries"`
	TimeoutSecs int    `json:"timeout_seconds"`
	Description string `json:"description,omitempty"`
}

// ListJobTypesResponse is the response body for the job type listing.
type ListJobTypesResponse struct {
	Types []JobTypeInfo `json:"types"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
