// Package store contains the database layer for jobrelay.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a job execution.
type Status string

const (
	// StatusPending is set at enqueue time, before any delivery attempt.
	StatusPending Status = "pending"

	// StatusProcessing is set when a delivery attempt reaches the worker.
	// Every transition into this state increments RetryCount, including
	// provider re-deliveries.
	StatusProcessing Status = "processing"

	// StatusCompleted is terminal; Result is populated.
	StatusCompleted Status = "completed"

	// StatusFailed is terminal for this attempt chain, though the provider
	// may still redeliver and push the record back through processing.
	StatusFailed Status = "failed"
)

// Terminal reports whether s is an end state of the lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobExecution is the persisted record tracking one job's lifecycle from
// pending to a terminal status. JobID is unique and never reused; it is the
// durable correlation key across the store, the delivery provider, and logs.
type JobExecution struct {
	ID             int64
	JobID          uuid.UUID
	JobType        string
	Status         Status
	Payload        json.RawMessage
	Result         json.RawMessage
	Error          *string
	RetryCount     int
	UserID         *string
	OrganizationID *string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
