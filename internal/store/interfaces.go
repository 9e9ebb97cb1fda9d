package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no execution exists for the given job ID.
var ErrNotFound = errors.New("store: execution not found")

// ErrDuplicateJobID is returned when creating an execution whose job ID is
// already present. Job IDs are unique and never reused; concurrent
// re-deliveries may race on create-on-receipt and must handle this.
var ErrDuplicateJobID = errors.New("store: duplicate job id")

// TransitionOpts carries the optional outcome fields of a status transition.
// A nil Result / empty Error leaves the stored value untouched.
type TransitionOpts struct {
	Result json.RawMessage
	Error  string
}

// ExecutionStore handles the persistence of job execution lifecycle records.
//
// The dispatcher creates records; the worker wrapper is the only component
// that transitions them. Records are never deleted here; retention is an
// external concern.
type ExecutionStore interface {
	// CreateExecution inserts a new execution record. The store stamps
	// ID, CreatedAt, and UpdatedAt on the passed record.
	CreateExecution(ctx context.Context, execution *JobExecution) error

	// TransitionExecution moves the record for jobID to status and returns
	// the updated record. A transition into StatusProcessing increments
	// RetryCount atomically at the storage layer, so concurrent
	// re-deliveries never lose an update. StatusPending is not a valid
	// transition target. Returns ErrNotFound if no record exists.
	TransitionExecution(ctx context.Context, jobID uuid.UUID, status Status, opts TransitionOpts) (*JobExecution, error)

	// GetExecutionByJobID returns the record for jobID, or ErrNotFound.
	GetExecutionByJobID(ctx context.Context, jobID uuid.UUID) (*JobExecution, error)

	// ListExecutionsByType returns up to limit records of the given type,
	// newest first.
	ListExecutionsByType(ctx context.Context, jobType string, limit int) ([]*JobExecution, error)

	// ListFailedExecutions returns up to limit failed records, newest
	// first. Used for operator-facing failure review.
	ListFailedExecutions(ctx context.Context, limit int) ([]*JobExecution, error)
}
