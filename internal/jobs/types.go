// Package jobs implements the dispatch side and the receiving side of the
// asynchronous job subsystem: the job type registry, the payload schemas,
// the dispatcher that publishes envelopes to the push-delivery provider, and
// the worker wrapper that turns inbound deliveries into tracked executions.
package jobs

import (
	"encoding/json"
	"time"
)

// JobType identifies a kind of background work. It selects the payload
// schema and the registry entry for a job.
type JobType string

const (
	// TypeSendEmail delivers a transactional email.
	TypeSendEmail JobType = "send-email"

	// TypeProcessWebhook processes an inbound event from an external
	// provider (e.g. the billing service).
	TypeProcessWebhook JobType = "process-webhook"

	// TypeGenerateReport builds a periodic usage report.
	TypeGenerateReport JobType = "generate-report"
)

// JobConfig is the delivery configuration for one job type.
// Exactly one config exists per type; see Registry.
type JobConfig struct {
	// Type is the job type this config belongs to.
	Type JobType

	// Endpoint is the path of the worker endpoint the provider pushes to,
	// relative to the worker base URL (e.g. "/jobs/send-email").
	Endpoint string

	// Retries is the default number of provider-side redelivery attempts.
	Retries int

	// Timeout bounds a single handler invocation for this type.
	Timeout time.Duration

	// Description is a short human-readable summary, surfaced by the CLI.
	Description string
}

// Metadata travels with every envelope. CreatedAt is stamped by the
// dispatcher, never by the caller, so the audit trail stays trustworthy.
type Metadata struct {
	UserID         string    `json:"user_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	// IdempotencyKey distinguishes "the same event redelivered" from "a new
	// event". It must be derived from a domain identifier, never from a
	// wall-clock timestamp, so that it is stable across retries.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Envelope is the outer structure wrapping every dispatched unit of work.
// JobID is empty only in schedule registrations: each firing of a schedule
// is assigned its own job ID by the worker (see NewWorkerHandler).
type Envelope struct {
	JobID    string          `json:"job_id"`
	Type     JobType         `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Metadata Metadata        `json:"metadata"`
}

// Payload is implemented by every job-specific payload struct. Binding the
// job type to the payload type keeps the envelope's type tag and payload
// shape from disagreeing by construction.
type Payload interface {
	// JobType returns the type this payload belongs to.
	JobType() JobType

	// Validate checks required fields and formats. It must reject anything
	// that would change semantics if silently coerced.
	Validate() error
}
