// Package provider defines the narrow contract with the external
// push-delivery service: publish a message for HTTP delivery with a retry
// policy, and register a recurring (cron) delivery. The broker itself —
// retry scheduling, backoff, dead-lettering — lives on the provider's side
// of this boundary.
package provider

import (
	"context"
	"time"
)

// PublishRequest describes one message to deliver.
type PublishRequest struct {
	// URL is the destination the provider pushes to.
	URL string

	// Body is delivered verbatim as the HTTP request body.
	Body []byte

	// Retries is the number of redelivery attempts the provider should
	// make after a retryable (5xx) response.
	Retries int

	// Delay postpones the first delivery attempt. Zero means immediate.
	Delay time.Duration

	// Callback, if set, receives the destination's response.
	Callback string

	// FailureCallback, if set, is invoked after retries are exhausted.
	FailureCallback string
}

// PublishResult is the provider's acknowledgment of a publish.
type PublishResult struct {
	MessageID string
}

// Publisher submits messages for push delivery.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

// ScheduleRequest describes a recurring delivery registration.
type ScheduleRequest struct {
	// Destination is the URL each firing is pushed to.
	Destination string

	// Cron is the firing schedule in standard 5-field cron syntax.
	Cron string

	// ScheduleID, if set, makes registration idempotent: the provider
	// updates an existing schedule with the same ID instead of creating a
	// duplicate.
	ScheduleID string

	// Body is delivered on every firing.
	Body []byte
}

// ScheduleResult carries the provider-assigned schedule identifier.
type ScheduleResult struct {
	ScheduleID string
}

// Scheduler registers recurring deliveries.
type Scheduler interface {
	CreateSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error)
}

// Client combines both capabilities of the delivery provider.
type Client interface {
	Publisher
	Scheduler
}
