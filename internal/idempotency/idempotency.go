// Package idempotency guards side effects against at-least-once delivery.
//
// The delivery provider may hand the same job to a worker more than once;
// the execution record tracks that, but it does not stop a handler from
// repeating its side effect. Handlers whose work must happen at most once
// (sending an email, applying a billing event) gate the side effect through
// a Guard keyed on a domain identifier.
package idempotency

import (
	"context"
	"time"
)

// Guard marks idempotency keys. Keys must be derived from stable domain
// identifiers (an event ID, a recipient plus template), never from
// wall-clock values, so redeliveries of the same work map to the same key.
type Guard interface {
	// MarkOnce records key if it is not already marked, returning true on
	// the first call and false for any later call within ttl.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release removes a mark this process set, so a failed attempt does
	// not permanently swallow the work on redelivery.
	Release(ctx context.Context, key string) error
}
