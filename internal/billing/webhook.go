// Package billing implements the process-webhook job: inbound billing
// provider events are enqueued for asynchronous processing and applied
// exactly once per event.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"jobrelay/internal/idempotency"
	"jobrelay/internal/jobs"

	"github.com/google/uuid"
)

// guardTTL bounds how long an applied event is remembered. Billing
// providers redeliver the same event for at most a few days.
const guardTTL = 72 * time.Hour

// Event is a billing provider event handed to the Processor.
type Event struct {
	Source string
	ID     string
	Type   string
	Data   json.RawMessage
}

// Processor applies a billing event to account state. Implementations
// should return an error wrapped with jobs.Permanent for events that can
// never apply, such as references to a deleted account.
type Processor interface {
	ProcessEvent(ctx context.Context, event Event) error
}

// Enqueuer is the dispatch capability the service needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload jobs.Payload, meta jobs.Metadata, opts ...jobs.EnqueueOption) (uuid.UUID, error)
}

// WebhookResult is stored on the execution record after processing.
type WebhookResult struct {
	Applied      bool `json:"applied"`
	Deduplicated bool `json:"deduplicated,omitempty"`
}

// Service wires the webhook job end to end.
type Service struct {
	enqueuer  Enqueuer
	processor Processor
	guard     idempotency.Guard
	logger    *slog.Logger
}

// NewService creates the billing webhook service.
func NewService(enqueuer Enqueuer, processor Processor, guard idempotency.Guard, logger *slog.Logger) *Service {
	return &Service{
		enqueuer:  enqueuer,
		processor: processor,
		guard:     guard,
		logger:    logger,
	}
}

// EventKey derives the idempotency key for an event. It uses only the
// provider's identifiers, never the receive time, so every enqueue and
// every redelivery of the same event produces the same key.
func EventKey(source, eventID string) string {
	return source + ":" + eventID
}

// EnqueueWebhook dispatches a process-webhook job for an inbound event.
// The envelope's idempotency key is derived from the event identity.
func (s *Service) EnqueueWebhook(ctx context.Context, p jobs.WebhookPayload, meta jobs.Metadata) (uuid.UUID, error) {
	meta.IdempotencyKey = EventKey(p.Source, p.EventID)
	return s.enqueuer.Enqueue(ctx, p, meta)
}

// Handler returns the worker handler for process-webhook deliveries.
//
// The guard key is the event identity, not the job ID: if the billing
// provider sends the same event twice, two separate jobs exist, but the
// event must still apply only once.
func (s *Service) Handler() jobs.HandlerFunc[jobs.WebhookPayload] {
	return func(ctx context.Context, p jobs.WebhookPayload, ec jobs.ExecContext) (any, error) {
		key := "billing:" + EventKey(p.Source, p.EventID)

		fresh, err := s.guard.MarkOnce(ctx, key, guardTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency guard: %w", err)
		}
		if !fresh {
			ec.Logger.Info("duplicate event, already applied",
				"source", p.Source, "event_id", p.EventID)
			return WebhookResult{Deduplicated: true}, nil
		}

		err = s.processor.ProcessEvent(ctx, Event{
			Source: p.Source,
			ID:     p.EventID,
			Type:   p.EventType,
			Data:   p.Data,
		})
		if err != nil {
			if rerr := s.guard.Release(ctx, key); rerr != nil {
				ec.Logger.Warn("failed to release idempotency key", "error", rerr)
			}
			return nil, fmt.Errorf("failed to process %s event %s: %w", p.Source, p.EventID, err)
		}

		return WebhookResult{Applied: true}, nil
	}
}
