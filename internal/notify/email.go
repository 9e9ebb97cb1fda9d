// Package notify implements the transactional email job: enqueueing on the
// dispatch side and the send-email worker handler.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobrelay/internal/idempotency"
	"jobrelay/internal/jobs"

	"github.com/google/uuid"
)

// guardTTL bounds how long a sent email's delivery is remembered. Provider
// redeliveries arrive within minutes; a day leaves a wide margin.
const guardTTL = 24 * time.Hour

// Message is a rendered-email request handed to the Mailer.
type Message struct {
	Template string
	To       string
	Data     map[string]any
}

// Mailer delivers emails. Implementations wrap the actual email provider
// and should return an error wrapped with jobs.Permanent for rejections
// that retrying cannot fix, such as a suppressed recipient.
type Mailer interface {
	// Send delivers msg and returns the provider's message id.
	Send(ctx context.Context, msg Message) (string, error)
}

// Enqueuer is the dispatch capability the service needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload jobs.Payload, meta jobs.Metadata, opts ...jobs.EnqueueOption) (uuid.UUID, error)
}

// EmailResult is stored on the execution record after a send.
type EmailResult struct {
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Deduplicated      bool   `json:"deduplicated,omitempty"`
}

// Service wires the email job end to end.
type Service struct {
	enqueuer Enqueuer
	mailer   Mailer
	guard    idempotency.Guard
	logger   *slog.Logger
}

// NewService creates the email service. The enqueuer may be nil on worker
// replicas that only handle deliveries.
func NewService(enqueuer Enqueuer, mailer Mailer, guard idempotency.Guard, logger *slog.Logger) *Service {
	return &Service{
		enqueuer: enqueuer,
		mailer:   mailer,
		guard:    guard,
		logger:   logger,
	}
}

// EnqueueEmail dispatches a send-email job.
func (s *Service) EnqueueEmail(ctx context.Context, template, to string, data map[string]any, meta jobs.Metadata) (uuid.UUID, error) {
	return s.enqueuer.Enqueue(ctx, jobs.EmailPayload{
		Template: template,
		To:       to,
		Data:     data,
	}, meta)
}

// Handler returns the worker handler for send-email deliveries.
//
// The guard key is the job ID: two distinct jobs may legitimately carry an
// identical email, but one job redelivered after a lost acknowledgment must
// not send twice.
func (s *Service) Handler() jobs.HandlerFunc[jobs.EmailPayload] {
	return func(ctx context.Context, p jobs.EmailPayload, ec jobs.ExecContext) (any, error) {
		key := "email:" + ec.JobID.String()

		fresh, err := s.guard.MarkOnce(ctx, key, guardTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency guard: %w", err)
		}
		if !fresh {
			ec.Logger.Info("duplicate delivery, email already sent")
			return EmailResult{Deduplicated: true}, nil
		}

		msgID, err := s.mailer.Send(ctx, Message{
			Template: p.Template,
			To:       p.To,
			Data:     p.Data,
		})
		if err != nil {
			// Release the mark so a redelivery can retry the send.
			if rerr := s.guard.Release(ctx, key); rerr != nil {
				ec.Logger.Warn("failed to release idempotency key", "error", rerr)
			}
			return nil, fmt.Errorf("failed to send %q email: %w", p.Template, err)
		}

		return EmailResult{ProviderMessageID: msgID}, nil
	}
}
