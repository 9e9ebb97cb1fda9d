// Package reports implements the generate-report job, both on-demand and
// on a recurring schedule.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobrelay/internal/idempotency"
	"jobrelay/internal/jobs"

	"github.com/google/uuid"
)

// guardTTL covers provider redeliveries of one firing without suppressing
// the next scheduled run.
const guardTTL = 24 * time.Hour

// Request describes one report to build.
type Request struct {
	ReportType     string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Format         string
	OrganizationID string
}

// Summary describes a generated report and is stored as the execution
// result.
type Summary struct {
	Location     string `json:"location"`
	Rows         int    `json:"rows"`
	Bytes        int64  `json:"bytes"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
}

// Generator builds a report and stores it somewhere retrievable.
type Generator interface {
	Generate(ctx context.Context, req Request) (Summary, error)
}

// Dispatcher is the dispatch capability the service needs.
type Dispatcher interface {
	Enqueue(ctx context.Context, payload jobs.Payload, meta jobs.Metadata, opts ...jobs.EnqueueOption) (uuid.UUID, error)
	Schedule(ctx context.Context, cronExpr string, payload jobs.Payload, meta jobs.Metadata) (string, error)
}

// Service wires the report job end to end.
type Service struct {
	dispatcher Dispatcher
	generator  Generator
	guard      idempotency.Guard
	logger     *slog.Logger
}

// NewService creates the report service.
func NewService(dispatcher Dispatcher, generator Generator, guard idempotency.Guard, logger *slog.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		generator:  generator,
		guard:      guard,
		logger:     logger,
	}
}

// EnqueueReport dispatches a one-off generate-report job.
func (s *Service) EnqueueReport(ctx context.Context, p jobs.ReportPayload, meta jobs.Metadata) (uuid.UUID, error) {
	return s.dispatcher.Enqueue(ctx, p, meta)
}

// ScheduleReport registers a recurring generate-report job with the given
// cron cadence. The payload travels verbatim in every firing.
func (s *Service) ScheduleReport(ctx context.Context, cronExpr string, p jobs.ReportPayload, meta jobs.Metadata) (string, error) {
	return s.dispatcher.Schedule(ctx, cronExpr, p, meta)
}

// reportKey identifies one report build. Two jobs asking for the same
// report over the same period are the same work.
func reportKey(p jobs.ReportPayload, orgID string) string {
	return fmt.Sprintf("report:%s:%s:%s:%s:%s",
		p.ReportType, orgID,
		p.PeriodStart.UTC().Format(time.RFC3339),
		p.PeriodEnd.UTC().Format(time.RFC3339),
		p.Format)
}

// Handler returns the worker handler for generate-report deliveries.
func (s *Service) Handler() jobs.HandlerFunc[jobs.ReportPayload] {
	return func(ctx context.Context, p jobs.ReportPayload, ec jobs.ExecContext) (any, error) {
		key := reportKey(p, ec.Metadata.OrganizationID)

		fresh, err := s.guard.MarkOnce(ctx, key, guardTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency guard: %w", err)
		}
		if !fresh {
			ec.Logger.Info("duplicate delivery, report already generated",
				"report_type", p.ReportType)
			return Summary{Deduplicated: true}, nil
		}

		summary, err := s.generator.Generate(ctx, Request{
			ReportType:     p.ReportType,
			PeriodStart:    p.PeriodStart,
			PeriodEnd:      p.PeriodEnd,
			Format:         p.Format,
			OrganizationID: ec.Metadata.OrganizationID,
		})
		if err != nil {
			if rerr := s.guard.Release(ctx, key); rerr != nil {
				ec.Logger.Warn("failed to release idempotency key", "error", rerr)
			}
			return nil, fmt.Errorf("failed to generate %q report: %w", p.ReportType, err)
		}

		ec.Logger.Info("report generated",
			"report_type", p.ReportType, "location", summary.Location, "rows", summary.Rows)
		return summary, nil
	}
}
