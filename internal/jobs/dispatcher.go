package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jobrelay/internal/provider"
	"jobrelay/internal/store"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scheduleParser accepts the standard five-field cron syntax, the only
// syntax the provider supports.
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Dispatcher is the enqueue side of the subsystem. It validates payloads,
// persists a pending execution record, and hands the enveloped job to the
// push provider. The record is written before the publish: a job the
// provider knows about but the store doesn't would be untrackable.
type Dispatcher struct {
	registry      *Registry
	store         store.ExecutionStore
	client        provider.Client
	workerBaseURL string
	logger        *slog.Logger
	metrics       *jobMetrics
}

// NewDispatcher creates a dispatcher. workerBaseURL is the externally
// reachable base URL of this service's worker endpoints; registered
// endpoint paths are appended to it.
func NewDispatcher(registry *Registry, st store.ExecutionStore, client provider.Client, workerBaseURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:      registry,
		store:         st,
		client:        client,
		workerBaseURL: strings.TrimRight(workerBaseURL, "/"),
		logger:        logger,
		metrics:       newJobMetrics(),
	}
}

// Enqueue dispatches one job. It returns the assigned job ID once the
// execution record is persisted and the provider has acknowledged the
// publish.
//
// Failure ordering matters here: a payload that fails validation produces
// no record and no publish; a store failure aborts before the publish; a
// publish failure leaves the pending record in place (visible to operators)
// and surfaces the error to the caller, who decides whether to re-enqueue.
func (d *Dispatcher) Enqueue(ctx context.Context, payload Payload, meta Metadata, opts ...EnqueueOption) (uuid.UUID, error) {
	jobType := payload.JobType()

	tracer := otel.Tracer("dispatcher")
	ctx, span := tracer.Start(ctx, "enqueue_job",
		trace.WithAttributes(
			attribute.String("job.type", string(jobType)),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	defer span.End()

	if err := payload.Validate(); err != nil {
		return uuid.Nil, err
	}

	cfg, err := d.registry.Config(jobType)
	if err != nil {
		return uuid.Nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	jobID := uuid.New()
	span.SetAttributes(attribute.String("job.id", jobID.String()))

	// The dispatcher stamps CreatedAt; a caller-supplied value is ignored
	// so the audit trail can't be backdated.
	meta.CreatedAt = time.Now().UTC()

	exec := &store.JobExecution{
		JobID:          jobID,
		JobType:        string(jobType),
		Status:         store.StatusPending,
		Payload:        raw,
		UserID:         nullable(meta.UserID),
		OrganizationID: nullable(meta.OrganizationID),
	}
	if err := d.store.CreateExecution(ctx, exec); err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("failed to create execution record: %w", err)
	}
	d.metrics.enqueued.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job.type", string(jobType)),
	))

	body, err := json.Marshal(Envelope{
		JobID:    jobID.String(),
		Type:     jobType,
		Payload:  raw,
		Metadata: meta,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	eo := applyEnqueueOptions(opts)
	retries := cfg.Retries
	if eo.retriesSet {
		retries = eo.retries
	}

	res, err := d.client.Publish(ctx, provider.PublishRequest{
		URL:             d.workerBaseURL + cfg.Endpoint,
		Body:            body,
		Retries:         retries,
		Delay:           eo.delay,
		Callback:        eo.callback,
		FailureCallback: eo.failureCallback,
	})
	if err != nil {
		span.RecordError(err)
		d.logger.Error("publish failed, execution record left pending",
			"job_id", jobID, "job_type", jobType, "error", err)
		return uuid.Nil, fmt.Errorf("failed to publish job %s: %w", jobID, err)
	}

	d.metrics.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job.type", string(jobType)),
	))
	d.logger.Info("job enqueued",
		"job_id", jobID, "job_type", jobType, "message_id", res.MessageID)

	return jobID, nil
}

// Schedule registers a recurring job with the provider. No execution record
// is created here: each firing arrives at the worker without a job ID and
// is tracked as its own execution from that point on.
//
// The schedule ID is derived from the job type and cron expression, so
// re-registering the same schedule (e.g. on every deploy) updates it in
// place instead of stacking duplicates.
func (d *Dispatcher) Schedule(ctx context.Context, cronExpr string, payload Payload, meta Metadata) (string, error) {
	jobType := payload.JobType()

	tracer := otel.Tracer("dispatcher")
	ctx, span := tracer.Start(ctx, "schedule_job",
		trace.WithAttributes(
			attribute.String("job.type", string(jobType)),
			attribute.String("job.cron", cronExpr),
		),
	)
	defer span.End()

	if err := payload.Validate(); err != nil {
		return "", err
	}
	if _, err := scheduleParser.Parse(cronExpr); err != nil {
		return "", &ValidationError{Field: "cron", Reason: err.Error()}
	}

	cfg, err := d.registry.Config(jobType)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	meta.CreatedAt = time.Now().UTC()

	body, err := json.Marshal(Envelope{
		Type:     jobType,
		Payload:  raw,
		Metadata: meta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}

	res, err := d.client.CreateSchedule(ctx, provider.ScheduleRequest{
		Destination: d.workerBaseURL + cfg.Endpoint,
		Cron:        cronExpr,
		ScheduleID:  ScheduleID(jobType, cronExpr),
		Body:        body,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to create schedule: %w", err)
	}

	d.logger.Info("schedule registered",
		"schedule_id", res.ScheduleID, "job_type", jobType, "cron", cronExpr)

	return res.ScheduleID, nil
}

// ScheduleID derives the stable identifier for a (type, cron) schedule.
func ScheduleID(t JobType, cronExpr string) string {
	sum := sha256.Sum256([]byte(string(t) + "|" + cronExpr))
	return "sch-" + hex.EncodeToString(sum[:])[:16]
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
