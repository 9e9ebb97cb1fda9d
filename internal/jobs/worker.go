package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"jobrelay/internal/logger"
	"jobrelay/internal/signature"
	"jobrelay/internal/store"
	"jobrelay/pkg/api"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// headerMessageID is stamped by the provider on every delivery. Schedule
// firings carry no job ID in the envelope, so the minted job ID is derived
// from this header: redeliveries of the same firing then map to the same
// execution record.
const headerMessageID = "X-Relay-Message-Id"

// WorkerDeps bundles the dependencies shared by every worker endpoint.
type WorkerDeps struct {
	Store    store.ExecutionStore
	Verifier *signature.Verifier
	Registry *Registry
	Logger   *slog.Logger
}

// ExecContext carries per-delivery context into a domain handler.
type ExecContext struct {
	JobID      uuid.UUID
	Type       JobType
	Metadata   Metadata
	RetryCount int

	// Logger is pre-scoped with job_id and job_type.
	Logger *slog.Logger
}

// HandlerFunc is the domain logic for one job type. The returned value is
// stored as the execution result on success. An error wrapped with
// Permanent answers the provider with a non-retryable status; any other
// error answers 500 and relies on provider redelivery.
type HandlerFunc[T Payload] func(ctx context.Context, payload T, ec ExecContext) (any, error)

// NewWorkerHandler builds the HTTP handler behind one job type's endpoint.
// The job type is taken from T, and must be registered: the registry entry
// supplies the handler timeout.
//
// Every delivery walks the same gate order: signature first (nothing is
// parsed or persisted for an unauthenticated request), then envelope and
// payload validation, then the processing transition, then the handler.
func NewWorkerHandler[T Payload](deps WorkerDeps, handle HandlerFunc[T]) (http.Handler, error) {
	if deps.Store == nil || deps.Verifier == nil || deps.Registry == nil || deps.Logger == nil {
		return nil, errors.New("jobs: worker handler requires store, verifier, registry and logger")
	}
	if handle == nil {
		return nil, errors.New("jobs: worker handler requires a handle func")
	}

	var zero T
	cfg, err := deps.Registry.Config(zero.JobType())
	if err != nil {
		return nil, err
	}

	return &workerHandler[T]{
		deps:    deps,
		cfg:     cfg,
		handle:  handle,
		metrics: newJobMetrics(),
	}, nil
}

type workerHandler[T Payload] struct {
	deps    WorkerDeps
	cfg     JobConfig
	handle  HandlerFunc[T]
	metrics *jobMetrics
}

type handleOutcome struct {
	result any
	err    error
}

func (h *workerHandler[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.deps.Logger)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	// Signature gate. The signature covers the exact raw body bytes; an
	// unauthenticated request never reaches the parser or the store.
	if err := h.deps.Verifier.Verify(body, r.Header.Get(signature.Header)); err != nil {
		log.Warn("rejected delivery with invalid signature",
			"job_type", h.cfg.Type, "error", err)
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	env, err := DecodeEnvelope(body)
	if err != nil {
		log.Warn("rejected malformed envelope", "job_type", h.cfg.Type, "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if env.Type != h.cfg.Type {
		log.Warn("rejected mis-routed delivery",
			"job_type", h.cfg.Type, "envelope_type", env.Type)
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("envelope type %q does not match endpoint type %q", env.Type, h.cfg.Type))
		return
	}

	var payload T
	if err := strictUnmarshal(env.Payload, &payload); err != nil {
		log.Warn("rejected payload not matching schema", "job_type", h.cfg.Type, "error", err)
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("payload does not match %q schema: %v", h.cfg.Type, err))
		return
	}
	if err := payload.Validate(); err != nil {
		log.Warn("rejected invalid payload", "job_type", h.cfg.Type, "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, minted := h.resolveJobID(env.JobID, r.Header.Get(headerMessageID))
	log = log.With("job_id", jobID, "job_type", h.cfg.Type)

	retryCount := h.markProcessing(ctx, log, jobID, minted, env)

	tracer := otel.Tracer("worker")
	ctx, span := tracer.Start(ctx, "process_job",
		trace.WithAttributes(
			attribute.String("job.id", jobID.String()),
			attribute.String("job.type", string(h.cfg.Type)),
			attribute.Int("job.retry_count", retryCount),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	ec := ExecContext{
		JobID:      jobID,
		Type:       h.cfg.Type,
		Metadata:   env.Metadata,
		RetryCount: retryCount,
		Logger:     log,
	}

	hctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	// The handler runs in its own goroutine so a handler that ignores its
	// context still can't hold the delivery past the registered timeout.
	start := time.Now()
	done := make(chan handleOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- handleOutcome{err: fmt.Errorf("handler panicked: %v", rec)}
			}
		}()
		result, err := h.handle(hctx, payload, ec)
		done <- handleOutcome{result: result, err: err}
	}()

	var outcome handleOutcome
	select {
	case outcome = <-done:
	case <-hctx.Done():
		outcome = handleOutcome{err: fmt.Errorf("handler timed out after %v", h.cfg.Timeout)}
	}
	elapsed := time.Since(start)

	h.metrics.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("job.type", string(h.cfg.Type)),
	))

	if outcome.err != nil {
		span.RecordError(outcome.err)
		h.finish(ctx, log, jobID, store.StatusFailed, store.TransitionOpts{
			Error: outcome.err.Error(),
		})
		h.metrics.processed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job.type", string(h.cfg.Type)),
			attribute.String("status", string(store.StatusFailed)),
		))

		// Permanent failures answer with a status the provider will not
		// retry; everything else is a 5xx so the provider redelivers.
		status := http.StatusInternalServerError
		if IsPermanent(outcome.err) || IsValidation(outcome.err) {
			status = http.StatusUnprocessableEntity
		}
		log.Error("job failed",
			"retry_count", retryCount, "duration", elapsed, "error", outcome.err)
		respondError(w, status, outcome.err.Error())
		return
	}

	var result json.RawMessage
	if outcome.result != nil {
		result, err = json.Marshal(outcome.result)
		if err != nil {
			log.Warn("failed to encode handler result, storing without it", "error", err)
			result = nil
		}
	}

	h.finish(ctx, log, jobID, store.StatusCompleted, store.TransitionOpts{Result: result})
	h.metrics.processed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job.type", string(h.cfg.Type)),
		attribute.String("status", string(store.StatusCompleted)),
	))
	log.Info("job completed", "retry_count", retryCount, "duration", elapsed)

	respondJSON(w, http.StatusOK, api.WorkerResponse{
		JobID:  jobID.String(),
		Status: string(store.StatusCompleted),
	})
}

// resolveJobID returns the envelope's job ID, or mints one for schedule
// firings. A delivery with a provider message ID gets a deterministic ID
// derived from it, so a redelivered firing lands on its existing record.
func (h *workerHandler[T]) resolveJobID(envelopeID, messageID string) (uuid.UUID, bool) {
	if envelopeID != "" {
		// Parseability was already checked by DecodeEnvelope.
		id, _ := uuid.Parse(envelopeID)
		return id, false
	}
	if messageID != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(messageID)), true
	}
	return uuid.New(), true
}

// markProcessing transitions the execution record to processing and returns
// the updated retry count.
//
// A missing record is created on the spot: for minted IDs (schedule
// firings) that is the normal path, for dispatched jobs it is an anomaly —
// the record was lost or this is an unexpected replay — but the work still
// runs either way, because dropping a delivery over lost bookkeeping would
// turn a tracking failure into a business failure. A store outage likewise
// doesn't stop the delivery; the unrecorded execution is surfaced through
// the log and the anomaly counter.
func (h *workerHandler[T]) markProcessing(ctx context.Context, log *slog.Logger, jobID uuid.UUID, minted bool, env *Envelope) int {
	exec, err := h.deps.Store.TransitionExecution(ctx, jobID, store.StatusProcessing, store.TransitionOpts{})
	if errors.Is(err, store.ErrNotFound) {
		if minted {
			log.Info("creating execution record for schedule firing")
		} else {
			log.Warn("no execution record for delivered job, creating one")
			h.metrics.anomalies.Add(ctx, 1, metric.WithAttributes(
				attribute.String("reason", "missing_record"),
			))
		}

		rec := &store.JobExecution{
			JobID:          jobID,
			JobType:        string(h.cfg.Type),
			Status:         store.StatusPending,
			Payload:        env.Payload,
			UserID:         nullable(env.Metadata.UserID),
			OrganizationID: nullable(env.Metadata.OrganizationID),
		}
		// A concurrent redelivery may have created the record first; the
		// duplicate is fine, the retransition below picks it up.
		if cerr := h.deps.Store.CreateExecution(ctx, rec); cerr != nil && !errors.Is(cerr, store.ErrDuplicateJobID) {
			log.Error("failed to create execution record", "error", cerr)
		}
		exec, err = h.deps.Store.TransitionExecution(ctx, jobID, store.StatusProcessing, store.TransitionOpts{})
	}
	if err != nil {
		log.Error("failed to transition execution to processing, proceeding untracked", "error", err)
		h.metrics.anomalies.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", "transition_failed"),
		))
		return 0
	}
	return exec.RetryCount
}

// finish records the terminal transition. The handler already ran; an
// unrecordable outcome must not change the HTTP answer, so failures here
// are logged and counted, not propagated.
func (h *workerHandler[T]) finish(ctx context.Context, log *slog.Logger, jobID uuid.UUID, status store.Status, opts store.TransitionOpts) {
	if _, err := h.deps.Store.TransitionExecution(ctx, jobID, status, opts); err != nil {
		log.Error("failed to record execution outcome",
			"target_status", status, "error", err)
		h.metrics.anomalies.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", "transition_failed"),
		))
	}
}

// A helper function to write standard JSON responses.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
