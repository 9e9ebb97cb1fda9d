package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"jobrelay/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func executionColumnNames() []string {
	return []string{
		"id", "job_id", "job_type", "status", "payload", "result", "error", "retry_count",
		"user_id", "organization_id", "started_at", "completed_at", "created_at", "updated_at",
	}
}

func TestCreateExecution_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	jobID := uuid.New()
	userID := "user-1"

	mock.ExpectQuery(`INSERT INTO job_executions`).
		WithArgs(jobID, "send-email", "pending", []byte(`{"template":"welcome"}`), &userID, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), time.Now(), time.Now()))

	execution := &store.JobExecution{
		JobID:   jobID,
		JobType: "send-email",
		Payload: json.RawMessage(`{"template":"welcome"}`),
		UserID:  &userID,
	}

	if err := store_.CreateExecution(ctx, execution); err != nil {
		t.Fatalf("CreateExecution failed: %v", err)
	}

	if execution.ID != 7 {
		t.Errorf("got ID %d, want 7", execution.ID)
	}
	if execution.Status != store.StatusPending {
		t.Errorf("got Status %v, want %v", execution.Status, store.StatusPending)
	}
	if execution.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateExecution_DuplicateJobID(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	jobID := uuid.New()

	mock.ExpectQuery(`INSERT INTO job_executions`).
		WillReturnError(&pq.Error{Code: "23505"})

	execution := &store.JobExecution{
		JobID:   jobID,
		JobType: "send-email",
		Payload: json.RawMessage(`{}`),
	}

	err := store_.CreateExecution(ctx, execution)
	if !errors.Is(err, store.ErrDuplicateJobID) {
		t.Errorf("expected ErrDuplicateJobID, got %v", err)
	}
}

func TestCreateExecution_DatabaseError(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO job_executions`).
		WillReturnError(sql.ErrConnDone)

	execution := &store.JobExecution{
		JobID:   uuid.New(),
		JobType: "send-email",
		Payload: json.RawMessage(`{}`),
	}

	if err := store_.CreateExecution(ctx, execution); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestTransitionExecution_ProcessingIncrementsRetryCount(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	jobID := uuid.New()
	startedAt := time.Now()

	// The increment must happen inside the UPDATE itself, never
	// read-modify-write, so concurrent re-deliveries cannot lose updates.
	mock.ExpectQuery(`UPDATE job_executions\s+SET status = \$2,\s+retry_count = retry_count \+`).
		WithArgs(jobID, "processing", sqlmock.AnyArg(), "").
		WillReturnRows(sqlmock.NewRows(executionColumnNames()).AddRow(
			int64(7), jobID, "send-email", "processing", []byte(`{}`), nil, nil, 1,
			nil, nil, startedAt, nil, time.Now(), time.Now(),
		))

	execution, err := store_.TransitionExecution(ctx, jobID, store.StatusProcessing, store.TransitionOpts{})
	if err != nil {
		t.Fatalf("TransitionExecution failed: %v", err)
	}

	if execution.Status != store.StatusProcessing {
		t.Errorf("got Status %v, want %v", execution.Status, store.StatusProcessing)
	}
	if execution.RetryCount != 1 {
		t.Errorf("got RetryCount %d, want 1", execution.RetryCount)
	}
	if execution.StartedAt == nil {
		t.Error("expected StartedAt to be set on processing transition")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTransitionExecution_CompletedStoresResult(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	jobID := uuid.New()
	result := json.RawMessage(`{"message_id":"msg-1"}`)
	completedAt := time.Now()

	mock.ExpectQuery(`UPDATE job_executions`).
		WithArgs(jobID, "completed", []byte(result), "").
		WillReturnRows(sqlmock.NewRows(executionColumnNames()).AddRow(
			int64(7), jobID, "send-email", "completed", []byte(`{}`), []byte(result), nil, 1,
			nil, nil, time.Now(), completedAt, time.Now(), time.Now(),
		))

	execution, err := store_.TransitionExecution(ctx, jobID, store.StatusCompleted, store.TransitionOpts{Result: result})
	if err != nil {
		t.Fatalf("TransitionExecution failed: %v", err)
	}

	if execution.Status != store.StatusCompleted {
		t.Errorf("got Status %v, want %v", execution.Status, store.StatusCompleted)
	}
	if string(execution.Result) != string(result) {
		t.Errorf("got Result %s, want %s", execution.Result, result)
	}
	if execution.CompletedAt == nil {
		t.Error("expected CompletedAt to be set on terminal transition")
	}
}

func TestTransitionExecution_FailedStoresError(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	jobID := uuid.New()
	errMsg := "smtp unavailable"

	mock.ExpectQuery(`UPDATE job_executions`).
		WithArgs(jobID, "failed", sqlmock.AnyArg(), errMsg).
		WillReturnRows(sqlmock.NewRows(executionColumnNames()).AddRow(
			int64(7), jobID, "send-email", "failed", []byte(`{}`), nil, &errMsg, 2,
			nil, nil, time.Now(), time.Now(), time.Now(), time.Now(),
		))

	execution, err := store_.TransitionExecution(ctx, jobID, store.StatusFailed, store.TransitionOpts{Error: errMsg})
	if err != nil {
		t.Fatalf("TransitionExecution failed: %v", err)
	}

	if execution.Error == nil || *execution.Error != errMsg {
		t.Errorf("got Error %v, want %q", execution.Error, errMsg)
	}
}

func TestTransitionExecution_PendingIsNotAValidTarget(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	_, err := store_.TransitionExecution(ctx, uuid.New(), store.StatusPending, store.TransitionOpts{})
	if err == nil {
		t.Fatal("expected error for pending transition target")
	}

	// No SQL must run for an invalid target.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestTransitionExecution_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	jobID := uuid.New()

	mock.ExpectQuery(`UPDATE job_executions`).
		WillReturnError(sql.ErrNoRows)

	_, err := store_.TransitionExecution(ctx, jobID, store.StatusProcessing, store.TransitionOpts{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetExecutionByJobID_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	jobID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM job_executions WHERE job_id = \$1`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows(executionColumnNames()).AddRow(
			int64(3), jobID, "process-webhook", "completed", []byte(`{"source":"stripe"}`), []byte(`{"ok":true}`), nil, 1,
			nil, nil, time.Now(), time.Now(), time.Now(), time.Now(),
		))

	execution, err := store_.GetExecutionByJobID(ctx, jobID)
	if err != nil {
		t.Fatalf("GetExecutionByJobID failed: %v", err)
	}

	if execution.JobID != jobID {
		t.Errorf("got JobID %v, want %v", execution.JobID, jobID)
	}
	if execution.JobType != "process-webhook" {
		t.Errorf("got JobType %q, want %q", execution.JobType, "process-webhook")
	}
}

func TestGetExecutionByJobID_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM job_executions WHERE job_id = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := store_.GetExecutionByJobID(ctx, uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListExecutionsByType(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM job_executions\s+WHERE job_type = \$1\s+ORDER BY created_at DESC\s+LIMIT \$2`).
		WithArgs("send-email", 10).
		WillReturnRows(sqlmock.NewRows(executionColumnNames()).
			AddRow(int64(2), uuid.New(), "send-email", "completed", []byte(`{}`), nil, nil, 1,
				nil, nil, time.Now(), time.Now(), time.Now(), time.Now()).
			AddRow(int64(1), uuid.New(), "send-email", "pending", []byte(`{}`), nil, nil, 0,
				nil, nil, nil, nil, time.Now(), time.Now()))

	executions, err := store_.ListExecutionsByType(ctx, "send-email", 10)
	if err != nil {
		t.Fatalf("ListExecutionsByType failed: %v", err)
	}

	if len(executions) != 2 {
		t.Fatalf("got %d executions, want 2", len(executions))
	}
	if executions[0].ID != 2 {
		t.Errorf("got first ID %d, want 2 (newest first)", executions[0].ID)
	}
}

func TestListFailedExecutions(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	errMsg := "generator crashed"

	mock.ExpectQuery(`SELECT .+ FROM job_executions\s+WHERE status = \$1`).
		WithArgs("failed", 20).
		WillReturnRows(sqlmock.NewRows(executionColumnNames()).
			AddRow(int64(4), uuid.New(), "generate-report", "failed", []byte(`{}`), nil, &errMsg, 3,
				nil, nil, time.Now(), time.Now(), time.Now(), time.Now()))

	executions, err := store_.ListFailedExecutions(ctx, 20)
	if err != nil {
		t.Fatalf("ListFailedExecutions failed: %v", err)
	}

	if len(executions) != 1 {
		t.Fatalf("got %d executions, want 1", len(executions))
	}
	if executions[0].Status != store.StatusFailed {
		t.Errorf("got status %v, want failed", executions[0].Status)
	}
	if executions[0].Error == nil || *executions[0].Error != errMsg {
		t.Errorf("got error %v, want %q", executions[0].Error, errMsg)
	}
}

func TestCountByStatus(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT count\(\*\) FROM job_executions WHERE status = \$1`).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

	count, err := store_.CountByStatus(ctx, store.StatusPending)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if count != 12 {
		t.Errorf("got count %d, want 12", count)
	}
}

func TestCountByStatus_QueryError(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT count\(\*\) FROM job_executions`).
		WillReturnError(errors.New("connection reset"))

	if _, err := store_.CountByStatus(ctx, store.StatusPending); err == nil {
		t.Error("expected error from failed count query")
	}
}
