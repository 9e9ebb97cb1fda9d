package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"jobrelay/internal/provider"
	"jobrelay/internal/store"

	"github.com/google/uuid"
)

// Mock execution store
type mockExecStore struct {
	// Hooks
	createErr     error
	transitionErr error
	getResp       *store.JobExecution
	getErr        error
	listResp      []*store.JobExecution
	listErr       error

	// notFoundUntilCreated makes transitions fail with ErrNotFound until
	// CreateExecution has been called, modelling a delivery that arrives
	// before (or without) its record.
	notFoundUntilCreated bool
	created              bool

	// Spies
	createCalls     int
	capturedCreate  *store.JobExecution
	transitionCalls []store.Status
	capturedOpts    []store.TransitionOpts
	processingCount int
}

func (m *mockExecStore) CreateExecution(ctx context.Context, execution *store.JobExecution) error {
	m.createCalls++
	m.capturedCreate = execution
	if m.createErr != nil {
		return m.createErr
	}
	m.created = true
	return nil
}

func (m *mockExecStore) TransitionExecution(ctx context.Context, jobID uuid.UUID, status store.Status, opts store.TransitionOpts) (*store.JobExecution, error) {
	m.transitionCalls = append(m.transitionCalls, status)
	m.capturedOpts = append(m.capturedOpts, opts)
	if m.notFoundUntilCreated && !m.created {
		return nil, store.ErrNotFound
	}
	if m.transitionErr != nil {
		return nil, m.transitionErr
	}
	if status == store.StatusProcessing {
		m.processingCount++
	}
	return &store.JobExecution{
		JobID:      jobID,
		Status:     status,
		RetryCount: m.processingCount,
	}, nil
}

func (m *mockExecStore) GetExecutionByJobID(ctx context.Context, jobID uuid.UUID) (*store.JobExecution, error) {
	return m.getResp, m.getErr
}

func (m *mockExecStore) ListExecutionsByType(ctx context.Context, jobType string, limit int) ([]*store.JobExecution, error) {
	return m.listResp, m.listErr
}

func (m *mockExecStore) ListFailedExecutions(ctx context.Context, limit int) ([]*store.JobExecution, error) {
	return m.listResp, m.listErr
}

// Mock provider client
type mockProvider struct {
	// Hooks
	publishResp  *provider.PublishResult
	publishErr   error
	scheduleResp *provider.ScheduleResult
	scheduleErr  error

	// Spies
	publishCalls     int
	capturedPublish  provider.PublishRequest
	scheduleCalls    int
	capturedSchedule provider.ScheduleRequest
}

func (m *mockProvider) Publish(ctx context.Context, req provider.PublishRequest) (*provider.PublishResult, error) {
	m.publishCalls++
	m.capturedPublish = req
	if m.publishErr != nil {
		return nil, m.publishErr
	}
	if m.publishResp != nil {
		return m.publishResp, nil
	}
	return &provider.PublishResult{MessageID: "msg_test"}, nil
}

func (m *mockProvider) CreateSchedule(ctx context.Context, req provider.ScheduleRequest) (*provider.ScheduleResult, error) {
	m.scheduleCalls++
	m.capturedSchedule = req
	if m.scheduleErr != nil {
		return nil, m.scheduleErr
	}
	if m.scheduleResp != nil {
		return m.scheduleResp, nil
	}
	return &provider.ScheduleResult{ScheduleID: req.ScheduleID}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(DefaultConfigs()...)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return reg
}
