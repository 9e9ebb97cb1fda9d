package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobrelay/internal/store"
	"jobrelay/pkg/api"

	"github.com/google/uuid"
)

func sampleExecution(jobID uuid.UUID) *store.JobExecution {
	started := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	completed := started.Add(3 * time.Second)
	userID := "usr_1"
	return &store.JobExecution{
		ID:          7,
		JobID:       jobID,
		JobType:     "send-email",
		Status:      store.StatusCompleted,
		Result:      json.RawMessage(`{"provider_message_id":"msg_1"}`),
		RetryCount:  1,
		UserID:      &userID,
		StartedAt:   &started,
		CompletedAt: &completed,
		CreatedAt:   started.Add(-time.Second),
		UpdatedAt:   completed,
	}
}

func TestGetExecution(t *testing.T) {
	jobID := uuid.New()

	tests := []struct {
		name       string
		path       string
		getResp    *store.JobExecution
		getErr     error
		wantStatus int
	}{
		{
			name:       "Success",
			path:       "/ops/executions/" + jobID.String(),
			getResp:    sampleExecution(jobID),
			wantStatus: http.StatusOK,
		},
		{
			name:       "Invalid ID",
			path:       "/ops/executions/not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Not Found",
			path:       "/ops/executions/" + jobID.String(),
			getErr:     store.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Store Error",
			path:       "/ops/executions/" + jobID.String(),
			getErr:     errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockStore{getResp: tt.getResp, getErr: tt.getErr}
			h := newTestHandlers(t, st, &mockDispatcher{})
			mux := opsMux(h)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
}

func TestGetExecution_ResponseBody(t *testing.T) {
	jobID := uuid.New()
	st := &mockStore{getResp: sampleExecution(jobID)}
	h := newTestHandlers(t, st, &mockDispatcher{})
	mux := opsMux(h)

	req := httptest.NewRequest(http.MethodGet, "/ops/executions/"+jobID.String(), nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if st.capturedJobID != jobID {
		t.Errorf("store queried with %s, want %s", st.capturedJobID, jobID)
	}

	var resp api.ExecutionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.JobID != jobID.String() {
		t.Errorf("got job ID %s, want %s", resp.JobID, jobID)
	}
	if resp.Status != "completed" {
		t.Errorf("got status %s, want completed", resp.Status)
	}
	if resp.RetryCount != 1 {
		t.Errorf("got retry count %d, want 1", resp.RetryCount)
	}
	if resp.UserID == nil || *resp.UserID != "usr_1" {
		t.Errorf("got user ID %v, want usr_1", resp.UserID)
	}
	if string(resp.Result) != `{"provider_message_id":"msg_1"}` {
		t.Errorf("unexpected result: %s", resp.Result)
	}
}

func TestListExecutions(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		listErr    error
		wantStatus int
		wantType   string
		wantLimit  int
	}{
		{
			name:       "Success With Default Limit",
			query:      "?type=send-email",
			wantStatus: http.StatusOK,
			wantType:   "send-email",
			wantLimit:  50,
		},
		{
			name:       "Explicit Limit",
			query:      "?type=process-webhook&limit=10",
			wantStatus: http.StatusOK,
			wantType:   "process-webhook",
			wantLimit:  10,
		},
		{
			name:       "Limit Capped",
			query:      "?type=send-email&limit=5000",
			wantStatus: http.StatusOK,
			wantType:   "send-email",
			wantLimit:  200,
		},
		{
			name:       "Missing Type",
			query:      "",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Unknown Type",
			query:      "?type=mine-bitcoin",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Invalid Limit",
			query:      "?type=send-email&limit=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Negative Limit",
			query:      "?type=send-email&limit=-5",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Store Error",
			query:      "?type=send-email",
			listErr:    errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockStore{
				listResp: []*store.JobExecution{sampleExecution(uuid.New())},
				listErr:  tt.listErr,
			}
			h := newTestHandlers(t, st, &mockDispatcher{})
			mux := opsMux(h)

			req := httptest.NewRequest(http.MethodGet, "/ops/executions"+tt.query, nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantType != "" && st.capturedType != tt.wantType {
				t.Errorf("got type %q, want %q", st.capturedType, tt.wantType)
			}
			if tt.wantLimit != 0 && st.capturedLimit != tt.wantLimit {
				t.Errorf("got limit %d, want %d", st.capturedLimit, tt.wantLimit)
			}
		})
	}
}

func TestListExecutions_EmptyListIsNotNull(t *testing.T) {
	st := &mockStore{listResp: nil}
	h := newTestHandlers(t, st, &mockDispatcher{})
	mux := opsMux(h)

	req := httptest.NewRequest(http.MethodGet, "/ops/executions?type=send-email", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusOK)
	}

	var resp api.ListExecutionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Executions == nil {
		t.Error("expected empty slice, got null")
	}
	if len(resp.Executions) != 0 {
		t.Errorf("expected no executions, got %d", len(resp.Executions))
	}
}

func TestListFailed(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		failedErr  error
		wantStatus int
		wantLimit  int
	}{
		{
			name:       "Success With Default Limit",
			query:      "",
			wantStatus: http.StatusOK,
			wantLimit:  50,
		},
		{
			name:       "Explicit Limit",
			query:      "?limit=5",
			wantStatus: http.StatusOK,
			wantLimit:  5,
		},
		{
			name:       "Invalid Limit",
			query:      "?limit=many",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Store Error",
			query:      "",
			failedErr:  errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failed := sampleExecution(uuid.New())
			failed.Status = store.StatusFailed
			st := &mockStore{
				failedResp: []*store.JobExecution{failed},
				failedErr:  tt.failedErr,
			}
			h := newTestHandlers(t, st, &mockDispatcher{})
			mux := opsMux(h)

			req := httptest.NewRequest(http.MethodGet, "/ops/failed"+tt.query, nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantLimit != 0 && st.capturedLimit != tt.wantLimit {
				t.Errorf("got limit %d, want %d", st.capturedLimit, tt.wantLimit)
			}
		})
	}
}
