package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jobrelay/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const executionColumns = `id, job_id, job_type, status, payload, result, error, retry_count,
	user_id, organization_id, started_at, completed_at, created_at, updated_at`

// CreateExecution inserts a new execution record. The database stamps id,
// created_at, and updated_at; the dispatcher must not be able to forge them.
func (s *Store) CreateExecution(ctx context.Context, execution *store.JobExecution) error {
	if execution.Status == "" {
		execution.Status = store.StatusPending
	}

	query := `
		INSERT INTO job_executions (job_id, job_type, status, payload, user_id, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		execution.JobID, execution.JobType, execution.Status,
		execution.Payload, execution.UserID, execution.OrganizationID,
	).Scan(&execution.ID, &execution.CreatedAt, &execution.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return store.ErrDuplicateJobID
		}
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

// TransitionExecution updates the record's status in a single UPDATE so
// concurrent re-deliveries cannot lose a retry_count increment. The
// increment happens in SQL (retry_count + 1), never read-modify-write.
func (s *Store) TransitionExecution(ctx context.Context, jobID uuid.UUID, status store.Status, opts store.TransitionOpts) (*store.JobExecution, error) {
	switch status {
	case store.StatusProcessing, store.StatusCompleted, store.StatusFailed:
	default:
		return nil, fmt.Errorf("store: invalid transition target %q", status)
	}

	query := `
		UPDATE job_executions
		SET status = $2,
		    retry_count = retry_count + (CASE WHEN $2 = 'processing' THEN 1 ELSE 0 END),
		    started_at = CASE WHEN $2 = 'processing' THEN COALESCE(started_at, now()) ELSE started_at END,
		    completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE completed_at END,
		    result = COALESCE($3::jsonb, result),
		    error = CASE WHEN $4 <> '' THEN $4 ELSE error END,
		    updated_at = now()
		WHERE job_id = $1
		RETURNING ` + executionColumns

	row := s.db.QueryRowContext(ctx, query, jobID, string(status), []byte(opts.Result), opts.Error)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to transition execution: %w", err)
	}

	return execution, nil
}

// GetExecutionByJobID returns the record for jobID, or store.ErrNotFound.
func (s *Store) GetExecutionByJobID(ctx context.Context, jobID uuid.UUID) (*store.JobExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM job_executions WHERE job_id = $1`

	execution, err := scanExecution(s.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	return execution, nil
}

// ListExecutionsByType returns up to limit records of the given type,
// newest first.
func (s *Store) ListExecutionsByType(ctx context.Context, jobType string, limit int) ([]*store.JobExecution, error) {
	query := `SELECT ` + executionColumns + `
		FROM job_executions
		WHERE job_type = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, jobType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListFailedExecutions returns up to limit failed records, newest first.
func (s *Store) ListFailedExecutions(ctx context.Context, limit int) ([]*store.JobExecution, error) {
	query := `SELECT ` + executionColumns + `
		FROM job_executions
		WHERE status = $1
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, store.StatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// CountByStatus returns the number of executions currently in the given
// status. Feeds the pending-depth gauge; not used on request paths.
func (s *Store) CountByStatus(ctx context.Context, status store.Status) (int64, error) {
	var count int64
	query := `SELECT count(*) FROM job_executions WHERE status = $1`

	if err := s.db.QueryRowContext(ctx, query, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}

	return count, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (*store.JobExecution, error) {
	var execution store.JobExecution
	err := row.Scan(
		&execution.ID, &execution.JobID, &execution.JobType, &execution.Status,
		&execution.Payload, &execution.Result, &execution.Error, &execution.RetryCount,
		&execution.UserID, &execution.OrganizationID,
		&execution.StartedAt, &execution.CompletedAt,
		&execution.CreatedAt, &execution.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

func collectExecutions(rows *sql.Rows) ([]*store.JobExecution, error) {
	var executions []*store.JobExecution
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions = append(executions, execution)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}
	return executions, nil
}
