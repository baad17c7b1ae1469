package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// JobStore persists scrape jobs in the scrape_jobs table. Logs live in a
// jsonb array appended in place, preserving emission order.
//
// Schema:
//
//	CREATE TABLE scrape_jobs (
//		id           UUID PRIMARY KEY,
//		status       TEXT NOT NULL,
//		started_at   TIMESTAMPTZ NOT NULL,
//		completed_at TIMESTAMPTZ,
//		total_items  INT NOT NULL,
//		processed    INT NOT NULL DEFAULT 0,
//		succeeded    INT NOT NULL DEFAULT 0,
//		failed       INT NOT NULL DEFAULT 0,
//		logs         JSONB NOT NULL DEFAULT '[]'::jsonb
//	);
type JobStore struct {
	pool Pool
}

// NewJobStore constructs a JobStore over an existing pool.
func NewJobStore(pool Pool) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// CreateJob inserts the job row.
func (s *JobStore) CreateJob(ctx context.Context, job scrape.Job) error {
	logs, err := json.Marshal(job.Logs)
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	if job.Logs == nil {
		logs = []byte("[]")
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO scrape_jobs (id, status, started_at, completed_at, total_items, processed, succeeded, failed, logs)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID,
		string(job.Status),
		job.StartedAt,
		job.CompletedAt,
		job.TotalItems,
		job.Processed,
		job.Succeeded,
		job.Failed,
		logs,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job with its full ordered log list.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (scrape.Job, error) {
	var (
		job    scrape.Job
		status string
		logs   []byte
	)
	err := s.pool.QueryRow(ctx, `
SELECT id, status, started_at, completed_at, total_items, processed, succeeded, failed, logs
FROM scrape_jobs WHERE id = $1`, jobID,
	).Scan(
		&job.ID,
		&status,
		&job.StartedAt,
		&job.CompletedAt,
		&job.TotalItems,
		&job.Processed,
		&job.Succeeded,
		&job.Failed,
		&logs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return scrape.Job{}, fmt.Errorf("job %s: not found", jobID)
	}
	if err != nil {
		return scrape.Job{}, fmt.Errorf("query job: %w", err)
	}
	job.Status = scrape.JobStatus(status)
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &job.Logs); err != nil {
			return scrape.Job{}, fmt.Errorf("unmarshal logs: %w", err)
		}
	}
	return job, nil
}

// AppendLog concatenates one entry onto the job's jsonb log array.
func (s *JobStore) AppendLog(ctx context.Context, jobID string, entry scrape.LogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE scrape_jobs SET logs = logs || $2::jsonb WHERE id = $1 AND status = 'running'`,
		jobID, payload)
	if err != nil {
		return fmt.Errorf("append job log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: not running", jobID)
	}
	return nil
}

// SetTotalItems records the batch size once list extraction settles.
func (s *JobStore) SetTotalItems(ctx context.Context, jobID string, total int) error {
	_, err := s.pool.Exec(ctx, `
UPDATE scrape_jobs SET total_items = $2 WHERE id = $1 AND status = 'running'`,
		jobID, total)
	if err != nil {
		return fmt.Errorf("set job total: %w", err)
	}
	return nil
}

// UpdateCounters replaces the job's progress counters.
func (s *JobStore) UpdateCounters(ctx context.Context, jobID string, processed, succeeded, failed int) error {
	_, err := s.pool.Exec(ctx, `
UPDATE scrape_jobs SET processed = $2, succeeded = $3, failed = $4 WHERE id = $1 AND status = 'running'`,
		jobID, processed, succeeded, failed)
	if err != nil {
		return fmt.Errorf("update job counters: %w", err)
	}
	return nil
}

// CompleteJob moves the job to a terminal status. The status guard keeps a
// terminal job immutable.
func (s *JobStore) CompleteJob(ctx context.Context, jobID string, status scrape.JobStatus, completedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE scrape_jobs SET status = $2, completed_at = $3 WHERE id = $1 AND status = 'running'`,
		jobID, string(status), completedAt)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: not running", jobID)
	}
	return nil
}
