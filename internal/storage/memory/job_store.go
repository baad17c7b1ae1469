package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

// JobStore provides an in-memory scrape.JobStore.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]scrape.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]scrape.Job)}
}

// CreateJob stores a new job row.
func (s *JobStore) CreateJob(_ context.Context, job scrape.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by id, logs included.
func (s *JobStore) GetJob(_ context.Context, jobID string) (scrape.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scrape.Job{}, ErrJobNotFound
	}
	job.Logs = append([]scrape.LogEntry(nil), job.Logs...)
	return job, nil
}

// AppendLog appends one entry to the job's ordered log list.
func (s *JobStore) AppendLog(_ context.Context, jobID string, entry scrape.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Logs = append(job.Logs, entry)
	s.jobs[jobID] = job
	return nil
}

// SetTotalItems records the batch size once the list extraction settles.
func (s *JobStore) SetTotalItems(_ context.Context, jobID string, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.TotalItems = total
	s.jobs[jobID] = job
	return nil
}

// UpdateCounters replaces the job's progress counters.
func (s *JobStore) UpdateCounters(_ context.Context, jobID string, processed, succeeded, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Processed = processed
	job.Succeeded = succeeded
	job.Failed = failed
	s.jobs[jobID] = job
	return nil
}

// CompleteJob moves the job to a terminal status. Further mutation attempts
// are rejected; a job is immutable once it leaves running.
func (s *JobStore) CompleteJob(_ context.Context, jobID string, status scrape.JobStatus, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != scrape.JobStatusRunning {
		return errors.New("job already terminal")
	}
	job.Status = status
	job.CompletedAt = &completedAt
	s.jobs[jobID] = job
	return nil
}
