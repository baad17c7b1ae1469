package scrape

import (
	"context"
	"time"
)

// PageStore persists raw fetched wiki pages keyed by quest id.
type PageStore interface {
	Has(ctx context.Context, questID string) (bool, error)
	Get(ctx context.Context, questID string) (*Page, error)
	Put(ctx context.Context, page Page) error
	// MarkUsed is best-effort bookkeeping; callers swallow its errors.
	MarkUsed(ctx context.Context, questID, jobID string) error
}

// JobStore persists scrape job rows and their append-only logs.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	AppendLog(ctx context.Context, jobID string, entry LogEntry) error
	SetTotalItems(ctx context.Context, jobID string, total int) error
	UpdateCounters(ctx context.Context, jobID string, processed, succeeded, failed int) error
	CompleteJob(ctx context.Context, jobID string, status JobStatus, completedAt time.Time) error
}

// TaskStore holds the reconciled task collection plus the run checkpoint.
// Every write is an upsert keyed by task id, so concurrent writers are
// commutative ("most recent wins").
type TaskStore interface {
	UpsertTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, taskID string) (*Task, error)
	Tasks(ctx context.Context) ([]Task, error)
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	ClearCheckpoint(ctx context.Context, jobID string) error
}

// BlobStore archives raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// HeadlessDetector decides whether a headless re-fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResult) bool
}

// Publisher pushes completed-record events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for snapshot deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (swappable in tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job ids (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
