package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// TaskStore holds the reconciled task collection and run checkpoint.
type TaskStore struct {
	mu         sync.RWMutex
	tasks      map[string]scrape.Task
	checkpoint *scrape.Checkpoint
}

// NewTaskStore constructs a TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]scrape.Task)}
}

// UpsertTask writes a task keyed by id; re-running the same item replaces the
// record instead of appending a duplicate.
func (s *TaskStore) UpsertTask(_ context.Context, task scrape.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

// GetTask returns one task by id, or nil when absent.
func (s *TaskStore) GetTask(_ context.Context, taskID string) (*scrape.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// Tasks returns the full collection ordered by id.
func (s *TaskStore) Tasks(_ context.Context) ([]scrape.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scrape.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveCheckpoint stores the run's coarse progress marker.
func (s *TaskStore) SaveCheckpoint(_ context.Context, cp scrape.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoint = &cp
	return nil
}

// ClearCheckpoint removes the checkpoint for the given job, if it is the
// current owner.
func (s *TaskStore) ClearCheckpoint(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkpoint != nil && s.checkpoint.JobID == jobID {
		s.checkpoint = nil
	}
	return nil
}

// Checkpoint exposes the current checkpoint for tests and status handlers.
func (s *TaskStore) Checkpoint() *scrape.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkpoint == nil {
		return nil
	}
	cp := *s.checkpoint
	return &cp
}
