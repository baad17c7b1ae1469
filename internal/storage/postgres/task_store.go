package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// taskCollectionID keys the single collection document holding the batch.
const taskCollectionID = "tasks"

// TaskStore persists the reconciled task collection as one document row: the
// full batch array plus total count and the optional run checkpoint.
//
// Schema:
//
//	CREATE TABLE quest_tasks (
//		id          TEXT PRIMARY KEY,
//		tasks       JSONB NOT NULL DEFAULT '[]'::jsonb,
//		total_count INT NOT NULL DEFAULT 0,
//		checkpoint  JSONB,
//		updated_at  TIMESTAMPTZ NOT NULL
//	);
type TaskStore struct {
	pool Pool
}

// NewTaskStore constructs a TaskStore over an existing pool.
func NewTaskStore(pool Pool) (*TaskStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &TaskStore{pool: pool}, nil
}

// UpsertTask rewrites the collection's array entry keyed by task id (replace,
// not append). The rewrite is a single statement: the conflict branch filters
// the old entry out of the stored array and appends the fresh record, so
// concurrent workers upserting different quests serialize on the row lock
// instead of clobbering each other through a read-modify-write gap.
func (s *TaskStore) UpsertTask(ctx context.Context, task scrape.Task) error {
	payload, err := json.Marshal([]scrape.Task{task})
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO quest_tasks (id, tasks, total_count, updated_at)
VALUES ($1, $2::jsonb, 1, $4)
ON CONFLICT (id) DO UPDATE SET
	tasks = (SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
	         FROM jsonb_array_elements(quest_tasks.tasks) AS elem
	         WHERE elem ->> 'id' <> $3) || $2::jsonb,
	total_count = (SELECT COUNT(*) + 1
	               FROM jsonb_array_elements(quest_tasks.tasks) AS elem
	               WHERE elem ->> 'id' <> $3),
	updated_at = $4`,
		taskCollectionID, payload, task.ID, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// GetTask returns one task from the collection, or nil when absent.
func (s *TaskStore) GetTask(ctx context.Context, taskID string) (*scrape.Task, error) {
	tasks, _, err := s.loadCollection(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			return &tasks[i], nil
		}
	}
	return nil, nil
}

// Tasks returns the full batch array.
func (s *TaskStore) Tasks(ctx context.Context) ([]scrape.Task, error) {
	tasks, _, err := s.loadCollection(ctx)
	return tasks, err
}

// SaveCheckpoint upserts the checkpoint document alongside the collection.
func (s *TaskStore) SaveCheckpoint(ctx context.Context, cp scrape.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO quest_tasks (id, tasks, total_count, checkpoint, updated_at)
VALUES ($1, '[]'::jsonb, 0, $2, $3)
ON CONFLICT (id) DO UPDATE SET checkpoint = EXCLUDED.checkpoint, updated_at = EXCLUDED.updated_at`,
		taskCollectionID, payload, cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// ClearCheckpoint nulls the checkpoint when the given job owns it.
func (s *TaskStore) ClearCheckpoint(ctx context.Context, jobID string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE quest_tasks SET checkpoint = NULL
WHERE id = $1 AND checkpoint ->> 'job_id' = $2`, taskCollectionID, jobID)
	if err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

func (s *TaskStore) loadCollection(ctx context.Context) ([]scrape.Task, int, error) {
	var (
		payload []byte
		total   int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT tasks, total_count FROM quest_tasks WHERE id = $1`, taskCollectionID,
	).Scan(&payload, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("query task collection: %w", err)
	}
	var tasks []scrape.Task
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &tasks); err != nil {
			return nil, 0, fmt.Errorf("unmarshal task collection: %w", err)
		}
	}
	return tasks, total, nil
}
