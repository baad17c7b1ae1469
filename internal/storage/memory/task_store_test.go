package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

func TestTaskStore_UpsertIsKeyedReplace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTaskStore()

	require.NoError(t, store.UpsertTask(ctx, scrape.Task{ID: "debut", Name: "Debut", Level: 1}))
	require.NoError(t, store.UpsertTask(ctx, scrape.Task{ID: "debut", Name: "Debut", Level: 5}))

	tasks, err := store.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, 5, tasks[0].Level)
}

func TestTaskStore_GetTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTaskStore()
	require.NoError(t, store.UpsertTask(ctx, scrape.Task{ID: "debut", Name: "Debut"}))

	task, err := store.GetTask(ctx, "debut")
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, "Debut", task.Name)

	absent, err := store.GetTask(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, absent)
}

func TestTaskStore_CheckpointOwnership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTaskStore()
	cp := scrape.Checkpoint{JobID: "job-1", CurrentIndex: 3, TotalItems: 10, UpdatedAt: time.Now()}
	require.NoError(t, store.SaveCheckpoint(ctx, cp))

	// A different job must not clear another run's checkpoint.
	require.NoError(t, store.ClearCheckpoint(ctx, "job-2"))
	require.NotNil(t, store.Checkpoint())

	require.NoError(t, store.ClearCheckpoint(ctx, "job-1"))
	require.Nil(t, store.Checkpoint())
}
