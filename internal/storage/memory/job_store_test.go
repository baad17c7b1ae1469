package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

func TestJobStore_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewJobStore()
	now := time.Unix(1700000000, 0).UTC()

	require.NoError(t, store.CreateJob(ctx, scrape.Job{
		ID:        "job-1",
		Status:    scrape.JobStatusRunning,
		StartedAt: now,
	}))
	require.Error(t, store.CreateJob(ctx, scrape.Job{ID: "job-1"}))

	require.NoError(t, store.SetTotalItems(ctx, "job-1", 3))
	require.NoError(t, store.AppendLog(ctx, "job-1", scrape.LogEntry{
		Timestamp: now, Level: scrape.LogInfo, Message: "discovered 3 quests",
	}))
	require.NoError(t, store.UpdateCounters(ctx, "job-1", 2, 1, 1))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, 3, job.TotalItems)
	require.Equal(t, 2, job.Processed)
	require.Equal(t, 1, job.Succeeded)
	require.Equal(t, 1, job.Failed)
	require.Len(t, job.Logs, 1)

	done := now.Add(time.Minute)
	require.NoError(t, store.CompleteJob(ctx, "job-1", scrape.JobStatusCompleted, done))

	job, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, scrape.JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	require.Equal(t, done, *job.CompletedAt)
}

func TestJobStore_TerminalJobImmutable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewJobStore()
	now := time.Now().UTC()

	require.NoError(t, store.CreateJob(ctx, scrape.Job{ID: "job-1", Status: scrape.JobStatusRunning}))
	require.NoError(t, store.CompleteJob(ctx, "job-1", scrape.JobStatusFailed, now))
	require.Error(t, store.CompleteJob(ctx, "job-1", scrape.JobStatusCompleted, now))
}

func TestJobStore_UnknownJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewJobStore()

	_, err := store.GetJob(ctx, "nope")
	require.ErrorIs(t, err, ErrJobNotFound)
	require.ErrorIs(t, store.AppendLog(ctx, "nope", scrape.LogEntry{}), ErrJobNotFound)
	require.ErrorIs(t, store.UpdateCounters(ctx, "nope", 1, 1, 0), ErrJobNotFound)
	require.ErrorIs(t, store.SetTotalItems(ctx, "nope", 1), ErrJobNotFound)
}

func TestJobStore_LogsAreCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewJobStore()
	require.NoError(t, store.CreateJob(ctx, scrape.Job{ID: "job-1", Status: scrape.JobStatusRunning}))
	require.NoError(t, store.AppendLog(ctx, "job-1", scrape.LogEntry{Message: "original"}))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	job.Logs[0].Message = "mutated by caller"

	again, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "original", again.Logs[0].Message)
}
