package postgres

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

func newTaskStore(t *testing.T) (*TaskStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewTaskStore(mock)
	require.NoError(t, err)
	return store, mock
}

func collectionRows(t *testing.T, tasks []scrape.Task) *pgxmock.Rows {
	t.Helper()
	payload, err := json.Marshal(tasks)
	require.NoError(t, err)
	return pgxmock.NewRows([]string{"tasks", "total_count"}).AddRow(payload, len(tasks))
}

// The upsert must be one atomic statement: the array rewrite (drop the old
// entry by id, append the fresh record) happens inside the ON CONFLICT
// branch. A load-then-save pair here would let two pooled workers upserting
// different quests erase each other's writes.
func TestTaskStore_UpsertTask_SingleStatementRewrite(t *testing.T) {
	t.Parallel()

	store, mock := newTaskStore(t)
	now := time.Unix(1700000000, 0).UTC()
	task := scrape.Task{ID: "debut", Name: "Debut", Level: 5, UpdatedAt: now}

	payload, err := json.Marshal([]scrape.Task{task})
	require.NoError(t, err)
	mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE SET\s+tasks = \(SELECT COALESCE\(jsonb_agg\(elem\)`).
		WithArgs("tasks", payload, "debut", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// Ordered expectations: any SELECT issued before the write would fail
	// the Exec expectation above.
	require.NoError(t, store.UpsertTask(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_UpsertTask_ConcurrentWritersKeepBothRecords(t *testing.T) {
	t.Parallel()

	store, mock := newTaskStore(t)
	mock.MatchExpectationsInOrder(false)
	now := time.Unix(1700000000, 0).UTC()
	debut := scrape.Task{ID: "debut", Name: "Debut", UpdatedAt: now}
	shortage := scrape.Task{ID: "shortage", Name: "Shortage", UpdatedAt: now}

	for _, task := range []scrape.Task{debut, shortage} {
		payload, err := json.Marshal([]scrape.Task{task})
		require.NoError(t, err)
		mock.ExpectExec("INSERT INTO quest_tasks").
			WithArgs("tasks", payload, task.ID, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	// Each writer issues exactly one statement carrying only its own
	// record; neither ever round-trips the whole collection, so there is
	// no stale array for the other writer to resurrect.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, task := range []scrape.Task{debut, shortage} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.UpsertTask(context.Background(), task)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_GetTask_AbsentReturnsNil(t *testing.T) {
	t.Parallel()

	store, mock := newTaskStore(t)
	mock.ExpectQuery("SELECT tasks, total_count FROM quest_tasks").
		WithArgs("tasks").
		WillReturnRows(collectionRows(t, []scrape.Task{{ID: "debut"}}))

	task, err := store.GetTask(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, task)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_SaveAndClearCheckpoint(t *testing.T) {
	t.Parallel()

	store, mock := newTaskStore(t)
	now := time.Unix(1700000000, 0).UTC()
	cp := scrape.Checkpoint{
		JobID:        "job-1",
		CurrentIndex: 7,
		TotalItems:   40,
		UpdatedAt:    now,
	}
	payload, err := json.Marshal(cp)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO quest_tasks").
		WithArgs("tasks", payload, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.SaveCheckpoint(context.Background(), cp))

	mock.ExpectExec("UPDATE quest_tasks SET checkpoint = NULL").
		WithArgs("tasks", "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.ClearCheckpoint(context.Background(), "job-1"))

	require.NoError(t, mock.ExpectationsWereMet())
}
