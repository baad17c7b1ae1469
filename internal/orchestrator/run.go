package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tarkovlens/questscraper/internal/convert"
	"github.com/tarkovlens/questscraper/internal/diff"
	"github.com/tarkovlens/questscraper/internal/extract"
	"github.com/tarkovlens/questscraper/internal/match"
	"github.com/tarkovlens/questscraper/internal/progress"
	"github.com/tarkovlens/questscraper/internal/scrape"
)

// batchState is the shared mutable record set a run accumulates. Writes are
// upserts keyed by quest id, so concurrent workers stay commutative.
type batchState struct {
	mu     sync.Mutex
	quests []*scrape.ExtractedQuest
	index  map[string]int
}

func newBatchState(capacity int) *batchState {
	return &batchState{
		quests: make([]*scrape.ExtractedQuest, 0, capacity),
		index:  make(map[string]int, capacity),
	}
}

func (b *batchState) add(q *scrape.ExtractedQuest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.index[q.ID]; ok {
		b.quests[i] = q
		return
	}
	b.index[q.ID] = len(b.quests)
	b.quests = append(b.quests, q)
}

func (b *batchState) snapshot() []*scrape.ExtractedQuest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*scrape.ExtractedQuest, len(b.quests))
	copy(out, b.quests)
	return out
}

// tracker serializes counter updates so the persisted values stay monotonic
// under the pooled mode.
type tracker struct {
	mu        sync.Mutex
	processed int
	succeeded int
	failed    int
}

func (t *tracker) success() (processed, succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	t.succeeded++
	return t.processed, t.succeeded, t.failed
}

func (t *tracker) failure() (processed, succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	t.failed++
	return t.processed, t.succeeded, t.failed
}

func (t *tracker) snapshot() (processed, succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed, t.succeeded, t.failed
}

// priors holds the comparison baselines fetched once per run.
type priors struct {
	roster   []scrape.Trader
	upstream []scrape.Task
}

func (p *priors) upstreamFor(name string) *scrape.Task {
	for i := range p.upstream {
		if match.Names(name, p.upstream[i].Name) {
			return &p.upstream[i]
		}
	}
	return nil
}

// run drives one batch to a terminal status. Per-item failures are counted
// and logged; only a precondition failure or an escaped panic fails the job.
func (o *Orchestrator) run(ctx context.Context, jobID string, opts RunOptions) {
	started := o.deps.Clock.Now()
	defer func() {
		if r := recover(); r != nil {
			o.deps.Logger.Error("scrape job panicked",
				zap.String("job_id", jobID), zap.Any("panic", r))
			o.failJob(ctx, jobID, started, fmt.Sprintf("unexpected failure: %v", r))
		}
	}()

	listURL := opts.ListURL
	if listURL == "" {
		listURL = o.cfg.ListURL
	}

	entries, err := o.fetchList(ctx, listURL)
	if err != nil {
		o.failJob(ctx, jobID, started, fmt.Sprintf("list extraction failed: %v", err))
		return
	}
	if len(entries) == 0 {
		o.failJob(ctx, jobID, started, fmt.Sprintf("no quests found at %s", listURL))
		return
	}

	if err := o.deps.JobStore.SetTotalItems(ctx, jobID, len(entries)); err != nil {
		o.deps.Logger.Warn("set total items failed", zap.String("job_id", jobID), zap.Error(err))
	}
	o.appendLog(ctx, jobID, scrape.LogEntry{
		Timestamp: o.deps.Clock.Now(),
		Level:     scrape.LogInfo,
		Message:   fmt.Sprintf("discovered %d quests", len(entries)),
		Details:   map[string]any{"list_url": listURL},
	})

	pr := o.loadPriors(ctx, jobID)

	batch := newBatchState(len(entries))
	track := &tracker{}

	if opts.CachedOnly {
		o.runPooled(ctx, jobID, entries, batch, pr, track)
	} else {
		o.runSequential(ctx, jobID, entries, batch, pr, track)
	}

	o.resolveLatePredecessors(ctx, jobID, batch, pr)

	_, succeeded, failed := track.snapshot()
	o.appendLog(ctx, jobID, scrape.LogEntry{
		Timestamp: o.deps.Clock.Now(),
		Level:     scrape.LogSuccess,
		Message:   fmt.Sprintf("job finished: %d succeeded, %d failed", succeeded, failed),
	})
	o.finishJob(ctx, jobID, scrape.JobStatusCompleted, started)
}

// loadPriors fetches the trader roster and prior upstream records. Either
// may fail without failing the job; output degrades instead.
func (o *Orchestrator) loadPriors(ctx context.Context, jobID string) *priors {
	pr := &priors{}
	if o.deps.Upstream == nil {
		return pr
	}
	roster, err := o.deps.Upstream.Roster(ctx)
	if err != nil {
		o.appendLog(ctx, jobID, scrape.LogEntry{
			Timestamp: o.deps.Clock.Now(),
			Level:     scrape.LogWarning,
			Message:   fmt.Sprintf("trader roster unavailable, trader references will be unresolved: %v", err),
		})
	}
	pr.roster = roster

	upstream, err := o.deps.Upstream.Quests(ctx)
	if err != nil {
		o.appendLog(ctx, jobID, scrape.LogEntry{
			Timestamp: o.deps.Clock.Now(),
			Level:     scrape.LogWarning,
			Message:   fmt.Sprintf("upstream task records unavailable, diff reports degraded: %v", err),
		})
	}
	pr.upstream = upstream
	return pr
}

func (o *Orchestrator) runSequential(ctx context.Context, jobID string, entries []scrape.ListEntry, batch *batchState, pr *priors, track *tracker) {
	for i, entry := range entries {
		o.processItem(ctx, jobID, entry, false, batch, pr, track)
		o.saveCheckpoint(ctx, jobID, i+1, len(entries), entry.Name)
	}
}

// runPooled processes cached pages with a fixed worker pool pulling indices
// from a shared counter. Logs and counters reflect completion order.
func (o *Orchestrator) runPooled(ctx context.Context, jobID string, entries []scrape.ListEntry, batch *batchState, pr *priors, track *tracker) {
	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < o.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(entries) {
					return
				}
				entry := entries[i]
				o.processItem(ctx, jobID, entry, true, batch, pr, track)
				processed, _, _ := track.snapshot()
				o.saveCheckpoint(ctx, jobID, processed, len(entries), entry.Name)
			}
		}()
	}
	wg.Wait()
}

// processItem runs the full single-quest pipeline. Every failure is local:
// it is logged, counted, and never aborts the batch.
func (o *Orchestrator) processItem(ctx context.Context, jobID string, entry scrape.ListEntry, cachedOnly bool, batch *batchState, pr *priors, track *tracker) {
	started := o.deps.Clock.Now()
	questID := scrape.Slugify(entry.Name)

	defer func() {
		if r := recover(); r != nil {
			o.recordFailure(ctx, jobID, entry, questID, started,
				fmt.Sprintf("unexpected error processing %q: %v", entry.Name, r), track)
		}
	}()

	html, err := o.pageHTML(ctx, jobID, questID, entry, cachedOnly)
	if err != nil {
		o.recordFailure(ctx, jobID, entry, questID, started,
			fmt.Sprintf("fetch failed for %q: %v", entry.Name, err), track)
		return
	}

	quest, err := extract.Quest(html, entry.Name, entry.URL, o.deps.Clock.Now())
	if err != nil {
		o.recordFailure(ctx, jobID, entry, questID, started,
			fmt.Sprintf("extraction failed for %q: %v", entry.Name, err), track)
		return
	}
	if quest.Trader == "" {
		quest.Trader = entry.Trader
	}
	batch.add(quest)

	task := convert.Task(quest, batch.snapshot(), pr.roster, o.deps.Clock.Now())

	o.reportDiff(ctx, jobID, task, pr)

	if err := o.deps.TaskStore.UpsertTask(ctx, task); err != nil {
		o.recordFailure(ctx, jobID, entry, questID, started,
			fmt.Sprintf("persist failed for %q: %v", entry.Name, err), track)
		return
	}

	o.publishRecord(ctx, jobID, task)

	processed, succeeded, failed := track.success()
	o.appendLog(ctx, jobID, scrape.LogEntry{
		Timestamp: o.deps.Clock.Now(),
		Level:     scrape.LogSuccess,
		Message:   fmt.Sprintf("processed %q", task.Name),
		QuestName: task.Name,
		QuestID:   task.ID,
	})
	o.updateCounters(ctx, jobID, processed, succeeded, failed)
	o.emit(progress.Event{
		JobID:     jobID,
		TS:        o.deps.Clock.Now(),
		Stage:     progress.StageItemDone,
		QuestID:   task.ID,
		QuestName: task.Name,
		Dur:       o.deps.Clock.Now().Sub(started),
	})
}

// resolveLatePredecessors re-resolves predecessor references once the whole
// batch is known. Items are converted against the quests extracted before
// them, so a predecessor listed later in the index than its dependent is
// invisible at item time; this pass re-converts and re-upserts any record
// whose resolution gained references against the full batch.
func (o *Orchestrator) resolveLatePredecessors(ctx context.Context, jobID string, batch *batchState, pr *priors) {
	quests := batch.snapshot()
	for _, q := range quests {
		if len(q.PreviousNames) == 0 {
			continue
		}
		stored, err := o.deps.TaskStore.GetTask(ctx, q.ID)
		if err != nil || stored == nil {
			continue
		}
		task := convert.Task(q, quests, pr.roster, o.deps.Clock.Now())
		if len(task.Predecessors) <= len(stored.Predecessors) {
			continue
		}
		if err := o.deps.TaskStore.UpsertTask(ctx, task); err != nil {
			o.deps.Logger.Warn("late predecessor upsert failed",
				zap.String("quest_id", task.ID), zap.Error(err))
			continue
		}
		o.publishRecord(ctx, jobID, task)
		o.appendLog(ctx, jobID, scrape.LogEntry{
			Timestamp: o.deps.Clock.Now(),
			Level:     scrape.LogInfo,
			Message:   fmt.Sprintf("resolved %d predecessors for %q against the full batch", len(task.Predecessors), task.Name),
			QuestName: task.Name,
			QuestID:   task.ID,
		})
	}
}

// pageHTML returns the quest page body, from the page store in cached mode
// or from a live fetch (archived and cached) otherwise.
func (o *Orchestrator) pageHTML(ctx context.Context, jobID, questID string, entry scrape.ListEntry, cachedOnly bool) ([]byte, error) {
	if cachedOnly {
		page, err := o.deps.PageStore.Get(ctx, questID)
		if err != nil {
			return nil, fmt.Errorf("read cached page: %w", err)
		}
		if page == nil {
			return nil, fmt.Errorf("page not cached")
		}
		if err := o.deps.PageStore.MarkUsed(ctx, questID, jobID); err != nil {
			o.deps.Logger.Debug("mark page used failed",
				zap.String("quest_id", questID), zap.Error(err))
		}
		return []byte(page.HTML), nil
	}

	res, err := o.fetch(ctx, entry.URL)
	if err != nil {
		return nil, err
	}

	page := scrape.Page{
		QuestID:   questID,
		QuestName: entry.Name,
		URL:       entry.URL,
		HTML:      string(res.Body),
		FetchedAt: o.deps.Clock.Now(),
		JobID:     jobID,
	}
	if o.deps.Hasher != nil {
		if digest, herr := o.deps.Hasher.Hash(res.Body); herr == nil {
			page.ContentHash = digest
			page.BlobURI = o.archiveSnapshot(ctx, questID, digest, res.Body)
		}
	}
	if err := o.deps.PageStore.Put(ctx, page); err != nil {
		o.deps.Logger.Warn("cache page failed",
			zap.String("quest_id", questID), zap.Error(err))
	}
	return res.Body, nil
}

// archiveSnapshot stores the raw HTML in the blob store. Best-effort; an
// empty URI means the archive write failed.
func (o *Orchestrator) archiveSnapshot(ctx context.Context, questID, digest string, body []byte) string {
	if o.deps.BlobStore == nil {
		return ""
	}
	path := fmt.Sprintf("pages/%s/%s.html", questID, digest)
	uri, err := o.deps.BlobStore.PutObject(ctx, path, "text/html; charset=utf-8", body)
	if err != nil {
		o.deps.Logger.Warn("archive snapshot failed",
			zap.String("quest_id", questID), zap.Error(err))
		return ""
	}
	return uri
}

// reportDiff compares the fresh record against upstream and the previous
// extraction. Reporting is observability only; any failure here, panics
// included, is logged and swallowed.
func (o *Orchestrator) reportDiff(ctx context.Context, jobID string, task scrape.Task, pr *priors) {
	defer func() {
		if r := recover(); r != nil {
			o.deps.Logger.Warn("diff report panicked",
				zap.String("quest_id", task.ID), zap.Any("panic", r))
		}
	}()

	priorExtraction, err := o.deps.TaskStore.GetTask(ctx, task.ID)
	if err != nil {
		o.deps.Logger.Debug("prior extraction lookup failed",
			zap.String("quest_id", task.ID), zap.Error(err))
	}
	report := diff.Compare(task, pr.upstreamFor(task.Name), priorExtraction)
	if !report.HasDifferences {
		return
	}
	o.appendLog(ctx, jobID, scrape.LogEntry{
		Timestamp: o.deps.Clock.Now(),
		Level:     scrape.LogInfo,
		Message:   fmt.Sprintf("changes detected for %q", task.Name),
		QuestName: task.Name,
		QuestID:   task.ID,
		Details:   map[string]any{"diff": report.Lines},
	})
}

// publishRecord notifies downstream consumers of a fresh upsert. Failures
// are logged and swallowed; publishing is off the critical path.
func (o *Orchestrator) publishRecord(ctx context.Context, jobID string, task scrape.Task) {
	if o.deps.Publisher == nil {
		return
	}
	payload := map[string]any{
		"job_id":     jobID,
		"quest_id":   task.ID,
		"quest_name": task.Name,
		"updated_at": task.UpdatedAt,
	}
	if _, err := o.deps.Publisher.Publish(ctx, o.cfg.Topic, payload); err != nil {
		o.deps.Logger.Warn("publish record failed",
			zap.String("quest_id", task.ID), zap.Error(err))
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, jobID string, entry scrape.ListEntry, questID string, started time.Time, msg string, track *tracker) {
	processed, succeeded, failed := track.failure()
	o.appendLog(ctx, jobID, scrape.LogEntry{
		Timestamp: o.deps.Clock.Now(),
		Level:     scrape.LogError,
		Message:   msg,
		QuestName: entry.Name,
		QuestID:   questID,
	})
	o.updateCounters(ctx, jobID, processed, succeeded, failed)
	o.emit(progress.Event{
		JobID:     jobID,
		TS:        o.deps.Clock.Now(),
		Stage:     progress.StageItemError,
		QuestID:   questID,
		QuestName: entry.Name,
		Dur:       o.deps.Clock.Now().Sub(started),
		Note:      msg,
	})
}

func (o *Orchestrator) failJob(ctx context.Context, jobID string, started time.Time, msg string) {
	o.appendLog(ctx, jobID, scrape.LogEntry{
		Timestamp: o.deps.Clock.Now(),
		Level:     scrape.LogError,
		Message:   msg,
	})
	o.finishJob(ctx, jobID, scrape.JobStatusFailed, started)
}

// finishJob moves the job to a terminal status and clears the checkpoint.
func (o *Orchestrator) finishJob(ctx context.Context, jobID string, status scrape.JobStatus, started time.Time) {
	now := o.deps.Clock.Now()
	if err := o.deps.JobStore.CompleteJob(ctx, jobID, status, now); err != nil {
		o.deps.Logger.Error("complete job failed",
			zap.String("job_id", jobID), zap.Error(err))
	}
	if err := o.deps.TaskStore.ClearCheckpoint(ctx, jobID); err != nil {
		o.deps.Logger.Warn("clear checkpoint failed",
			zap.String("job_id", jobID), zap.Error(err))
	}
	stage := progress.StageJobDone
	if status == scrape.JobStatusFailed {
		stage = progress.StageJobFailed
	}
	o.emit(progress.Event{JobID: jobID, TS: now, Stage: stage, Dur: now.Sub(started)})
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context, jobID string, index, total int, lastName string) {
	cp := scrape.Checkpoint{
		JobID:         jobID,
		CurrentIndex:  index,
		TotalItems:    total,
		LastQuestName: lastName,
		UpdatedAt:     o.deps.Clock.Now(),
	}
	if err := o.deps.TaskStore.SaveCheckpoint(ctx, cp); err != nil {
		o.deps.Logger.Warn("save checkpoint failed",
			zap.String("job_id", jobID), zap.Error(err))
	}
}

func (o *Orchestrator) appendLog(ctx context.Context, jobID string, entry scrape.LogEntry) {
	if err := o.deps.JobStore.AppendLog(ctx, jobID, entry); err != nil {
		o.deps.Logger.Warn("append job log failed",
			zap.String("job_id", jobID), zap.Error(err))
	}
}

func (o *Orchestrator) updateCounters(ctx context.Context, jobID string, processed, succeeded, failed int) {
	if err := o.deps.JobStore.UpdateCounters(ctx, jobID, processed, succeeded, failed); err != nil {
		o.deps.Logger.Warn("update job counters failed",
			zap.String("job_id", jobID), zap.Error(err))
	}
}
