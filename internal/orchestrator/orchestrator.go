// Package orchestrator runs scrape jobs: list discovery, per-quest fetch and
// extraction, reconciliation, and persistence, under the job state machine
// running -> completed | failed.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/tarkovlens/questscraper/internal/extract"
	"github.com/tarkovlens/questscraper/internal/policy/ratelimit"
	"github.com/tarkovlens/questscraper/internal/progress"
	"github.com/tarkovlens/questscraper/internal/scrape"
)

// Upstream supplies the authoritative trader roster and prior task records.
type Upstream interface {
	Roster(ctx context.Context) ([]scrape.Trader, error)
	Quests(ctx context.Context) ([]scrape.Task, error)
}

// Config carries run-level settings.
type Config struct {
	// ListURL is the default quest index page.
	ListURL string
	// BaseURL is the wiki origin used to resolve relative links.
	BaseURL string
	// Delay is the minimum spacing between live fetches (default 1.5s).
	Delay time.Duration
	// Concurrency bounds the cached-mode worker pool (default 8).
	Concurrency int
	// Topic names the completed-record publish target.
	Topic string
	// HeadlessEnabled allows promotion to the headless fetcher.
	HeadlessEnabled bool
}

// Deps are the collaborators a run needs. Fetcher and the stores are
// required; the rest degrade gracefully when nil.
type Deps struct {
	Fetcher   scrape.Fetcher
	Headless  scrape.Fetcher
	Detector  scrape.HeadlessDetector
	PageStore scrape.PageStore
	JobStore  scrape.JobStore
	TaskStore scrape.TaskStore
	BlobStore scrape.BlobStore
	Publisher scrape.Publisher
	Upstream  Upstream
	Hasher    scrape.Hasher
	Clock     scrape.Clock
	IDs       scrape.IDGenerator
	Emitter   progress.Emitter
	Logger    *zap.Logger
}

// Orchestrator owns job execution. One instance serves all runs.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	limiter *ratelimit.Limiter
}

// New validates dependencies and returns an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if deps.PageStore == nil || deps.JobStore == nil || deps.TaskStore == nil {
		return nil, fmt.Errorf("page, job, and task stores are required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.IDs == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 1500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		limiter: ratelimit.New(ratelimit.Config{
			MinInterval: cfg.Delay,
			Burst:       1,
		}),
	}, nil
}

// RunOptions are per-job knobs supplied at submission time.
type RunOptions struct {
	// ListURL overrides the configured index page when non-empty.
	ListURL string
	// CachedOnly runs against the page store without live fetches.
	CachedOnly bool
}

// Start creates the job row and launches the batch in the background. The
// returned id is immediately queryable; the run itself is fire-and-forget.
func (o *Orchestrator) Start(ctx context.Context, opts RunOptions) (string, error) {
	jobID, err := o.deps.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := o.deps.Clock.Now()
	job := scrape.Job{
		ID:        jobID,
		Status:    scrape.JobStatusRunning,
		StartedAt: now,
	}
	if err := o.deps.JobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	o.emit(progress.Event{JobID: jobID, TS: now, Stage: progress.StageJobStart})

	// The caller's request context ends when the response is written; the
	// batch keeps its own lifetime.
	go o.run(context.WithoutCancel(ctx), jobID, opts)

	return jobID, nil
}

// TestPage runs the full single-page pipeline for one URL and returns the
// raw extraction. Nothing is persisted.
func (o *Orchestrator) TestPage(ctx context.Context, url string) (*scrape.ExtractedQuest, error) {
	res, err := o.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	quest, err := extract.Quest(res.Body, "", url, o.deps.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}
	return quest, nil
}

// ListPreview returns the quest index entries without starting a job.
func (o *Orchestrator) ListPreview(ctx context.Context, url string) ([]scrape.ListEntry, error) {
	if url == "" {
		url = o.cfg.ListURL
	}
	return o.fetchList(ctx, url)
}

func (o *Orchestrator) fetchList(ctx context.Context, url string) ([]scrape.ListEntry, error) {
	res, err := o.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch list page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("parse list page: %w", err)
	}
	return extract.List(doc, o.cfg.BaseURL), nil
}

// fetch retrieves one URL under the rate limiter, promoting to the headless
// fetcher when the plain response looks like a script shell.
func (o *Orchestrator) fetch(ctx context.Context, url string) (scrape.FetchResult, error) {
	if err := o.limiter.Wait(ctx, url); err != nil {
		return scrape.FetchResult{}, err
	}
	res, err := o.deps.Fetcher.Fetch(ctx, url)
	if err != nil {
		return scrape.FetchResult{}, err
	}
	if o.cfg.HeadlessEnabled && o.deps.Headless != nil && o.deps.Detector != nil &&
		o.deps.Detector.ShouldPromote(res) {
		rendered, rerr := o.deps.Headless.Fetch(ctx, url)
		if rerr != nil {
			o.deps.Logger.Warn("headless promotion failed, using plain fetch",
				zap.String("url", url), zap.Error(rerr))
			return res, nil
		}
		return rendered, nil
	}
	return res, nil
}

func (o *Orchestrator) emit(evt progress.Event) {
	if o.deps.Emitter != nil {
		o.deps.Emitter.Emit(evt)
	}
}
