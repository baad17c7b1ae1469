package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// PageStore persists raw wiki pages in the wiki_pages table.
//
// Schema:
//
//	CREATE TABLE wiki_pages (
//		quest_id     TEXT PRIMARY KEY,
//		quest_name   TEXT NOT NULL,
//		url          TEXT NOT NULL,
//		html         TEXT NOT NULL,
//		content_hash TEXT,
//		blob_uri     TEXT,
//		fetched_at   TIMESTAMPTZ NOT NULL,
//		last_used_at TIMESTAMPTZ,
//		job_id       TEXT
//	);
type PageStore struct {
	pool Pool
}

// NewPageStore constructs a PageStore over an existing pool.
func NewPageStore(pool Pool) (*PageStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PageStore{pool: pool}, nil
}

// Has reports whether a page row exists for the quest.
func (s *PageStore) Has(ctx context.Context, questID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wiki_pages WHERE quest_id = $1)`, questID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query page existence: %w", err)
	}
	return exists, nil
}

// Get returns the cached page, or nil when absent.
func (s *PageStore) Get(ctx context.Context, questID string) (*scrape.Page, error) {
	var page scrape.Page
	err := s.pool.QueryRow(ctx, `
SELECT quest_id, quest_name, url, html, content_hash, blob_uri, fetched_at, last_used_at, job_id
FROM wiki_pages WHERE quest_id = $1`, questID,
	).Scan(
		&page.QuestID,
		&page.QuestName,
		&page.URL,
		&page.HTML,
		&page.ContentHash,
		&page.BlobURI,
		&page.FetchedAt,
		&page.LastUsedAt,
		&page.JobID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}
	return &page, nil
}

// Put upserts the page row keyed by quest id.
func (s *PageStore) Put(ctx context.Context, page scrape.Page) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO wiki_pages (quest_id, quest_name, url, html, content_hash, blob_uri, fetched_at, last_used_at, job_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (quest_id) DO UPDATE SET
	quest_name = EXCLUDED.quest_name,
	url = EXCLUDED.url,
	html = EXCLUDED.html,
	content_hash = EXCLUDED.content_hash,
	blob_uri = EXCLUDED.blob_uri,
	fetched_at = EXCLUDED.fetched_at,
	job_id = EXCLUDED.job_id`,
		page.QuestID,
		page.QuestName,
		page.URL,
		page.HTML,
		page.ContentHash,
		page.BlobURI,
		page.FetchedAt,
		page.LastUsedAt,
		page.JobID,
	)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

// MarkUsed stamps last_used_at and the owning job. Best-effort by contract;
// callers swallow the error.
func (s *PageStore) MarkUsed(ctx context.Context, questID, jobID string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE wiki_pages SET last_used_at = NOW(), job_id = COALESCE(NULLIF($2, ''), job_id)
WHERE quest_id = $1`, questID, jobID)
	if err != nil {
		return fmt.Errorf("mark page used: %w", err)
	}
	return nil
}
