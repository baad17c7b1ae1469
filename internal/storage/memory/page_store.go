// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// PageStore keeps raw pages in a map keyed by quest id.
type PageStore struct {
	mu    sync.RWMutex
	pages map[string]scrape.Page
}

// NewPageStore constructs a PageStore.
func NewPageStore() *PageStore {
	return &PageStore{pages: make(map[string]scrape.Page)}
}

// Has reports whether a page has been fetched for the quest.
func (s *PageStore) Has(_ context.Context, questID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pages[questID]
	return ok, nil
}

// Get returns the cached page, or nil when absent.
func (s *PageStore) Get(_ context.Context, questID string) (*scrape.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[questID]
	if !ok {
		return nil, nil
	}
	return &page, nil
}

// Put upserts the page row.
func (s *PageStore) Put(_ context.Context, page scrape.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[page.QuestID] = page
	return nil
}

// MarkUsed stamps the page's last-used time and owning job.
func (s *PageStore) MarkUsed(_ context.Context, questID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[questID]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	page.LastUsedAt = &now
	if jobID != "" {
		page.JobID = jobID
	}
	s.pages[questID] = page
	return nil
}
