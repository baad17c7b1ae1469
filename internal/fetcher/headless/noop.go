package headless

import (
	"context"
	"errors"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// Noop is a headless fetcher that always declines. Used when the headless
// subsystem is disabled so callers never need a nil check.
type Noop struct{}

// Fetch always fails; promotion falls back to the probe response.
func (Noop) Fetch(_ context.Context, _ string) (scrape.FetchResult, error) {
	return scrape.FetchResult{}, errors.New("headless fetching is disabled")
}
