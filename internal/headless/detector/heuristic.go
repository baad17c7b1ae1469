// Package detector decides when to promote a fetch to a headless renderer.
package detector

import (
	"bytes"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// Heuristic implements a handful of rule-based promotions. Wiki pages are
// served as static HTML, so promotion should be rare; the rules exist for the
// day the site swaps in a client-rendered shell.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

var contentMarkers = [][]byte{
	[]byte("mw-parser-output"),
	[]byte("infobox"),
}

// ShouldPromote decides whether a headless re-fetch is required.
func (h *Heuristic) ShouldPromote(probe scrape.FetchResult) bool {
	if probe.StatusCode != 200 {
		return false
	}
	body := probe.Body
	if len(body) == 0 {
		return true
	}
	for _, marker := range contentMarkers {
		if bytes.Contains(body, marker) {
			return false
		}
	}
	if len(body) < h.BodyLengthThreshold {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}
