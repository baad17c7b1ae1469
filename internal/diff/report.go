// Package diff produces operator-facing change reports comparing a freshly
// extracted task against prior data. Reports feed job logs only; they never
// influence what gets persisted.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// Report is a unified-diff-style summary of field drift between sources.
type Report struct {
	Lines          []string
	HasDifferences bool
}

// Compare builds a report for the fresh record against the prior upstream
// record and the previous extraction, either of which may be nil. Only the
// level and the predecessor-name set are compared; those are the fields whose
// drift operators act on.
func Compare(fresh scrape.Task, priorUpstream, priorExtraction *scrape.Task) Report {
	var r Report
	r.compareAgainst("upstream", fresh, priorUpstream)
	r.compareAgainst("previous extraction", fresh, priorExtraction)
	return r
}

func (r *Report) compareAgainst(source string, fresh scrape.Task, prior *scrape.Task) {
	if prior == nil {
		return
	}
	if prior.Level != fresh.Level {
		r.add(fmt.Sprintf("--- %s %s", source, prior.ID))
		r.add(fmt.Sprintf("- level: %d", prior.Level))
		r.add(fmt.Sprintf("+ level: %d", fresh.Level))
	}
	before := predecessorNames(prior)
	after := predecessorNames(&fresh)
	removed := setDifference(before, after)
	added := setDifference(after, before)
	if len(removed) == 0 && len(added) == 0 {
		return
	}
	r.add(fmt.Sprintf("--- %s %s predecessors", source, prior.ID))
	for _, name := range removed {
		r.add("- " + name)
	}
	for _, name := range added {
		r.add("+ " + name)
	}
}

func (r *Report) add(line string) {
	r.Lines = append(r.Lines, line)
	r.HasDifferences = true
}

// String renders the report for log details.
func (r Report) String() string {
	return strings.Join(r.Lines, "\n")
}

func predecessorNames(t *scrape.Task) map[string]struct{} {
	out := make(map[string]struct{}, len(t.Predecessors))
	for _, ref := range t.Predecessors {
		out[ref.Name] = struct{}{}
	}
	return out
}

func setDifference(a, b map[string]struct{}) []string {
	var out []string
	for name := range a {
		if _, ok := b[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
