// Package convert assembles extracted wiki data into the application-facing
// task records, reconciling names against the rest of the batch and the
// authoritative trader roster.
package convert

import (
	"time"

	"github.com/tarkovlens/questscraper/internal/match"
	"github.com/tarkovlens/questscraper/internal/scrape"
)

// Task converts one ExtractedQuest into the reconciled Task shape.
//
// Predecessor resolution is two-tier: link-based first (exact wiki-URL match
// against the batch, precise but not always present), then name-based via the
// fuzzy matcher for the shortfall, skipping names link resolution already
// claimed. The fallback only triggers when link resolution produced fewer
// matches than the raw predecessor-name list; the source heuristic used this
// exact inequality and it is preserved as-is. Predecessors that resolve to
// nothing in the batch are dropped silently — the wiki may reference quests
// outside the current scope.
func Task(q *scrape.ExtractedQuest, batch []*scrape.ExtractedQuest, roster []scrape.Trader, now time.Time) scrape.Task {
	t := scrape.Task{
		ID:           q.ID,
		Name:         q.Name,
		WikiURL:      q.URL,
		Trader:       resolveTrader(q.Trader, roster),
		Location:     q.Location,
		Kappa:        q.KappaRequired,
		Lightkeeper:  q.LightkeeperRequired,
		Reputation:   q.Reputation,
		OtherRewards: q.OtherRewards,
		ImageURL:     q.ImageURL,
		Objectives:   q.Objectives,
		GuideSteps:   q.GuideSteps,
		UpdatedAt:    now,
	}
	if q.Level != nil {
		t.Level = *q.Level
	}
	if q.Experience != nil {
		t.Experience = *q.Experience
	}
	t.Predecessors = resolvePredecessors(q, batch, roster)
	return t
}

func resolvePredecessors(q *scrape.ExtractedQuest, batch []*scrape.ExtractedQuest, roster []scrape.Trader) []scrape.TaskRef {
	var refs []scrape.TaskRef
	resolvedIDs := make(map[string]struct{})

	for _, link := range q.PreviousLinks {
		for _, other := range batch {
			if other.ID == q.ID || other.URL == "" || other.URL != link {
				continue
			}
			if _, dup := resolvedIDs[other.ID]; dup {
				break
			}
			resolvedIDs[other.ID] = struct{}{}
			refs = append(refs, taskRef(other, roster))
			break
		}
	}

	if len(refs) < len(q.PreviousNames) {
		for _, name := range q.PreviousNames {
			for _, other := range batch {
				if other.ID == q.ID {
					continue
				}
				if _, dup := resolvedIDs[other.ID]; dup {
					continue
				}
				if !match.Names(name, other.Name) {
					continue
				}
				resolvedIDs[other.ID] = struct{}{}
				refs = append(refs, taskRef(other, roster))
				break
			}
		}
	}
	return refs
}

func taskRef(q *scrape.ExtractedQuest, roster []scrape.Trader) scrape.TaskRef {
	return scrape.TaskRef{
		ID:     q.ID,
		Name:   q.Name,
		Trader: resolveTrader(q.Trader, roster).Name,
	}
}

// resolveTrader matches the extracted trader name against the authoritative
// roster. An unresolved trader keeps its wiki name with an empty id; output
// degrades, processing continues.
func resolveTrader(name string, roster []scrape.Trader) scrape.TraderRef {
	if name == "" {
		return scrape.TraderRef{}
	}
	for _, trader := range roster {
		if match.Names(name, trader.Name) {
			return scrape.TraderRef{ID: trader.ID, Name: trader.Name}
		}
	}
	return scrape.TraderRef{Name: name}
}
