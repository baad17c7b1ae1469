package convert

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

var roster = []scrape.Trader{
	{ID: "trader-prapor", Name: "Prapor"},
	{ID: "trader-therapist", Name: "Therapist"},
}

func extracted(id, name, url string, mutate func(*scrape.ExtractedQuest)) *scrape.ExtractedQuest {
	q := &scrape.ExtractedQuest{ID: id, Name: name, URL: url, Trader: "Prapor"}
	if mutate != nil {
		mutate(q)
	}
	return q
}

func TestTask_ResolvesPredecessorsByLinkFirst(t *testing.T) {
	t.Parallel()

	a := extracted("debut", "Debut", "https://wiki.example/wiki/Debut", nil)
	b := extracted("shortage", "Shortage", "https://wiki.example/wiki/Shortage", func(q *scrape.ExtractedQuest) {
		q.PreviousNames = []string{"Debut"}
		q.PreviousLinks = []string{"https://wiki.example/wiki/Debut"}
	})
	batch := []*scrape.ExtractedQuest{a, b}

	task := Task(b, batch, roster, time.Now())
	require.Equal(t, []scrape.TaskRef{
		{ID: "debut", Name: "Debut", Trader: "Prapor"},
	}, task.Predecessors)
}

func TestTask_NameFallbackCoversLinkShortfall(t *testing.T) {
	t.Parallel()

	a := extracted("debut", "Debut", "https://wiki.example/wiki/Debut", nil)
	b := extracted("shortage", "Shortage", "https://wiki.example/wiki/Shortage", nil)
	c := extracted("golden-swag", "Golden Swag", "https://wiki.example/wiki/Golden_Swag", func(q *scrape.ExtractedQuest) {
		// One predecessor carries a link, the other only a name.
		q.PreviousNames = []string{"Debut", "Shortage"}
		q.PreviousLinks = []string{"https://wiki.example/wiki/Debut"}
	})
	batch := []*scrape.ExtractedQuest{a, b, c}

	task := Task(c, batch, roster, time.Now())
	require.Len(t, task.Predecessors, 2)
	require.Equal(t, "debut", task.Predecessors[0].ID)
	require.Equal(t, "shortage", task.Predecessors[1].ID)
}

func TestTask_NameFallbackSkippedWhenLinksCoverAllNames(t *testing.T) {
	t.Parallel()

	a := extracted("debut", "Debut", "https://wiki.example/wiki/Debut", nil)
	// A near-duplicate name that the fuzzy matcher would bind to; link
	// resolution already satisfied the name list, so it must stay out.
	decoy := extracted("debut-2", "Debut - Part 2", "https://wiki.example/wiki/Debut_2", nil)
	b := extracted("shortage", "Shortage", "https://wiki.example/wiki/Shortage", func(q *scrape.ExtractedQuest) {
		q.PreviousNames = []string{"Debut"}
		q.PreviousLinks = []string{"https://wiki.example/wiki/Debut"}
	})
	batch := []*scrape.ExtractedQuest{a, decoy, b}

	task := Task(b, batch, roster, time.Now())
	require.Equal(t, []string{"debut"}, predecessorIDs(task))
}

func TestTask_FuzzyNameResolution(t *testing.T) {
	t.Parallel()

	a := extracted("the-punisher-part-1", "The Punisher - Part 1", "https://wiki.example/wiki/Punisher1", nil)
	b := extracted("the-punisher-part-2", "The Punisher - Part 2", "https://wiki.example/wiki/Punisher2", func(q *scrape.ExtractedQuest) {
		// Name-only reference with punctuation drift.
		q.PreviousNames = []string{"Punisher Part 1"}
	})
	batch := []*scrape.ExtractedQuest{a, b}

	task := Task(b, batch, roster, time.Now())
	require.Equal(t, []string{"the-punisher-part-1"}, predecessorIDs(task))
}

func TestTask_UnresolvablePredecessorDropped(t *testing.T) {
	t.Parallel()

	b := extracted("shortage", "Shortage", "https://wiki.example/wiki/Shortage", func(q *scrape.ExtractedQuest) {
		q.PreviousNames = []string{"Some Quest Outside The Batch"}
	})

	task := Task(b, []*scrape.ExtractedQuest{b}, roster, time.Now())
	require.Empty(t, task.Predecessors)
}

func TestTask_TraderResolution(t *testing.T) {
	t.Parallel()

	resolved := extracted("debut", "Debut", "", func(q *scrape.ExtractedQuest) { q.Trader = "prapor" })
	task := Task(resolved, nil, roster, time.Now())
	require.Equal(t, scrape.TraderRef{ID: "trader-prapor", Name: "Prapor"}, task.Trader)

	unknown := extracted("debut", "Debut", "", func(q *scrape.ExtractedQuest) { q.Trader = "Mechanic" })
	task = Task(unknown, nil, roster, time.Now())
	require.Equal(t, scrape.TraderRef{Name: "Mechanic"}, task.Trader)

	missing := extracted("debut", "Debut", "", func(q *scrape.ExtractedQuest) { q.Trader = "" })
	task = Task(missing, nil, roster, time.Now())
	require.Equal(t, scrape.TraderRef{}, task.Trader)
}

func TestTask_CopiesScalarFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	level := 12
	exp := 4100
	kappa := true
	q := extracted("debut", "Debut", "https://wiki.example/wiki/Debut", func(q *scrape.ExtractedQuest) {
		q.Level = &level
		q.Experience = &exp
		q.KappaRequired = &kappa
		q.Location = "Customs"
		q.OtherRewards = []string{"45000 Roubles"}
	})

	got := Task(q, nil, roster, now)
	want := scrape.Task{
		ID:           "debut",
		Name:         "Debut",
		WikiURL:      "https://wiki.example/wiki/Debut",
		Trader:       scrape.TraderRef{ID: "trader-prapor", Name: "Prapor"},
		Location:     "Customs",
		Level:        12,
		Experience:   4100,
		Kappa:        &kappa,
		OtherRewards: []string{"45000 Roubles"},
		UpdatedAt:    now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("task mismatch (-want +got):\n%s", diff)
	}
}

func predecessorIDs(task scrape.Task) []string {
	ids := make([]string, 0, len(task.Predecessors))
	for _, ref := range task.Predecessors {
		ids = append(ids, ref.ID)
	}
	return ids
}
