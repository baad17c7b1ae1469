package diff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

func task(id string, level int, predecessors ...string) scrape.Task {
	t := scrape.Task{ID: id, Level: level}
	for _, name := range predecessors {
		t.Predecessors = append(t.Predecessors, scrape.TaskRef{ID: scrape.Slugify(name), Name: name})
	}
	return t
}

func TestCompare_NoPriors(t *testing.T) {
	t.Parallel()

	r := Compare(task("debut", 5), nil, nil)
	require.False(t, r.HasDifferences)
	require.Empty(t, r.Lines)
}

func TestCompare_LevelDrift(t *testing.T) {
	t.Parallel()

	prior := task("debut", 5)
	fresh := task("debut", 10)

	r := Compare(fresh, &prior, nil)
	require.True(t, r.HasDifferences)
	require.Equal(t, []string{
		"--- upstream debut",
		"- level: 5",
		"+ level: 10",
	}, r.Lines)
}

func TestCompare_PredecessorSetDrift(t *testing.T) {
	t.Parallel()

	prior := task("golden-swag", 12, "Debut", "Shortage")
	fresh := task("golden-swag", 12, "Shortage", "Luxurious Life")

	r := Compare(fresh, nil, &prior)
	require.True(t, r.HasDifferences)
	require.Equal(t, []string{
		"--- previous extraction golden-swag predecessors",
		"- Debut",
		"+ Luxurious Life",
	}, r.Lines)
}

func TestCompare_BothSources(t *testing.T) {
	t.Parallel()

	upstream := task("debut", 1)
	extraction := task("debut", 5, "Shortage")
	fresh := task("debut", 5)

	r := Compare(fresh, &upstream, &extraction)
	require.True(t, r.HasDifferences)
	// Upstream contributes a level diff, the previous extraction a
	// predecessor diff; both appear in source order.
	require.Equal(t, []string{
		"--- upstream debut",
		"- level: 1",
		"+ level: 5",
		"--- previous extraction debut predecessors",
		"- Shortage",
	}, r.Lines)
}

func TestCompare_IdenticalRecords(t *testing.T) {
	t.Parallel()

	prior := task("debut", 5, "Shortage")
	fresh := task("debut", 5, "Shortage")

	r := Compare(fresh, &prior, &prior)
	require.False(t, r.HasDifferences)
}

func TestReport_String(t *testing.T) {
	t.Parallel()

	r := Report{Lines: []string{"- a", "+ b"}}
	require.Equal(t, "- a\n+ b", r.String())
}
