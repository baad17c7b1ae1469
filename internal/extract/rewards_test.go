package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

func TestClassifyRewards_OrderedRules(t *testing.T) {
	t.Parallel()

	r := ClassifyRewards([]string{
		"+1,750 EXP",
		"Prapor Rep +0.01",
		"15000 Roubles",
		"MP5 submachine gun",
	})

	require.NotNil(t, r.Experience)
	require.Equal(t, 1750, *r.Experience)
	require.Equal(t, []scrape.ReputationDelta{{Trader: "Prapor", Amount: 0.01}}, r.Reputation)
	require.Equal(t, []string{"15000 Roubles", "MP5 submachine gun"}, r.Other)
}

func TestClassifyRewards_LastExperienceWins(t *testing.T) {
	t.Parallel()

	r := ClassifyRewards([]string{"+800 EXP", "+1,200 EXP"})
	require.NotNil(t, r.Experience)
	require.Equal(t, 1200, *r.Experience)
}

func TestClassifyRewards_NumericNameNeverReputation(t *testing.T) {
	t.Parallel()

	// A purely numeric "name" is a price line, not a trader.
	r := ClassifyRewards([]string{"25,000 500"})
	require.Empty(t, r.Reputation)
	require.Equal(t, []string{"25,000 500"}, r.Other)
}

func TestClassifyRewards_NegativeReputation(t *testing.T) {
	t.Parallel()

	r := ClassifyRewards([]string{"Fence -0.02"})
	require.Equal(t, []scrape.ReputationDelta{{Trader: "Fence", Amount: -0.02}}, r.Reputation)
}

func TestQuestRewards_CollectsListParagraphAndTableLines(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
<h2>Rewards</h2>
<ul>
  <li>+2,500 EXP</li>
  <li>Therapist Rep +0.03</li>
</ul>
<p>Unlocks purchase of bandages</p>
<h2>Trivia</h2>
<ul><li>This line must not be collected.</li></ul>`)

	r := QuestRewards(doc)
	require.NotNil(t, r.Experience)
	require.Equal(t, 2500, *r.Experience)
	require.Equal(t, []scrape.ReputationDelta{{Trader: "Therapist", Amount: 0.03}}, r.Reputation)
	require.Equal(t, []string{"Unlocks purchase of bandages"}, r.Other)
}

func TestQuestRewards_AbsentHeading(t *testing.T) {
	t.Parallel()

	r := QuestRewards(parseDoc(t, `<h2>Objectives</h2><ul><li>Find the key</li></ul>`))
	require.Nil(t, r.Experience)
	require.Empty(t, r.Reputation)
	require.Empty(t, r.Other)
}
