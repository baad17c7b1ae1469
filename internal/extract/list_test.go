package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

const baseURL = "https://escapefromtarkov.fandom.com"

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestList_GroupsRowsByOwner(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
<table>
  <tr>
    <th><a href="/wiki/Prapor">Prapor</a></th>
    <td>
      <a href="/wiki/Debut">Debut</a>
      <a href="/wiki/Shootout_Picture">Shootout Picture</a>
    </td>
  </tr>
  <tr>
    <th>Therapist</th>
    <td><a href="/wiki/Shortage">Shortage</a></td>
  </tr>
</table>`)

	entries := List(doc, baseURL)
	require.Equal(t, []scrape.ListEntry{
		{Name: "Debut", URL: baseURL + "/wiki/Debut", Trader: "Prapor"},
		{Name: "Shootout Picture", URL: baseURL + "/wiki/Shootout_Picture", Trader: "Prapor"},
		{Name: "Shortage", URL: baseURL + "/wiki/Shortage", Trader: "Therapist"},
	}, entries)
}

func TestList_SkipsOwnerSelfLink(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
<table>
  <tr>
    <th><a href="/wiki/Prapor">Prapor</a></th>
    <td>
      <a href="/wiki/Prapor">Prapor</a>
      <a href="/wiki/Debut">Debut</a>
    </td>
  </tr>
</table>`)

	entries := List(doc, baseURL)
	require.Len(t, entries, 1)
	require.Equal(t, "Debut", entries[0].Name)
}

func TestList_SkipsSentinelOwners(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
<table>
  <tr><th>Miscellaneous</th><td><a href="/wiki/Something">Something</a></td></tr>
  <tr><th>Event Quests</th><td><a href="/wiki/Seasonal">Seasonal</a></td></tr>
  <tr><th>Skier</th><td><a href="/wiki/Supplier">Supplier</a></td></tr>
</table>`)

	entries := List(doc, baseURL)
	require.Len(t, entries, 1)
	require.Equal(t, "Skier", entries[0].Trader)
}

func TestList_DeduplicatesByURL(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `
<table>
  <tr>
    <th>Prapor</th>
    <td>
      <a href="/wiki/Debut">Debut</a>
      <a href="/wiki/Debut">Debut (alternate anchor)</a>
    </td>
  </tr>
</table>`)

	entries := List(doc, baseURL)
	require.Len(t, entries, 1)
}

func TestList_EmptyOnUnrecognizedPage(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<p>This page has no quest navigation.</p>`)
	require.Empty(t, List(doc, baseURL))
}
