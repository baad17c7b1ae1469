package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

func TestPageStore_PutGetHas(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPageStore()

	ok, err := store.Has(ctx, "debut")
	require.NoError(t, err)
	require.False(t, ok)

	page := scrape.Page{
		QuestID:   "debut",
		QuestName: "Debut",
		URL:       "https://escapefromtarkov.fandom.com/wiki/Debut",
		HTML:      "<html></html>",
		FetchedAt: time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, store.Put(ctx, page))

	ok, err = store.Has(ctx, "debut")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.Get(ctx, "debut")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, page.HTML, got.HTML)

	// Re-put replaces the row, never duplicates it.
	page.HTML = "<html>v2</html>"
	require.NoError(t, store.Put(ctx, page))
	got, err = store.Get(ctx, "debut")
	require.NoError(t, err)
	require.Equal(t, "<html>v2</html>", got.HTML)
}

func TestPageStore_MarkUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPageStore()
	require.NoError(t, store.Put(ctx, scrape.Page{QuestID: "debut"}))

	require.NoError(t, store.MarkUsed(ctx, "debut", "job-1"))
	got, err := store.Get(ctx, "debut")
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	require.Equal(t, "job-1", got.JobID)

	// Unknown quests are a no-op, not an error: best-effort by contract.
	require.NoError(t, store.MarkUsed(ctx, "missing", "job-1"))
}

func TestBlobStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewBlobStore()

	uri, err := store.PutObject(ctx, "pages/debut/abc.html", "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "mem://pages/debut/abc.html", uri)
	require.Equal(t, 1, store.Len())

	data, err := store.GetObject(ctx, "pages/debut/abc.html")
	require.NoError(t, err)
	require.Equal(t, []byte("<html></html>"), data)

	_, err = store.GetObject(ctx, "missing")
	require.Error(t, err)
}
