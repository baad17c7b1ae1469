package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

func result(status int, body string) scrape.FetchResult {
	return scrape.FetchResult{StatusCode: status, Body: []byte(body)}
}

func TestHeuristic_ShouldPromote(t *testing.T) {
	t.Parallel()

	longFiller := strings.Repeat("lorem ipsum ", 400)

	tests := []struct {
		name  string
		probe scrape.FetchResult
		want  bool
	}{
		{
			name:  "non-200 never promotes",
			probe: result(404, ""),
			want:  false,
		},
		{
			name:  "empty body promotes",
			probe: result(200, ""),
			want:  true,
		},
		{
			name:  "wiki content marker suppresses promotion",
			probe: result(200, `<div class="mw-parser-output">quest text</div>`),
			want:  false,
		},
		{
			name:  "infobox marker suppresses promotion even when short",
			probe: result(200, `<table class="infobox"></table>`),
			want:  false,
		},
		{
			name:  "short body without content promotes",
			probe: result(200, `<html><body><script src="app.js"></script></body></html>`),
			want:  true,
		},
		{
			name:  "long body with spa root promotes",
			probe: result(200, `<div id="root"></div>`+longFiller),
			want:  true,
		},
		{
			name:  "long plain body stays",
			probe: result(200, longFiller),
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHeuristic(0)
			require.Equal(t, tt.want, h.ShouldPromote(tt.probe))
		})
	}
}

func TestNewHeuristic_DefaultThreshold(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2048, NewHeuristic(0).BodyLengthThreshold)
	require.Equal(t, 512, NewHeuristic(512).BodyLengthThreshold)
}
