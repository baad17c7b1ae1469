package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNames_WorkedExamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"exact after normalize", "Debut", "debut", true},
		{"punctuation drift", "The Punisher - Part 1", "The Punisher Part 1", true},
		// Residual "part1" is exactly 5 chars after whitespace stripping,
		// sitting right on the containment boundary.
		{"containment at residual boundary", "Bad Rep Evidence", "Bad Rep Evidence - Part 1", true},
		{"residual and overlap both fail", "Cargo", "Cargo Delivery Run", false},
		{"trailing plural within residual", "Shootout Picture Frame", "Shootout Picture Frames", true},
		{"unrelated names", "Shootout Picture", "Totally Different Quest", false},
		{"empty left", "", "Debut", false},
		{"empty right", "Debut", "", false},
		{"both empty", "", "", false},
		{"stop words only", "The Quest", "The Task", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Names(tc.a, tc.b))
		})
	}
}

func TestNames_Symmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"Debut", "debut"},
		{"Bad Rep Evidence", "Bad Rep Evidence - Part 1"},
		{"Shootout Picture", "Totally Different Quest"},
		{"The Punisher - Part 1", "Punisher Part 1"},
		{"", "Debut"},
	}
	for _, p := range pairs {
		require.Equal(t, Names(p[0], p[1]), Names(p[1], p[0]),
			"Names(%q, %q) must be symmetric", p[0], p[1])
	}
}

func TestNames_TokenOverlapThreshold(t *testing.T) {
	t.Parallel()

	// Four meaningful tokens on each side, three shared: 3/4 = 0.75 >= 0.70.
	require.True(t, Names("Hunting Trip Evidence Chase", "Hunting Trip Evidence Hunt"))
	// Two shared of four: 2/4 = 0.50 < 0.70.
	require.False(t, Names("Hunting Trip Evidence Chase", "Hunting Trip Paperwork Filing"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"The Punisher - Part 1", "the punisher part 1"},
		{"  spaced   out  ", "spaced out"},
		{"ALLCAPS", "allcaps"},
		{"---", ""},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, Normalize(tc.input))
	}
}
