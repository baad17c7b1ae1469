// Package match implements the fuzzy name oracle used to reconcile quests
// named inconsistently between the wiki and the upstream dataset.
package match

import "strings"

// Load-bearing constants. The residual and overlap thresholds were tuned
// against the real dataset; do not adjust without evidence from it.
const (
	// maxResidual is the longest non-overlapping remainder tolerated when one
	// normalized name contains the other.
	maxResidual = 5
	// minTokenOverlap is the token-set overlap ratio required for a match.
	minTokenOverlap = 0.70
	// minTokenLen filters out short fragments before token comparison.
	minTokenLen = 2
)

var stopWords = map[string]struct{}{
	"the":     {},
	"part":    {},
	"quest":   {},
	"mission": {},
	"task":    {},
}

// Names reports whether two quest names refer to the same quest. It is
// symmetric: Names(a, b) == Names(b, a).
func Names(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if containsWithResidual(na, nb) {
		return true
	}
	return tokenOverlap(na, nb) >= minTokenOverlap
}

// Normalize lowercases, maps non-alphanumeric runs to a single space, and
// collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			if b.Len() > 0 {
				pendingSpace = true
			}
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// containsWithResidual tolerates punctuation-only drift such as
// "Part 1" vs "Part-1": one side contains the other and the leftover
// characters (whitespace excluded) number at most maxResidual.
func containsWithResidual(na, nb string) bool {
	longer, shorter := na, nb
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	if !strings.Contains(longer, shorter) {
		return false
	}
	residual := strings.Replace(longer, shorter, "", 1)
	residual = strings.ReplaceAll(residual, " ", "")
	return len(residual) <= maxResidual
}

func tokenOverlap(na, nb string) float64 {
	ta := tokens(na)
	tb := tokens(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}
	denom := len(ta)
	if len(tb) > denom {
		denom = len(tb)
	}
	return float64(shared) / float64(denom)
}

func tokens(normalized string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		if len(tok) <= minTokenLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}
