package scrape

import "strings"

// Slugify derives the stable quest identifier from a display name: lowercase,
// runs of non-alphanumerics collapsed to a single hyphen, leading/trailing
// hyphens trimmed. The same display name always maps to the same id, and
// names differing only in case or punctuation converge.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		}
		if pendingSep {
			b.WriteByte('-')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
