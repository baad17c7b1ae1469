package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// headingText returns the title of a heading element, preferring the
// mw-headline span and stripping the trailing "[edit]" affordance.
func headingText(s *goquery.Selection) string {
	if span := s.Find("span.mw-headline").First(); span.Length() > 0 {
		return strings.TrimSpace(span.Text())
	}
	text := strings.TrimSpace(s.Text())
	return strings.TrimSpace(strings.TrimSuffix(text, "[edit]"))
}

func headingLevel(name string) int {
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return int(name[1] - '0')
	}
	return 0
}

// findHeading locates the first h2-h4 whose title matches target: either an
// exact case-insensitive match, or a containment match provided none of the
// excluded words appear. The exclusions keep near-neighbors apart
// ("Objectives" must never bind to a "Guide" heading and vice versa).
func findHeading(doc *goquery.Document, target string, excluded ...string) *goquery.Selection {
	target = strings.ToLower(target)
	var found *goquery.Selection
	doc.Find("h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		title := strings.ToLower(headingText(h))
		if title == "" {
			return true
		}
		if title != target {
			if !strings.Contains(title, target) {
				return true
			}
			for _, word := range excluded {
				if strings.Contains(title, strings.ToLower(word)) {
					return true
				}
			}
		}
		found = h
		return false
	})
	return found
}

// sectionSiblings collects the heading's following siblings up to (not
// including) the first heading of equal-or-shallower depth. When stopAtNavbox
// is set, an element recognized as a generic navigation box also terminates
// the section.
func sectionSiblings(heading *goquery.Selection, stopAtNavbox bool) []*goquery.Selection {
	level := headingLevel(goquery.NodeName(heading))
	var out []*goquery.Selection
	heading.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := goquery.NodeName(s)
		if l := headingLevel(name); l > 0 && l <= level {
			return false
		}
		if stopAtNavbox && isNavbox(s) {
			return false
		}
		out = append(out, s)
		return true
	})
	return out
}

func isNavbox(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	class = strings.ToLower(class)
	return strings.Contains(class, "navbox") || strings.Contains(class, "va-navbox")
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
