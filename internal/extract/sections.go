package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// KnownMaps is the finite map-name list used to tag objectives. Matching is a
// case-insensitive substring search over the objective text.
var KnownMaps = []string{
	"Customs",
	"Factory",
	"Woods",
	"Shoreline",
	"Interchange",
	"Reserve",
	"The Lab",
	"Lighthouse",
	"Streets of Tarkov",
	"Ground Zero",
}

var optionalMarker = regexp.MustCompile(`(?i)\s*\(\s*optional\s*\)\s*`)

var bulletPrefix = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)

// Objectives extracts the ordered objective list for a quest. The "Objectives"
// heading is matched loosely but never binds to "Guide" headings. Each line is
// tagged optional when it carries the optional marker (the marker itself is
// stripped from the stored description) and tagged with known map names found
// in its text.
func Objectives(doc *goquery.Document, questID string) []scrape.Objective {
	heading := findHeading(doc, "objectives", "guide")
	if heading == nil {
		return nil
	}
	lines := sectionLines(heading, false)
	if len(lines) == 0 {
		return nil
	}
	out := make([]scrape.Objective, 0, len(lines))
	for i, line := range lines {
		optional := optionalMarker.MatchString(line)
		desc := strings.TrimSpace(optionalMarker.ReplaceAllString(line, " "))
		out = append(out, scrape.Objective{
			ID:          fmt.Sprintf("%s-obj-%d", questID, i+1),
			Category:    objectiveCategory(desc),
			Description: desc,
			Optional:    optional,
			Maps:        matchMaps(desc),
		})
	}
	return out
}

// GuideSteps extracts the ordered guide walkthrough. Unlike objectives, guide
// collection also stops at the first generic navigation box, which on these
// pages immediately follows the last real step.
func GuideSteps(doc *goquery.Document) []string {
	heading := findHeading(doc, "guide", "objectives")
	if heading == nil {
		return nil
	}
	return sectionLines(heading, true)
}

// sectionLines walks the heading's bounded siblings collecting list-item
// text, numbered/bulleted paragraph text, and table-row text.
func sectionLines(heading *goquery.Selection, stopAtNavbox bool) []string {
	var lines []string
	for _, sibling := range sectionSiblings(heading, stopAtNavbox) {
		switch goquery.NodeName(sibling) {
		case "ul", "ol":
			sibling.Find("li").Each(func(_ int, li *goquery.Selection) {
				lines = appendLine(lines, cellText(li))
			})
		case "p":
			text := cellText(sibling)
			if bulletPrefix.MatchString(text) {
				lines = appendLine(lines, bulletPrefix.ReplaceAllString(text, ""))
			}
		case "table":
			sibling.Find("tr").Each(func(_ int, tr *goquery.Selection) {
				lines = appendLine(lines, cellText(tr))
			})
		}
	}
	return lines
}

func matchMaps(text string) []string {
	lower := strings.ToLower(text)
	var maps []string
	for _, name := range KnownMaps {
		if strings.Contains(lower, strings.ToLower(name)) {
			maps = append(maps, name)
		}
	}
	return maps
}

// objectiveCategory buckets an objective by its leading verb. The wiki's
// phrasing drifts, so anything unrecognized lands in "custom".
func objectiveCategory(desc string) string {
	lower := strings.ToLower(desc)
	switch {
	case strings.HasPrefix(lower, "eliminate") || strings.HasPrefix(lower, "kill"):
		return "kill"
	case strings.HasPrefix(lower, "find") || strings.HasPrefix(lower, "obtain") ||
		strings.HasPrefix(lower, "locate"):
		return "find"
	case strings.HasPrefix(lower, "hand over") || strings.HasPrefix(lower, "turn in"):
		return "give"
	case strings.HasPrefix(lower, "mark") || strings.HasPrefix(lower, "place"):
		return "mark"
	case strings.HasPrefix(lower, "survive") || strings.HasPrefix(lower, "extract"):
		return "extract"
	case strings.HasPrefix(lower, "reach"):
		return "skill"
	default:
		return "custom"
	}
}
