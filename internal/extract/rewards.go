package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// Rewards is the classified output of the "Rewards" section.
type Rewards struct {
	Experience *int
	Reputation []scrape.ReputationDelta
	Other      []string
}

var (
	expPattern  = regexp.MustCompile(`([+-]?\d{1,3}(?:,\d{3})*|\d+)\s*EXP\b`)
	repPattern  = regexp.MustCompile(`(?i)^(.+?)\s+(?:rep\s+)?([+-]?\d+(?:\.\d+)?)\s*(?:rep)?$`)
	numericOnly = regexp.MustCompile(`^[+-]?[\d.,\s]+$`)
)

// QuestRewards collects candidate reward lines beneath the "Rewards" heading
// (list items, paragraphs, table cells) and classifies each with an ordered
// rule set: experience first, reputation second, everything else verbatim.
// A line claimed by an earlier rule is never reclassified; for experience the
// last matching line wins.
func QuestRewards(doc *goquery.Document) Rewards {
	heading := findHeading(doc, "rewards")
	if heading == nil {
		return Rewards{}
	}
	var lines []string
	for _, sibling := range sectionSiblings(heading, false) {
		name := goquery.NodeName(sibling)
		switch name {
		case "ul", "ol":
			sibling.Find("li").Each(func(_ int, li *goquery.Selection) {
				lines = appendLine(lines, cellText(li))
			})
		case "p":
			lines = appendLine(lines, cellText(sibling))
		case "table":
			sibling.Find("td").Each(func(_ int, td *goquery.Selection) {
				lines = appendLine(lines, cellText(td))
			})
		default:
			sibling.Find("li").Each(func(_ int, li *goquery.Selection) {
				lines = appendLine(lines, cellText(li))
			})
		}
	}
	return ClassifyRewards(lines)
}

func appendLine(lines []string, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return lines
	}
	return append(lines, text)
}

// ClassifyRewards applies the ordered rule set to the given lines.
func ClassifyRewards(lines []string) Rewards {
	var r Rewards
	for _, line := range lines {
		if exp, ok := parseExperience(line); ok {
			// Last experience line wins when a section repeats it.
			r.Experience = &exp
			continue
		}
		if delta, ok := parseReputation(line); ok {
			r.Reputation = append(r.Reputation, delta)
			continue
		}
		r.Other = append(r.Other, line)
	}
	return r
}

func parseExperience(line string) (int, bool) {
	m := expPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(strings.TrimPrefix(m[1], "+"), ",", "")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseReputation(line string) (scrape.ReputationDelta, bool) {
	m := repPattern.FindStringSubmatch(line)
	if m == nil {
		return scrape.ReputationDelta{}, false
	}
	name := strings.TrimSpace(m[1])
	if name == "" || numericOnly.MatchString(name) {
		return scrape.ReputationDelta{}, false
	}
	amount, err := strconv.ParseFloat(strings.TrimPrefix(m[2], "+"), 64)
	if err != nil {
		return scrape.ReputationDelta{}, false
	}
	return scrape.ReputationDelta{Trader: name, Amount: amount}, true
}
