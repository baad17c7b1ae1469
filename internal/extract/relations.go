package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type relationMode int

const (
	modeNone relationMode = iota
	modePrevious
	modeLeadsTo
)

const (
	labelPrevious = "previous"
	labelLeadsTo  = "leads to"
)

// Relations holds the raw predecessor/successor data read from the page's
// related-quests box. Links are kept alongside names where available because
// links survive minor name-text drift.
type Relations struct {
	PreviousNames []string
	PreviousLinks []string
	LeadsTo       []string
}

// RelatedQuests extracts predecessor and successor names from the "Related
// Quests" box. Collection under a label runs until the opposing label or the
// next top-level heading, whichever comes first; stopping at any label would
// corrupt successor extraction when both labels share a cell. When a label has
// no links, the same boundary rule delimits a plain-text fallback.
func RelatedQuests(doc *goquery.Document, baseURL string) Relations {
	heading := findHeading(doc, "related quests")
	if heading == nil {
		heading = findHeading(doc, "related tasks")
	}
	if heading == nil {
		return Relations{}
	}

	w := &relationWalker{baseURL: baseURL}
	for _, sibling := range sectionSiblings(heading, false) {
		for _, node := range sibling.Nodes {
			w.walk(node)
		}
	}
	return w.result()
}

type relationWalker struct {
	baseURL   string
	mode      relationMode
	prevLinks []string
	prevNames []string
	leadNames []string
	prevText  strings.Builder
	leadText  strings.Builder
}

func (w *relationWalker) walk(n *html.Node) {
	switch {
	case n.Type == html.TextNode:
		w.consumeText(n.Data)
		return
	case n.Type == html.ElementNode && n.Data == "a":
		w.consumeLink(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

// consumeText switches modes when a label appears and accumulates the
// in-between text as the plain-text fallback for the active label. A single
// text chunk may carry both labels.
func (w *relationWalker) consumeText(text string) {
	for text != "" {
		label, at := nextLabel(text)
		if at < 0 {
			w.appendText(text)
			return
		}
		w.appendText(text[:at])
		switch label {
		case labelPrevious:
			w.mode = modePrevious
		case labelLeadsTo:
			w.mode = modeLeadsTo
		}
		text = text[at+len(label):]
	}
}

func nextLabel(text string) (string, int) {
	lower := strings.ToLower(text)
	pi := strings.Index(lower, labelPrevious)
	li := strings.Index(lower, labelLeadsTo)
	switch {
	case pi < 0 && li < 0:
		return "", -1
	case li < 0 || (pi >= 0 && pi < li):
		return labelPrevious, pi
	default:
		return labelLeadsTo, li
	}
}

func (w *relationWalker) appendText(text string) {
	switch w.mode {
	case modePrevious:
		w.prevText.WriteString(text)
	case modeLeadsTo:
		w.leadText.WriteString(text)
	}
}

func (w *relationWalker) consumeLink(n *html.Node) {
	name := strings.TrimSpace(nodeText(n))
	if name == "" {
		return
	}
	href := ""
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = attr.Val
			break
		}
	}
	switch w.mode {
	case modePrevious:
		w.prevNames = append(w.prevNames, name)
		if abs := resolveURL(href, w.baseURL); abs != "" {
			w.prevLinks = append(w.prevLinks, abs)
		}
	case modeLeadsTo:
		w.leadNames = append(w.leadNames, name)
	}
}

func (w *relationWalker) result() Relations {
	r := Relations{
		PreviousNames: w.prevNames,
		PreviousLinks: w.prevLinks,
		LeadsTo:       w.leadNames,
	}
	if len(r.PreviousNames) == 0 {
		r.PreviousNames = splitNameList(w.prevText.String())
	}
	if len(r.LeadsTo) == 0 {
		r.LeadsTo = splitNameList(w.leadText.String())
	}
	return r
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func splitNameList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		name := strings.Trim(strings.TrimSpace(part), ":.")
		name = strings.TrimSpace(name)
		if name != "" && name != "-" {
			out = append(out, name)
		}
	}
	return out
}

var requirementPhrase = regexp.MustCompile(
	`(?i)\b(?:accept(?:ed|ing)?|complete(?:d)?)\s+(?:the\s+)?(?:quests?\s+)?(.+)`)

// RequirementPredecessors runs the secondary predecessor pass over the
// "Requirements" section, recovering quests the related box omits from
// "accept <name>" / "complete <name>" phrases. A phrase's first link is
// preferred over the prose tail.
func RequirementPredecessors(doc *goquery.Document) []string {
	heading := findHeading(doc, "requirements")
	if heading == nil {
		return nil
	}
	var out []string
	for _, sibling := range sectionSiblings(heading, false) {
		candidates := sibling.Find("li, p")
		if candidates.Length() == 0 && (goquery.NodeName(sibling) == "p" || goquery.NodeName(sibling) == "li") {
			candidates = sibling
		}
		candidates.Each(func(_ int, item *goquery.Selection) {
			text := cellText(item)
			m := requirementPhrase.FindStringSubmatch(text)
			if m == nil {
				return
			}
			if link := item.Find("a").First(); link.Length() > 0 && cellText(link) != "" {
				out = append(out, cellText(link))
				return
			}
			name := strings.TrimSpace(m[1])
			if cut := strings.IndexAny(name, ".;"); cut >= 0 {
				name = strings.TrimSpace(name[:cut])
			}
			if name != "" {
				out = append(out, name)
			}
		})
	}
	return out
}

// MergePredecessors appends extras onto base, deduplicating by exact name.
func MergePredecessors(base, extras []string) []string {
	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base)+len(extras))
	for _, name := range base {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range extras {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
