package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// InfoboxValue reads one key/value pair out of the page infobox: the label
// cell's trimmed text must equal label (case-insensitive); the value comes
// from the adjacent content cell in the same table row, preferring the text of
// its first internal link over raw prose. A lone "-" means absent.
func InfoboxValue(doc *goquery.Document, label string) string {
	var value string
	doc.Find("table th, table td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if !strings.EqualFold(cellText(cell), label) {
			return true
		}
		content := cell.NextFiltered("td, th").First()
		if content.Length() == 0 {
			return true
		}
		if link := content.Find("a").First(); link.Length() > 0 && cellText(link) != "" {
			value = cellText(link)
		} else {
			value = cellText(content)
		}
		return false
	})
	if value == "-" {
		return ""
	}
	return value
}

// LevelRequirement parses the numeric level out of the infobox, tolerating
// prose like "Level 15" or a bare "15".
func LevelRequirement(doc *goquery.Document) *int {
	raw := InfoboxValue(doc, "Required Level")
	if raw == "" {
		raw = InfoboxValue(doc, "Level")
	}
	if raw == "" {
		return nil
	}
	for _, field := range strings.Fields(raw) {
		if n, err := strconv.Atoi(strings.Trim(field, "+.")); err == nil {
			return &n
		}
	}
	return nil
}

// Flag extracts a yes/no/absent eligibility marker. The label cell must
// contain every one of the given substrings (case-insensitive); sibling cells
// in the same row are scanned left to right, skipping spacers, for the first
// of "yes", "no", or "-".
func Flag(doc *goquery.Document, substrings ...string) *bool {
	var result *bool
	doc.Find("table th, table td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := strings.ToLower(cellText(cell))
		for _, sub := range substrings {
			if !strings.Contains(text, strings.ToLower(sub)) {
				return true
			}
		}
		sibling := cell.Next()
		for sibling.Length() > 0 {
			val := strings.ToLower(cellText(sibling))
			switch val {
			case "":
				// spacer cell
			case "yes":
				yes := true
				result = &yes
				return false
			case "no":
				no := false
				result = &no
				return false
			case "-":
				return false
			}
			sibling = sibling.Next()
		}
		return true
	})
	return result
}

// ImageURL locates the infobox main image and returns its canonical source
// URL. The lazily-loaded original attribute wins over the rendered src, which
// may be a thumbnail.
func ImageURL(doc *goquery.Document, baseOrigin string) string {
	img := doc.Find(".va-infobox-mainimage img, .pi-image img, .infobox img, table img").First()
	if img.Length() == 0 {
		return ""
	}
	src := ""
	for _, attr := range []string{"data-src", "data-image-key-src", "src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			src = strings.TrimSpace(v)
			break
		}
	}
	if src == "" {
		return ""
	}
	return CanonicalImageURL(src, baseOrigin)
}

// CanonicalImageURL normalizes recognized CDN image URLs into the single
// .../images/<path>/revision/latest[?query] form. Unrecognized absolute URLs
// pass through unchanged; root-relative URLs resolve against baseOrigin.
func CanonicalImageURL(raw, baseOrigin string) string {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	if strings.HasPrefix(raw, "/") {
		return strings.TrimRight(baseOrigin, "/") + raw
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return raw
	}
	if !recognizedImageCDN(u.Host) {
		return raw
	}
	idx := strings.Index(u.Path, "/images/")
	if idx < 0 {
		return raw
	}
	path := u.Path[idx+len("/images/"):]
	if cut := strings.Index(path, "/revision/"); cut >= 0 {
		path = path[:cut]
	}
	canonical := u.Scheme + "://" + u.Host + u.Path[:idx] + "/images/" + path + "/revision/latest"
	if u.RawQuery != "" {
		canonical += "?" + u.RawQuery
	}
	return canonical
}

func recognizedImageCDN(host string) bool {
	host = strings.ToLower(host)
	return strings.Contains(host, "nocookie.net") ||
		strings.Contains(host, "fandom.com") ||
		strings.Contains(host, "wikia.")
}
