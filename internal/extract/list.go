package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tarkovlens/questscraper/internal/scrape"
)

// Owner labels on the index page that do not head real quest rows.
var sentinelOwners = map[string]struct{}{
	"miscellaneous": {},
	"misc":          {},
	"other":         {},
	"event quests":  {},
}

// List extracts the universe of quests from the index page: rows grouped by a
// leading trader cell, each carrying the trader's quest links in the companion
// cell. Returns an empty slice (not an error) when the page carries no
// recognizable navigation table; the caller treats empty as a failure.
func List(doc *goquery.Document, baseURL string) []scrape.ListEntry {
	var entries []scrape.ListEntry
	byURL := make(map[string]struct{})
	byNameOwner := make(map[string]struct{})

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		ownerCell := cells.First()
		owner := cellText(ownerCell.Find("a").First())
		if owner == "" {
			owner = cellText(ownerCell)
		}
		if owner == "" {
			return
		}
		if _, skip := sentinelOwners[strings.ToLower(owner)]; skip {
			return
		}
		ownerHref, _ := ownerCell.Find("a").First().Attr("href")

		cells.Slice(1, cells.Length()).Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			name := cellText(link)
			href, _ := link.Attr("href")
			if name == "" || href == "" {
				return
			}
			// The row's owner often links to itself inside the quest cell.
			if href == ownerHref || strings.EqualFold(name, owner) {
				return
			}
			abs := resolveURL(href, baseURL)
			if abs != "" {
				if _, dup := byURL[abs]; dup {
					return
				}
				byURL[abs] = struct{}{}
			} else {
				key := strings.ToLower(name) + "\x00" + strings.ToLower(owner)
				if _, dup := byNameOwner[key]; dup {
					return
				}
				byNameOwner[key] = struct{}{}
			}
			entries = append(entries, scrape.ListEntry{
				Name:   name,
				URL:    abs,
				Trader: owner,
			})
		})
	})
	return entries
}

// resolveURL absolutizes href against base, returning "" when neither side
// yields a usable absolute URL.
func resolveURL(href, base string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ""
	}
	return b.ResolveReference(u).String()
}
