package extract

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/avdeev/switch-catalog/internal/catalog"
)

// Listing-page extraction runs a cascade of locator strategies and keeps the
// first one that produces any accepted entries. A candidate is accepted only
// when it yields a valid title and an absolute detail URL; everything else is
// silently dropped. Within one page, repeated titles collapse to first-seen.

const minHeaderTitleLen = 10

type listingStrategy func(doc *goquery.Document, base *url.URL) []catalog.Entry

var listingStrategies = []listingStrategy{
	entriesFromContainers,
	entriesFromDetailAnchors,
	entriesFromHeaders,
}

// Entries extracts (title, detail URL) stubs from one listing page.
// pageURL anchors relative link resolution.
func Entries(markup []byte, pageURL string) []catalog.Entry {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	for _, strategy := range listingStrategies {
		if entries := dedupeEntries(strategy(doc, base)); len(entries) > 0 {
			return entries
		}
	}
	return nil
}

// entriesFromContainers walks structural content containers, each expected
// to hold one title element and one detail link.
func entriesFromContainers(doc *goquery.Document, base *url.URL) []catalog.Entry {
	var entries []catalog.Entry
	doc.Find("article, div.post, div.catalog-item, div.game-item").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
			return isDetailHref(a.AttrOr("href", ""))
		}).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		title := ""
		if heading := s.Find("h1, h2, h3").First(); heading.Length() > 0 {
			title = CleanText(heading.Text())
		}
		if title == "" {
			title = CleanText(link.Text())
		}
		if entry, ok := makeEntry(title, href, base); ok {
			entries = append(entries, entry)
		}
	})
	return entries
}

// entriesFromDetailAnchors falls back to any anchor whose href matches the
// detail-page pattern. Anchors without usable text get a title derived from
// the URL slug.
func entriesFromDetailAnchors(doc *goquery.Document, base *url.URL) []catalog.Entry {
	var entries []catalog.Entry
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		if !isDetailHref(href) {
			return
		}
		title := CleanText(a.Text())
		if !catalog.ValidTitle(title) {
			title = TitleFromSlug(path.Base(href))
		}
		if entry, ok := makeEntry(title, href, base); ok {
			entries = append(entries, entry)
		}
	})
	return entries
}

// entriesFromHeaders is the last resort: header elements with long enough
// text, paired with a nearby link.
func entriesFromHeaders(doc *goquery.Document, base *url.URL) []catalog.Entry {
	var entries []catalog.Entry
	doc.Find("h1, h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
		title := CleanText(h.Text())
		if len([]rune(title)) < minHeaderTitleLen {
			return
		}
		href, ok := h.Find("a[href]").First().Attr("href")
		if !ok {
			href, ok = h.Closest("a[href]").Attr("href")
		}
		if !ok {
			return
		}
		if entry, entryOK := makeEntry(title, href, base); entryOK {
			entries = append(entries, entry)
		}
	})
	return entries
}

func makeEntry(title, href string, base *url.URL) (catalog.Entry, bool) {
	if !catalog.ValidTitle(title) {
		return catalog.Entry{}, false
	}
	abs := absoluteURL(href, base)
	if abs == "" {
		return catalog.Entry{}, false
	}
	return catalog.Entry{Title: title, DetailURL: abs}, true
}

func dedupeEntries(entries []catalog.Entry) []catalog.Entry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e.Title]; ok {
			continue
		}
		seen[e.Title] = struct{}{}
		out = append(out, e)
	}
	return out
}

func isDetailHref(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, ".html")
}

func absoluteURL(href string, base *url.URL) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if !abs.IsAbs() || abs.Host == "" {
		return ""
	}
	return abs.String()
}
