// Package crawl discovers catalog entries by walking the source site's
// paginated listing despite its inconsistent pagination scheme.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/avdeev/switch-catalog/internal/catalog"
	"github.com/avdeev/switch-catalog/internal/fetch"
)

// ErrFirstPageUnavailable is returned when the very first listing page
// cannot be fetched through any URL variant. It is the only condition that
// fails a whole run.
var ErrFirstPageUnavailable = errors.New("first catalog page unavailable")

// EntryFunc extracts listing entries from one page of markup.
type EntryFunc func(markup []byte, pageURL string) []catalog.Entry

// Config holds walker settings.
type Config struct {
	// BaseURL is the catalog section root; page 1 is the bare BaseURL.
	BaseURL string
	// PageTemplates are ordered URL suffix variants with a %d page index,
	// e.g. "page/%d/", "?page=%d", "page-%d/". The first variant yielding
	// a non-empty entry list is accepted for that index.
	PageTemplates []string
	// EmptyStreak stops the walk after this many consecutive pages with
	// zero entries.
	EmptyStreak int
	// MaxPages is the safety cap on visited page indices.
	MaxPages int
}

// Walker drives a PageFetcher across page indices. Walks are deterministic:
// against an unchanged source, re-running from page 1 reproduces the same
// entry set.
type Walker struct {
	cfg     Config
	fetcher fetch.PageFetcher
	extract EntryFunc
	logger  *zap.Logger
}

// NewWalker builds a Walker.
func NewWalker(cfg Config, fetcher fetch.PageFetcher, extract EntryFunc, logger *zap.Logger) *Walker {
	if cfg.EmptyStreak <= 0 {
		cfg.EmptyStreak = 3
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 100
	}
	return &Walker{cfg: cfg, fetcher: fetcher, extract: extract, logger: logger}
}

// Walk enumerates listing pages until the empty streak or the page cap is
// reached, returning all discovered entries in page order and the number of
// pages that yielded entries.
func (w *Walker) Walk(ctx context.Context) ([]catalog.Entry, int, error) {
	var all []catalog.Entry
	pagesWithEntries := 0
	streak := 0

	for page := 1; page <= w.cfg.MaxPages; page++ {
		entries, reachable := w.walkPage(ctx, page)
		if page == 1 && !reachable {
			return nil, 0, ErrFirstPageUnavailable
		}

		if len(entries) == 0 {
			streak++
			w.logger.Debug("Empty listing page",
				zap.Int("page", page), zap.Int("streak", streak))
			if streak >= w.cfg.EmptyStreak {
				w.logger.Info("Stopping pagination after empty streak",
					zap.Int("page", page), zap.Int("streak", streak))
				break
			}
			continue
		}

		streak = 0
		pagesWithEntries++
		all = append(all, entries...)
		w.logger.Info("Listing page parsed",
			zap.Int("page", page), zap.Int("entries", len(entries)))
	}

	return all, pagesWithEntries, nil
}

// walkPage tries each URL variant for one page index and accepts the first
// that yields a non-empty entry list. The second result reports whether any
// variant could be fetched at all.
func (w *Walker) walkPage(ctx context.Context, page int) ([]catalog.Entry, bool) {
	reachable := false
	for _, pageURL := range w.pageURLs(page) {
		markup, ok := w.fetcher.Fetch(ctx, pageURL)
		if !ok {
			continue
		}
		reachable = true
		if entries := w.extract(markup, pageURL); len(entries) > 0 {
			return entries, true
		}
	}
	return nil, reachable
}

// pageURLs returns the ordered URL variants for a page index. Page 1 is the
// bare section URL; later indices go through the template list.
func (w *Walker) pageURLs(page int) []string {
	if page == 1 {
		return []string{w.cfg.BaseURL}
	}
	urls := make([]string, 0, len(w.cfg.PageTemplates))
	for _, tpl := range w.cfg.PageTemplates {
		urls = append(urls, joinPageURL(w.cfg.BaseURL, fmt.Sprintf(tpl, page)))
	}
	return urls
}

func joinPageURL(base, suffix string) string {
	return strings.TrimSuffix(base, "/") + "/" + suffix
}
