package crawl

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avdeev/switch-catalog/internal/catalog"
)

const baseURL = "https://example.org/catalog/"

// fakeFetcher serves canned pages keyed by URL and records request order.
type fakeFetcher struct {
	pages    map[string]string
	requests []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, bool) {
	f.requests = append(f.requests, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, false
	}
	return []byte(body), true
}

// fakeExtract parses pages of the form "title1|title2|...".
func fakeExtract(markup []byte, pageURL string) []catalog.Entry {
	if len(markup) == 0 {
		return nil
	}
	var entries []catalog.Entry
	for i, title := range splitPipe(string(markup)) {
		entries = append(entries, catalog.Entry{
			Title:     title,
			DetailURL: fmt.Sprintf("%s#%d", pageURL, i),
		})
	}
	return entries
}

func splitPipe(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '|' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func newWalker(cfg Config, f *fakeFetcher) *Walker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.PageTemplates == nil {
		cfg.PageTemplates = []string{"page/%d/", "?page=%d", "page-%d/"}
	}
	return NewWalker(cfg, f, fakeExtract, zap.NewNop())
}

func TestWalkStopsAfterEmptyStreak(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		baseURL: "Game One|Game Two",
		"https://example.org/catalog/page/2/": "Game Three",
		"https://example.org/catalog/page/3/": "",
		"https://example.org/catalog/page/4/": "",
		"https://example.org/catalog/page/5/": "",
		"https://example.org/catalog/page/6/": "Never Reached",
	}}

	w := newWalker(Config{EmptyStreak: 3, MaxPages: 50}, f)
	entries, pages, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, pages)
	require.Len(t, entries, 3)
	require.Equal(t, "Game One", entries[0].Title)
	require.Equal(t, "Game Three", entries[2].Title)

	// Pages 3..5 form the streak; page 6 is never requested.
	require.NotContains(t, f.requests, "https://example.org/catalog/page/6/")
}

func TestWalkTriesTemplateVariantsInOrder(t *testing.T) {
	t.Parallel()

	// Page 2 is only reachable through the query-string variant.
	f := &fakeFetcher{pages: map[string]string{
		baseURL: "Game One",
		"https://example.org/catalog/?page=2": "Game Two",
	}}

	w := newWalker(Config{EmptyStreak: 1, MaxPages: 10}, f)
	entries, _, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// The path variant was tried first and missed.
	require.Contains(t, f.requests, "https://example.org/catalog/page/2/")
	require.Contains(t, f.requests, "https://example.org/catalog/?page=2")
}

func TestWalkRespectsMaxPages(t *testing.T) {
	t.Parallel()

	pages := map[string]string{baseURL: "Game 1 Overture"}
	for i := 2; i <= 20; i++ {
		pages[fmt.Sprintf("https://example.org/catalog/page/%d/", i)] = fmt.Sprintf("Game %d Overture", i)
	}
	f := &fakeFetcher{pages: pages}

	w := newWalker(Config{EmptyStreak: 3, MaxPages: 5}, f)
	entries, visited, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, visited)
	require.Len(t, entries, 5)
}

func TestWalkFirstPageUnreachableFails(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{}}
	w := newWalker(Config{}, f)

	_, _, err := w.Walk(context.Background())
	require.ErrorIs(t, err, ErrFirstPageUnavailable)
}

func TestWalkFirstPageEmptyButReachableIsNotFatal(t *testing.T) {
	t.Parallel()

	// Reachable pages with no entries: the walk terminates by streak
	// without an error.
	f := &fakeFetcher{pages: map[string]string{baseURL: ""}}
	w := newWalker(Config{EmptyStreak: 1}, f)

	entries, pages, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Zero(t, pages)
}

func TestWalkIsDeterministic(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		baseURL: "Alpha Strike|Beta Blast",
		"https://example.org/catalog/page/2/": "Gamma Quest",
	}

	f1 := &fakeFetcher{pages: pages}
	f2 := &fakeFetcher{pages: pages}
	w1 := newWalker(Config{EmptyStreak: 3, MaxPages: 10}, f1)
	w2 := newWalker(Config{EmptyStreak: 3, MaxPages: 10}, f2)

	e1, _, err := w1.Walk(context.Background())
	require.NoError(t, err)
	e2, _, err := w2.Walk(context.Background())
	require.NoError(t, err)

	require.Equal(t, e1, e2)
	require.Equal(t, f1.requests, f2.requests)
}
