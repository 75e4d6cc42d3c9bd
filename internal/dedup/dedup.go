// Package dedup reconciles repeated discoveries of the same catalog item
// into one canonical record.
package dedup

import (
	"github.com/avdeev/switch-catalog/internal/catalog"
)

// Merger collapses candidate records arriving from repeated crawl passes.
// The merge rule is fullness precedence: for a given title, a candidate
// with a non-empty genre list strictly wins over one with an empty genre
// list; otherwise the first-seen candidate wins. A Merger owns its own
// state, so independent merges never interfere.
type Merger struct {
	byTitle map[string]catalog.Game
	order   []string
}

// NewMerger creates an empty Merger.
func NewMerger() *Merger {
	return &Merger{byTitle: make(map[string]catalog.Game)}
}

// Add offers a candidate. It returns true when the candidate became (or
// replaced) the canonical record for its title.
func (m *Merger) Add(candidate catalog.Game) bool {
	existing, seen := m.byTitle[candidate.Title]
	if !seen {
		m.byTitle[candidate.Title] = candidate
		m.order = append(m.order, candidate.Title)
		return true
	}
	if len(candidate.Genres) > 0 && len(existing.Genres) == 0 {
		m.byTitle[candidate.Title] = candidate
		return true
	}
	return false
}

// Len reports the number of canonical records so far.
func (m *Merger) Len() int {
	return len(m.byTitle)
}

// Records returns the canonical records in first-seen order.
func (m *Merger) Records() []catalog.Game {
	out := make([]catalog.Game, 0, len(m.order))
	for _, title := range m.order {
		out = append(out, m.byTitle[title])
	}
	return out
}
