// Package catalog defines the core record types shared across the
// crawl, extraction, and storage layers.
package catalog

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// RatingUnknown marks records for which no rating could be extracted.
	RatingUnknown = "N/A"

	// MaxScreenshots caps the gallery size kept per game.
	MaxScreenshots = 10

	minTitleLen       = 4
	maxTitleRunes     = 300
	maxDescriptionLen = 4000
)

// Entry is a listing-page hit: a candidate title plus the URL of its
// detail page.
type Entry struct {
	Title     string
	DetailURL string
}

// Game is a fully extracted catalog record.
type Game struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Genres      []string  `json:"genres"`
	Description string    `json:"description"`
	Rating      string    `json:"rating"`
	ImageURL    string    `json:"image_url"`
	Screenshots []string  `json:"screenshots"`
	ReleaseDate string    `json:"release_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Notification records that a new-game notification went out.
type Notification struct {
	ID     int64     `json:"id"`
	GameID int64     `json:"game_id"`
	SentAt time.Time `json:"sent_at"`
}

// RunStats summarizes one synchronization run.
type RunStats struct {
	Pages     int `json:"pages"`
	Entries   int `json:"entries"`
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// ValidTitle reports whether a title is usable as a record key: at
// least four runes after trimming and not purely digits and spaces.
func ValidTitle(title string) bool {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < minTitleLen {
		return false
	}
	for _, r := range title {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// Normalize trims and bounds the record's fields in place. It returns
// false when the title is unusable after trimming.
func (g *Game) Normalize() bool {
	g.Title = truncateRunes(strings.TrimSpace(g.Title), maxTitleRunes)
	if !ValidTitle(g.Title) {
		return false
	}
	g.URL = strings.TrimSpace(g.URL)
	g.Description = truncateRunes(strings.TrimSpace(g.Description), maxDescriptionLen)
	g.Genres = DedupeStrings(g.Genres)
	g.Screenshots = DedupeStrings(g.Screenshots)
	if len(g.Screenshots) > MaxScreenshots {
		g.Screenshots = g.Screenshots[:MaxScreenshots]
	}
	g.ImageURL = strings.TrimSpace(g.ImageURL)
	g.ReleaseDate = strings.TrimSpace(g.ReleaseDate)
	if strings.TrimSpace(g.Rating) == "" {
		g.Rating = RatingUnknown
	}
	return true
}

// DedupeStrings trims each value, drops empties, and keeps the first
// occurrence of each remaining value in order. Nil when nothing is left.
func DedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
