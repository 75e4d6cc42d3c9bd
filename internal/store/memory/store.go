// Package memory provides an in-memory Store for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avdeev/switch-catalog/internal/catalog"
	"github.com/avdeev/switch-catalog/internal/store"
)

// Store keeps all records in maps guarded by one RW lock: the single write
// lock serializes mutations while reads proceed concurrently with
// last-committed-wins visibility.
type Store struct {
	mu            sync.RWMutex
	clock         store.Clock
	caseSensitive bool

	nextID        int64
	games         map[int64]catalog.Game
	idByTitle     map[string]int64
	notifications map[int64][]time.Time
}

// New constructs an empty Store.
func New(clock store.Clock, caseSensitive bool) *Store {
	return &Store{
		clock:         clock,
		caseSensitive: caseSensitive,
		nextID:        1,
		games:         make(map[int64]catalog.Game),
		idByTitle:     make(map[string]int64),
		notifications: make(map[int64][]time.Time),
	}
}

// Upsert inserts a record or updates the record with the same title.
func (s *Store) Upsert(_ context.Context, game catalog.Game) (catalog.Game, bool, error) {
	if !catalog.ValidTitle(game.Title) {
		return catalog.Game{}, false, store.ErrInvalidTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if id, exists := s.idByTitle[game.Title]; exists {
		existing := s.games[id]
		game.ID = id
		game.CreatedAt = existing.CreatedAt
		game.UpdatedAt = now
		s.games[id] = game
		return game, false, nil
	}

	game.ID = s.nextID
	s.nextID++
	game.CreatedAt = now
	game.UpdatedAt = now
	s.games[game.ID] = game
	s.idByTitle[game.Title] = game.ID
	return game, true, nil
}

// GetByID fetches one record by surrogate key.
func (s *Store) GetByID(_ context.Context, id int64) (catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return catalog.Game{}, store.ErrNotFound
	}
	return game, nil
}

// GetByTitle fetches one record by exact title.
func (s *Store) GetByTitle(_ context.Context, title string) (catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idByTitle[title]
	if !ok {
		return catalog.Game{}, store.ErrNotFound
	}
	return s.games[id], nil
}

// All returns every record in title order.
func (s *Store) All(_ context.Context) ([]catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedByTitle(func(catalog.Game) bool { return true }), nil
}

// ByGenre pages through records whose serialized genre list contains the
// query substring, ordered by title.
func (s *Store) ByGenre(_ context.Context, genre string, limit, offset int) ([]catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.sortedByTitle(func(g catalog.Game) bool {
		return s.contains(strings.Join(g.Genres, ", "), genre)
	})
	return paginate(matches, limit, offset), nil
}

// CountByGenre counts records matching the genre substring.
func (s *Store) CountByGenre(_ context.Context, genre string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, g := range s.games {
		if s.contains(strings.Join(g.Genres, ", "), genre) {
			count++
		}
	}
	return count, nil
}

// Genres returns the sorted set union of every record's genre list.
func (s *Store) Genres(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, g := range s.games {
		for _, genre := range g.Genres {
			set[genre] = struct{}{}
		}
	}
	genres := make([]string, 0, len(set))
	for genre := range set {
		genres = append(genres, genre)
	}
	sort.Strings(genres)
	return genres, nil
}

// Search matches the text against title or description.
func (s *Store) Search(_ context.Context, text string, limit int) ([]catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.sortedByTitle(func(g catalog.Game) bool {
		return s.contains(g.Title, text) || s.contains(g.Description, text)
	})
	return paginate(matches, limit, 0), nil
}

// Recent returns records created since the given time, newest first.
func (s *Store) Recent(_ context.Context, since time.Time, limit int) ([]catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []catalog.Game
	for _, g := range s.games {
		if !g.CreatedAt.Before(since) {
			matches = append(matches, g)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].Title < matches[j].Title
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return paginate(matches, limit, 0), nil
}

// Stats summarizes catalog completeness.
func (s *Store) Stats(_ context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := store.Stats{TotalGames: len(s.games)}
	for _, g := range s.games {
		if g.Rating != "" && g.Rating != catalog.RatingUnknown {
			stats.RatedGames++
		}
		if g.ImageURL != "" {
			stats.WithImages++
		}
		if len(g.Screenshots) > 0 {
			stats.WithScreenshots++
		}
	}
	return stats, nil
}

// AddNotification records that a notification was sent for a game.
func (s *Store) AddNotification(_ context.Context, gameID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return store.ErrNotFound
	}
	s.notifications[gameID] = append(s.notifications[gameID], s.clock.Now())
	return nil
}

// NotificationSent reports whether any notification was sent for a game.
func (s *Store) NotificationSent(_ context.Context, gameID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifications[gameID]) > 0, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

func (s *Store) contains(haystack, needle string) bool {
	if s.caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *Store) sortedByTitle(match func(catalog.Game) bool) []catalog.Game {
	var out []catalog.Game
	for _, g := range s.games {
		if match(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func paginate(games []catalog.Game, limit, offset int) []catalog.Game {
	if offset >= len(games) {
		return nil
	}
	games = games[offset:]
	if limit > 0 && limit < len(games) {
		games = games[:limit]
	}
	return games
}
