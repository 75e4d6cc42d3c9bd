// Package query exposes read-only catalog lookups over a Store.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avdeev/switch-catalog/internal/catalog"
	"github.com/avdeev/switch-catalog/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service answers catalog queries. It never mutates the store.
type Service struct {
	db store.Store
}

// New wraps a store in a query service.
func New(db store.Store) *Service {
	return &Service{db: db}
}

// All returns every game in title order.
func (s *Service) All(ctx context.Context) ([]catalog.Game, error) {
	return s.db.All(ctx)
}

// ByID looks a game up by its surrogate key. The boolean is false when
// no game has that id.
func (s *Service) ByID(ctx context.Context, id int64) (catalog.Game, bool, error) {
	game, err := s.db.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return catalog.Game{}, false, nil
	}
	if err != nil {
		return catalog.Game{}, false, err
	}
	return game, true, nil
}

// ByTitle looks a game up by exact title.
func (s *Service) ByTitle(ctx context.Context, title string) (catalog.Game, bool, error) {
	game, err := s.db.GetByTitle(ctx, strings.TrimSpace(title))
	if errors.Is(err, store.ErrNotFound) {
		return catalog.Game{}, false, nil
	}
	if err != nil {
		return catalog.Game{}, false, err
	}
	return game, true, nil
}

// ByGenre pages through the games matching a genre, in title order.
func (s *Service) ByGenre(ctx context.Context, genre string, limit, offset int) ([]catalog.Game, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, fmt.Errorf("genre is required")
	}
	if offset < 0 {
		offset = 0
	}
	return s.db.ByGenre(ctx, genre, clampLimit(limit), offset)
}

// CountByGenre counts the games matching a genre.
func (s *Service) CountByGenre(ctx context.Context, genre string) (int, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return 0, fmt.Errorf("genre is required")
	}
	return s.db.CountByGenre(ctx, genre)
}

// Genres returns the sorted set of genres present in the catalog.
func (s *Service) Genres(ctx context.Context) ([]string, error) {
	return s.db.Genres(ctx)
}

// Search matches free text against titles and descriptions.
func (s *Service) Search(ctx context.Context, text string, limit int) ([]catalog.Game, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("search text is required")
	}
	return s.db.Search(ctx, text, clampLimit(limit))
}

// Recent returns games first seen in the given window, newest first.
func (s *Service) Recent(ctx context.Context, window time.Duration, now time.Time, limit int) ([]catalog.Game, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return s.db.Recent(ctx, now.Add(-window), clampLimit(limit))
}

// Stats summarizes catalog completeness.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.db.Stats(ctx)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
