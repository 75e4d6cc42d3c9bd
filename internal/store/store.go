// Package store persists canonical game records and serves the genre/text
// query surface. Two implementations exist: a Postgres store for production
// and an in-memory store for development and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/avdeev/switch-catalog/internal/catalog"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// ErrInvalidTitle rejects upserts whose title fails validation; a record
// with an empty title is never persisted.
var ErrInvalidTitle = errors.New("invalid game title")

// Clock supplies timestamps for created_at/updated_at.
type Clock interface {
	Now() time.Time
}

// Stats summarizes catalog completeness.
type Stats struct {
	TotalGames      int `json:"total_games"`
	RatedGames      int `json:"rated_games"`
	WithImages      int `json:"games_with_images"`
	WithScreenshots int `json:"games_with_screenshots"`
}

// Store is the persistence interface. Genre and text queries use substring
// matching against the serialized genre collection and the title/description
// fields; that is adequate at hundreds-of-records scale and would need an
// inverted index beyond it. A limit <= 0 means no limit in every
// implementation.
type Store interface {
	// Upsert inserts a record or updates the record with the same title.
	// It returns the stored record and whether it was newly created.
	Upsert(ctx context.Context, game catalog.Game) (catalog.Game, bool, error)

	GetByID(ctx context.Context, id int64) (catalog.Game, error)
	GetByTitle(ctx context.Context, title string) (catalog.Game, error)
	All(ctx context.Context) ([]catalog.Game, error)
	ByGenre(ctx context.Context, genre string, limit, offset int) ([]catalog.Game, error)
	CountByGenre(ctx context.Context, genre string) (int, error)
	Genres(ctx context.Context) ([]string, error)
	Search(ctx context.Context, text string, limit int) ([]catalog.Game, error)
	Recent(ctx context.Context, since time.Time, limit int) ([]catalog.Game, error)
	Stats(ctx context.Context) (Stats, error)

	AddNotification(ctx context.Context, gameID int64) error
	NotificationSent(ctx context.Context, gameID int64) (bool, error)

	Close()
}
