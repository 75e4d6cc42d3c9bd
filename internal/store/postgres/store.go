// Package postgres provides the Postgres-backed Store implementation.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avdeev/switch-catalog/internal/catalog"
	"github.com/avdeev/switch-catalog/internal/store"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	CaseSensitive   bool
}

// pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists game records in Postgres. Writes go through the pool's
// serialized statements; list fields are stored as JSONB.
type Store struct {
	pool          pool
	clock         store.Clock
	caseSensitive bool
}

// New connects a pool and builds a Store.
func New(ctx context.Context, cfg Config, clock store.Clock) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, clock: clock, caseSensitive: cfg.CaseSensitive}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(p pool, clock store.Clock, caseSensitive bool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p, clock: clock, caseSensitive: caseSensitive}, nil
}

// EnsureSchema creates the games and notifications tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS games (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	title TEXT NOT NULL UNIQUE,
	url TEXT NOT NULL DEFAULT '',
	genres JSONB NOT NULL DEFAULT '[]',
	description TEXT NOT NULL DEFAULT '',
	rating TEXT NOT NULL DEFAULT 'N/A',
	image_url TEXT NOT NULL DEFAULT '',
	screenshots JSONB NOT NULL DEFAULT '[]',
	release_date TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS notifications (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	game_id BIGINT NOT NULL REFERENCES games (id),
	sent_at TIMESTAMPTZ NOT NULL
)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	s.pool.Close()
}

const gameColumns = `id, title, url, genres, description, rating, image_url, screenshots, release_date, created_at, updated_at`

// Upsert inserts a record or updates the record with the same title.
// xmax = 0 distinguishes a fresh insert from a conflict update.
func (s *Store) Upsert(ctx context.Context, game catalog.Game) (catalog.Game, bool, error) {
	if !catalog.ValidTitle(game.Title) {
		return catalog.Game{}, false, store.ErrInvalidTitle
	}
	genres, err := json.Marshal(orEmpty(game.Genres))
	if err != nil {
		return catalog.Game{}, false, fmt.Errorf("marshal genres: %w", err)
	}
	screenshots, err := json.Marshal(orEmpty(game.Screenshots))
	if err != nil {
		return catalog.Game{}, false, fmt.Errorf("marshal screenshots: %w", err)
	}
	now := s.clock.Now()

	query := `
INSERT INTO games (title, url, genres, description, rating, image_url, screenshots, release_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (title) DO UPDATE SET
	url = EXCLUDED.url,
	genres = EXCLUDED.genres,
	description = EXCLUDED.description,
	rating = EXCLUDED.rating,
	image_url = EXCLUDED.image_url,
	screenshots = EXCLUDED.screenshots,
	release_date = EXCLUDED.release_date,
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at, (xmax = 0) AS inserted`

	var (
		id        int64
		createdAt time.Time
		inserted  bool
	)
	err = s.pool.QueryRow(ctx, query,
		game.Title,
		game.URL,
		genres,
		game.Description,
		ratingOrSentinel(game.Rating),
		game.ImageURL,
		screenshots,
		game.ReleaseDate,
		now,
	).Scan(&id, &createdAt, &inserted)
	if err != nil {
		return catalog.Game{}, false, fmt.Errorf("upsert game: %w", err)
	}

	game.ID = id
	game.CreatedAt = createdAt
	game.UpdatedAt = now
	game.Rating = ratingOrSentinel(game.Rating)
	return game, inserted, nil
}

// GetByID fetches one record by surrogate key.
func (s *Store) GetByID(ctx context.Context, id int64) (catalog.Game, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	return scanGame(row)
}

// GetByTitle fetches one record by exact title.
func (s *Store) GetByTitle(ctx context.Context, title string) (catalog.Game, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE title = $1`, title)
	return scanGame(row)
}

// All returns every record in title order.
func (s *Store) All(ctx context.Context) ([]catalog.Game, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}
	return scanGames(rows)
}

// ByGenre pages through records whose serialized genre list contains the
// query substring, ordered by title. Adequate at catalog scale; a larger
// corpus would need an inverted index.
func (s *Store) ByGenre(ctx context.Context, genre string, limit, offset int) ([]catalog.Game, error) {
	query := fmt.Sprintf(
		`SELECT `+gameColumns+` FROM games WHERE genres::text %s $1 ORDER BY title LIMIT $2 OFFSET $3`,
		s.likeOperator())
	rows, err := s.pool.Query(ctx, query, "%"+genre+"%", sqlLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("select games by genre: %w", err)
	}
	return scanGames(rows)
}

// CountByGenre counts records matching the genre substring.
func (s *Store) CountByGenre(ctx context.Context, genre string) (int, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM games WHERE genres::text %s $1`, s.likeOperator())
	var count int
	if err := s.pool.QueryRow(ctx, query, "%"+genre+"%").Scan(&count); err != nil {
		return 0, fmt.Errorf("count games by genre: %w", err)
	}
	return count, nil
}

// Genres returns the sorted set union of every record's genre list.
func (s *Store) Genres(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT genres FROM games WHERE genres IS NOT NULL AND genres::text <> '[]'`)
	if err != nil {
		return nil, fmt.Errorf("select genres: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan genres: %w", err)
		}
		var genres []string
		if err := json.Unmarshal(raw, &genres); err != nil {
			continue
		}
		for _, g := range genres {
			set[g] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}

	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

// Search matches the text against title or description.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]catalog.Game, error) {
	op := s.likeOperator()
	query := fmt.Sprintf(
		`SELECT `+gameColumns+` FROM games WHERE title %s $1 OR description %s $1 ORDER BY title LIMIT $2`,
		op, op)
	rows, err := s.pool.Query(ctx, query, "%"+text+"%", sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	return scanGames(rows)
}

// Recent returns records created since the given time, newest first.
func (s *Store) Recent(ctx context.Context, since time.Time, limit int) ([]catalog.Game, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+gameColumns+` FROM games WHERE created_at >= $1 ORDER BY created_at DESC, title LIMIT $2`,
		since, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select recent games: %w", err)
	}
	return scanGames(rows)
}

// Stats summarizes catalog completeness.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var stats store.Stats
	err := s.pool.QueryRow(ctx, `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE rating <> '' AND rating <> 'N/A'),
	COUNT(*) FILTER (WHERE image_url <> ''),
	COUNT(*) FILTER (WHERE screenshots::text <> '[]')
FROM games`).Scan(&stats.TotalGames, &stats.RatedGames, &stats.WithImages, &stats.WithScreenshots)
	if err != nil {
		return store.Stats{}, fmt.Errorf("select stats: %w", err)
	}
	return stats, nil
}

// AddNotification records that a notification was sent for a game.
func (s *Store) AddNotification(ctx context.Context, gameID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (game_id, sent_at) VALUES ($1, $2)`,
		gameID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// NotificationSent reports whether any notification was sent for a game.
func (s *Store) NotificationSent(ctx context.Context, gameID int64) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE game_id = $1`, gameID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count notifications: %w", err)
	}
	return count > 0, nil
}

// sqlLimit maps a non-positive limit to LIMIT NULL, which Postgres
// treats as no limit, matching the in-memory store's paginate.
func sqlLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func (s *Store) likeOperator() string {
	if s.caseSensitive {
		return "LIKE"
	}
	return "ILIKE"
}

func scanGame(row pgx.Row) (catalog.Game, error) {
	var (
		g                 catalog.Game
		genres, shotsJSON []byte
	)
	err := row.Scan(&g.ID, &g.Title, &g.URL, &genres, &g.Description, &g.Rating,
		&g.ImageURL, &shotsJSON, &g.ReleaseDate, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Game{}, store.ErrNotFound
	}
	if err != nil {
		return catalog.Game{}, fmt.Errorf("scan game: %w", err)
	}
	if err := json.Unmarshal(genres, &g.Genres); err != nil {
		g.Genres = nil
	}
	if err := json.Unmarshal(shotsJSON, &g.Screenshots); err != nil {
		g.Screenshots = nil
	}
	return g, nil
}

func scanGames(rows pgx.Rows) ([]catalog.Game, error) {
	defer rows.Close()
	var games []catalog.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func ratingOrSentinel(rating string) string {
	if rating == "" {
		return catalog.RatingUnknown
	}
	return rating
}
