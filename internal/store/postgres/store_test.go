package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/avdeev/switch-catalog/internal/catalog"
	"github.com/avdeev/switch-catalog/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T, caseSensitive bool) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s, err := NewWithPool(mock, fakeClock{now: testNow}, caseSensitive)
	require.NoError(t, err)
	return s, mock
}

func TestUpsertInsertsRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	game := catalog.Game{
		Title:       "Hollow Knight",
		URL:         "https://example.com/games/hollow-knight.html",
		Genres:      []string{"Action", "Adventure"},
		Description: "A challenging action adventure.",
		Rating:      "90",
		ImageURL:    "https://example.com/img/hk.jpg",
		Screenshots: []string{"https://example.com/img/hk-1.jpg"},
		ReleaseDate: "2018-06-12",
	}

	mock.ExpectQuery("INSERT INTO games").
		WithArgs(
			game.Title,
			game.URL,
			[]byte(`["Action","Adventure"]`),
			game.Description,
			game.Rating,
			game.ImageURL,
			[]byte(`["https://example.com/img/hk-1.jpg"]`),
			game.ReleaseDate,
			testNow,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "inserted"}).
			AddRow(int64(7), testNow, true))

	got, inserted, err := s.Upsert(context.Background(), game)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, int64(7), got.ID)
	require.Equal(t, testNow, got.CreatedAt)
	require.Equal(t, testNow, got.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)
	createdAt := testNow.Add(-48 * time.Hour)

	mock.ExpectQuery("INSERT INTO games").
		WithArgs(
			"Hollow Knight",
			"",
			[]byte(`[]`),
			"",
			catalog.RatingUnknown,
			"",
			[]byte(`[]`),
			"",
			testNow,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "inserted"}).
			AddRow(int64(7), createdAt, false))

	got, inserted, err := s.Upsert(context.Background(), catalog.Game{Title: "Hollow Knight"})
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, createdAt, got.CreatedAt)
	require.Equal(t, testNow, got.UpdatedAt)
	require.Equal(t, catalog.RatingUnknown, got.Rating)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRejectsInvalidTitle(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	_, _, err := s.Upsert(context.Background(), catalog.Game{Title: "123"})
	require.ErrorIs(t, err, store.ErrInvalidTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}

func gameRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "title", "url", "genres", "description", "rating",
		"image_url", "screenshots", "release_date", "created_at", "updated_at",
	})
}

func TestGetByIDScansRecord(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectQuery("SELECT (.+) FROM games WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(gameRows().AddRow(
			int64(7), "Hollow Knight", "https://example.com/hk.html",
			[]byte(`["Action"]`), "Great game overall.", "90",
			"", []byte(`[]`), "", testNow, testNow,
		))

	got, err := s.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Hollow Knight", got.Title)
	require.Equal(t, []string{"Action"}, got.Genres)
	require.Empty(t, got.Screenshots)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectQuery("SELECT (.+) FROM games WHERE id").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestByGenreUsesILIKEByDefault(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectQuery(`genres::text ILIKE`).
		WithArgs("%action%", 5, 5).
		WillReturnRows(gameRows().AddRow(
			int64(1), "Game Six", "", []byte(`["Action"]`), "", "N/A",
			"", []byte(`[]`), "", testNow, testNow,
		))

	games, err := s.ByGenre(context.Background(), "action", 5, 5)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestByGenreUsesLIKEWhenCaseSensitive(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, true)

	mock.ExpectQuery(`genres::text LIKE`).
		WithArgs("%Action%", 10, 0).
		WillReturnRows(gameRows())

	games, err := s.ByGenre(context.Background(), "Action", 10, 0)
	require.NoError(t, err)
	require.Empty(t, games)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchZeroLimitMeansNoLimit(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectQuery(`SELECT (.+) FROM games WHERE title ILIKE`).
		WithArgs("%quest%", nil).
		WillReturnRows(gameRows().AddRow(
			int64(1), "Beta Quest", "", []byte(`[]`), "", "N/A",
			"", []byte(`[]`), "", testNow, testNow,
		))

	games, err := s.Search(context.Background(), "quest", 0)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByGenre(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM games`).
		WithArgs("%action%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	count, err := s.CountByGenre(context.Background(), "action")
	require.NoError(t, err)
	require.Equal(t, 12, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenresBuildsSortedUnion(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectQuery("SELECT genres FROM games").
		WillReturnRows(pgxmock.NewRows([]string{"genres"}).
			AddRow([]byte(`["RPG","Action"]`)).
			AddRow([]byte(`["Action","Adventure"]`)))

	genres, err := s.Genres(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Action", "Adventure", "RPG"}, genres)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsScansCounts(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{"total", "rated", "images", "screens"}).
			AddRow(120, 80, 70, 40))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, store.Stats{
		TotalGames:      120,
		RatedGames:      80,
		WithImages:      70,
		WithScreenshots: 40,
	}, stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRoundTrip(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(int64(7), testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, s.AddNotification(context.Background(), 7))

	sent, err := s.NotificationSent(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaCreatesTables(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t, false)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS games").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS notifications").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
