package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avdeev/switch-catalog/internal/catalog"
	"github.com/avdeev/switch-catalog/internal/store/memory"
)

type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

func seededService(t *testing.T) (*Service, *tickingClock) {
	t.Helper()
	clock := &tickingClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	db := memory.New(clock, false)
	games := []catalog.Game{
		{Title: "Alpha Strike", Genres: []string{"Action"}, Description: "A frantic shooter."},
		{Title: "Beta Quest", Genres: []string{"RPG", "Adventure"}, Description: "A long journey."},
		{Title: "Gamma Racer", Genres: []string{"Racing"}, Description: "Fast action on wheels."},
	}
	for _, g := range games {
		_, _, err := db.Upsert(context.Background(), g)
		require.NoError(t, err)
	}
	return New(db), clock
}

func TestByIDTranslatesNotFound(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	game, found, err := svc.ByID(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Alpha Strike", game.Title)

	_, found, err = svc.ByID(ctx, 999)
	require.NoError(t, err)
	require.False(t, found)
}

func TestByTitleTrimsInput(t *testing.T) {
	svc, _ := seededService(t)

	game, found, err := svc.ByTitle(context.Background(), "  Beta Quest  ")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Beta Quest", game.Title)

	_, found, err = svc.ByTitle(context.Background(), "Missing Game")
	require.NoError(t, err)
	require.False(t, found)
}

func TestByGenreRequiresGenre(t *testing.T) {
	svc, _ := seededService(t)

	_, err := svc.ByGenre(context.Background(), "  ", 10, 0)
	require.Error(t, err)

	games, err := svc.ByGenre(context.Background(), "RPG", 10, 0)
	require.NoError(t, err)
	require.Len(t, games, 1)

	count, err := svc.CountByGenre(context.Background(), "RPG")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestGenresSorted(t *testing.T) {
	svc, _ := seededService(t)

	genres, err := svc.Genres(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Action", "Adventure", "RPG", "Racing"}, genres)
}

func TestSearchAppliesDefaultLimit(t *testing.T) {
	svc, _ := seededService(t)

	_, err := svc.Search(context.Background(), "", 10)
	require.Error(t, err)

	games, err := svc.Search(context.Background(), "action", 0)
	require.NoError(t, err)
	require.Len(t, games, 2)
}

func TestRecentUsesWindow(t *testing.T) {
	svc, clock := seededService(t)

	games, err := svc.Recent(context.Background(), time.Hour, clock.now, 10)
	require.NoError(t, err)
	require.Len(t, games, 3)
	require.Equal(t, "Gamma Racer", games[0].Title)

	games, err = svc.Recent(context.Background(), time.Minute, clock.now.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, games)
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, defaultLimit, clampLimit(0))
	require.Equal(t, defaultLimit, clampLimit(-5))
	require.Equal(t, 7, clampLimit(7))
	require.Equal(t, maxLimit, clampLimit(1000))
}
