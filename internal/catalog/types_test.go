package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"ordinary title", "Hollow Knight", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"too short", "abc", false},
		{"exactly four runes", "Doom", true},
		{"purely numeric", "20231108", false},
		{"numeric with spaces", "12 34", false},
		{"numeric with letters", "Left 4 Dead", true},
		{"cyrillic", "Ведьмак", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ValidTitle(tc.title))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	g := Game{
		Title:       "  Hollow Knight  ",
		Genres:      []string{"Action", " Action ", "", "Platformer"},
		Screenshots: []string{"a.jpg", "a.jpg", "b.jpg"},
	}
	require.True(t, g.Normalize())
	require.Equal(t, "Hollow Knight", g.Title)
	require.Equal(t, []string{"Action", "Platformer"}, g.Genres)
	require.Equal(t, []string{"a.jpg", "b.jpg"}, g.Screenshots)
	require.Equal(t, RatingUnknown, g.Rating)
}

func TestNormalizeDropsEmptyTitle(t *testing.T) {
	t.Parallel()

	g := Game{Title: "  "}
	require.False(t, g.Normalize())
}

func TestNormalizeCapsScreenshots(t *testing.T) {
	t.Parallel()

	g := Game{Title: "Gallery Game"}
	for i := 0; i < MaxScreenshots+5; i++ {
		g.Screenshots = append(g.Screenshots, strings.Repeat("x", i+1)+".jpg")
	}
	require.True(t, g.Normalize())
	require.Len(t, g.Screenshots, MaxScreenshots)
}

func TestDedupeStrings(t *testing.T) {
	t.Parallel()

	require.Nil(t, DedupeStrings(nil))
	require.Nil(t, DedupeStrings([]string{"", "  "}))
	require.Equal(t, []string{"a", "b"}, DedupeStrings([]string{"a", "b", "a", " b "}))
}
