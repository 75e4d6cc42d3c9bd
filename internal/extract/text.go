package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/avdeev/switch-catalog/internal/catalog"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace and trims the result.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// SplitGenres parses a comma-separated genre attribute: segments are
// trimmed, empty segments dropped, duplicates removed, order preserved.
func SplitGenres(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = CleanText(p)
	}
	return catalog.DedupeStrings(parts)
}

var ratingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*/\s*10`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*из\s*10`),
	regexp.MustCompile(`(?i)рейтинг:?\s*(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*балл`),
}

// NormalizeRating scans text for a rating in any of the supported formats
// and normalizes it to a 0-100 scale (10-point inputs are multiplied by 10).
// It returns catalog.RatingUnknown when nothing matches.
func NormalizeRating(text string) string {
	if text == "" {
		return catalog.RatingUnknown
	}
	for _, re := range ratingPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", ".")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if value <= 10 {
			value *= 10
		}
		if value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}
		return strconv.Itoa(int(value + 0.5))
	}
	return catalog.RatingUnknown
}

// genreVocabulary is the bilingual keyword list used by the last-resort
// genre fallback. Matching against it is approximate: a vocabulary term
// merely appearing in page text is taken as a genre, so results are
// best-effort, never authoritative.
var genreVocabulary = []string{
	"Action", "Adventure", "RPG", "Role-Playing", "Strategy", "Puzzle",
	"Simulation", "Sports", "Racing", "Fighting", "Platformer",
	"Shooter", "Stealth", "Survival", "Horror", "Music", "Party",
	"Educational", "Family", "Casual", "Indie", "Multiplayer",
	"Arcade", "Roguelike", "Metroidvania", "Visual Novel", "Open World",
	"Экшен", "Приключения", "Ролевая игра", "Стратегия", "Головоломка",
	"Симулятор", "Спорт", "Гонки", "Файтинг", "Платформер",
	"Шутер", "Выживание", "Хоррор", "Аркада",
}

// GenresFromVocabulary scans free text for known genre keywords. Order
// follows the vocabulary, not the text.
func GenresFromVocabulary(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var found []string
	for _, genre := range genreVocabulary {
		if strings.Contains(lower, strings.ToLower(genre)) {
			found = append(found, genre)
		}
	}
	return catalog.DedupeStrings(found)
}

// TitleFromSlug derives a readable title from a detail URL slug, e.g.
// "hollow-knight-voidheart.html" becomes "Hollow Knight Voidheart".
func TitleFromSlug(slug string) string {
	slug = strings.TrimSuffix(slug, ".html")
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return CleanText(strings.Join(words, " "))
}
