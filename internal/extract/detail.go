package extract

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/avdeev/switch-catalog/internal/catalog"
)

// ErrNoTitle means every title strategy came up empty; the candidate is
// dropped rather than persisted.
var ErrNoTitle = errors.New("no usable title on detail page")

const (
	minParagraphLen   = 20
	minDescriptionLen = 100
)

// mainContentSelector anchors the authoritative genre lookup. Markup drift
// outside this container is handled by the page-wide fallback.
const mainContentSelector = "body > section.wrap.cf > section > div > div > article"

// DetailExtractor turns one detail page's markup into a full Game record
// using per-field cascades of strategies. Each field is isolated: a panic in
// one strategy never aborts extraction of the other fields.
type DetailExtractor struct {
	logger *zap.Logger
}

// NewDetailExtractor builds a DetailExtractor.
func NewDetailExtractor(logger *zap.Logger) *DetailExtractor {
	return &DetailExtractor{logger: logger}
}

// Extract parses a detail page. The returned record has every recoverable
// field populated; missing fields hold their empty or sentinel value. It
// fails only when the markup cannot be parsed or no title is found.
func (e *DetailExtractor) Extract(markup []byte, pageURL string) (catalog.Game, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return catalog.Game{}, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return catalog.Game{}, err
	}

	game := catalog.Game{
		URL:    pageURL,
		Rating: catalog.RatingUnknown,
	}
	game.Title = e.firstString("title", doc, titleStrategies)
	game.Genres = e.firstList("genres", doc, genreStrategies)
	game.Description = e.firstString("description", doc, descriptionStrategies)
	game.Rating = e.ratingField(doc)
	game.ImageURL, game.Screenshots = e.imageFields(doc, base)
	game.ReleaseDate = e.firstString("release_date", doc, releaseDateStrategies)

	if !game.Normalize() {
		return catalog.Game{}, ErrNoTitle
	}
	return game, nil
}

type stringStrategy func(doc *goquery.Document) string

type listStrategy func(doc *goquery.Document) []string

// firstString evaluates strategies in order until one yields a non-empty
// value. Panicking strategies count as a miss.
func (e *DetailExtractor) firstString(field string, doc *goquery.Document, strategies []stringStrategy) string {
	for _, strategy := range strategies {
		value := e.safeString(field, strategy, doc)
		if value != "" {
			return value
		}
	}
	return ""
}

func (e *DetailExtractor) firstList(field string, doc *goquery.Document, strategies []listStrategy) []string {
	for _, strategy := range strategies {
		values := e.safeList(field, strategy, doc)
		if len(values) > 0 {
			return values
		}
	}
	return nil
}

func (e *DetailExtractor) safeString(field string, strategy stringStrategy, doc *goquery.Document) (value string) {
	defer e.recoverField(field)
	return strategy(doc)
}

func (e *DetailExtractor) safeList(field string, strategy listStrategy, doc *goquery.Document) (values []string) {
	defer e.recoverField(field)
	return strategy(doc)
}

func (e *DetailExtractor) recoverField(field string) {
	if r := recover(); r != nil {
		e.logger.Warn("Field extraction strategy panicked",
			zap.String("field", field), zap.Any("panic", r))
	}
}

var titleStrategies = []stringStrategy{
	func(doc *goquery.Document) string {
		return CleanText(doc.Find("h1.title, h1[itemprop=name]").First().Text())
	},
	func(doc *goquery.Document) string {
		return CleanText(doc.Find("h1").First().Text())
	},
	func(doc *goquery.Document) string {
		return CleanText(doc.Find("h2.title, h2").First().Text())
	},
	// Page title metadata as last resort; site suffix stripped.
	func(doc *goquery.Document) string {
		title := CleanText(doc.Find("title").First().Text())
		for _, sep := range []string{" — ", " - ", " | "} {
			if idx := strings.Index(title, sep); idx > 0 {
				title = title[:idx]
				break
			}
		}
		return title
	},
}

var genreStrategies = []listStrategy{
	// Authoritative: comma-separated genre attribute inside the main
	// content container.
	func(doc *goquery.Document) []string {
		value := doc.Find(mainContentSelector).
			Find("meta[itemprop=genre]").First().AttrOr("content", "")
		return SplitGenres(value)
	},
	// Same attribute anywhere on the page (markup drift).
	func(doc *goquery.Document) []string {
		return SplitGenres(doc.Find("meta[itemprop=genre]").First().AttrOr("content", ""))
	},
	// Approximate keyword scan over visible text; engaged only when the
	// metadata is wholly absent.
	func(doc *goquery.Document) []string {
		return GenresFromVocabulary(doc.Find("body").Text())
	},
}

var descriptionStrategies = []stringStrategy{
	// The designated "full story" container: paragraphs of reasonable
	// length joined by blank lines, accepted only when the total is long
	// enough to rule out token fragments.
	func(doc *goquery.Document) string {
		return paragraphsText(doc.Find("div.full-story").First().Find("p"))
	},
	func(doc *goquery.Document) string {
		return paragraphsText(doc.Find("article p"))
	},
	func(doc *goquery.Document) string {
		return paragraphsText(doc.Find(".description, .game-description, .summary, .about, [itemprop=description]").First().Find("p"))
	},
	func(doc *goquery.Document) string {
		text := CleanText(doc.Find(".description, .game-description, .summary, .about, [itemprop=description]").First().Text())
		if len([]rune(text)) < minDescriptionLen {
			return ""
		}
		return text
	},
	// First sufficiently long standalone paragraph.
	func(doc *goquery.Document) string {
		var found string
		doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			text := CleanText(p.Text())
			if len([]rune(text)) >= minDescriptionLen {
				found = text
				return false
			}
			return true
		})
		return found
	},
	func(doc *goquery.Document) string {
		return CleanText(doc.Find(`meta[name=description]`).First().AttrOr("content", ""))
	},
}

// paragraphsText concatenates paragraph texts of sufficient length, joined
// by blank lines. The result is discarded when the total is too short.
func paragraphsText(paragraphs *goquery.Selection) string {
	var parts []string
	total := 0
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		text := CleanText(p.Text())
		if len([]rune(text)) < minParagraphLen {
			return
		}
		parts = append(parts, text)
		total += len([]rune(text))
	})
	if total < minDescriptionLen {
		return ""
	}
	return strings.Join(parts, "\n\n")
}

func (e *DetailExtractor) ratingField(doc *goquery.Document) string {
	value := e.firstString("rating", doc, ratingStrategies)
	if value == "" {
		return catalog.RatingUnknown
	}
	return value
}

var ratingStrategies = []stringStrategy{
	func(doc *goquery.Document) string {
		value := doc.Find("[itemprop=ratingValue]").First().AttrOr("content", "")
		if value == "" {
			value = CleanText(doc.Find("[itemprop=ratingValue]").First().Text())
		}
		if value == "" {
			return ""
		}
		normalized := NormalizeRating(value + "/10")
		if normalized == catalog.RatingUnknown {
			return ""
		}
		return normalized
	},
	func(doc *goquery.Document) string {
		text := CleanText(doc.Find(".rating, .score, .rate").Text())
		normalized := NormalizeRating(text)
		if normalized == catalog.RatingUnknown {
			return ""
		}
		return normalized
	},
	func(doc *goquery.Document) string {
		normalized := NormalizeRating(doc.Find("body").Text())
		if normalized == catalog.RatingUnknown {
			return ""
		}
		return normalized
	},
}

// imageFields picks the main poster image and up to the screenshot cap of
// gallery images. Relative URLs resolve against the detail page URL.
func (e *DetailExtractor) imageFields(doc *goquery.Document, base *url.URL) (string, []string) {
	defer e.recoverField("images")

	var mainImage string
	var screenshots []string

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", img.AttrOr("data-src", ""))
		if src == "" {
			return
		}
		abs := absoluteURL(src, base)
		if abs == "" {
			return
		}
		class := img.AttrOr("class", "")
		switch {
		case mainImage == "" && containsAny(class, "poster", "cover", "main"):
			mainImage = abs
		case containsAny(class, "screenshot", "screen", "gallery"):
			screenshots = append(screenshots, abs)
		}
	})

	if mainImage == "" && len(screenshots) > 0 {
		mainImage = screenshots[0]
		screenshots = screenshots[1:]
	}
	screenshots = catalog.DedupeStrings(screenshots)
	if len(screenshots) > catalog.MaxScreenshots {
		screenshots = screenshots[:catalog.MaxScreenshots]
	}
	return mainImage, screenshots
}

var releaseDateStrategies = []stringStrategy{
	func(doc *goquery.Document) string {
		value := doc.Find("time[datetime]").First().AttrOr("datetime", "")
		return CleanText(value)
	},
	func(doc *goquery.Document) string {
		return CleanText(doc.Find(".date, .release-date, .published").First().Text())
	},
}

func containsAny(haystack string, needles ...string) bool {
	haystack = strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
