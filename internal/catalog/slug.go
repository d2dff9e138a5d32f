package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// SuggestSlug derives an ASCII URL slug from a product title: accents are
// stripped, everything else outside [a-z0-9] becomes a single hyphen. Titles
// with no Latin letters or digits give an empty suggestion.
func SuggestSlug(title string) string {
	// transformers carry state, so each call builds its own chain
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(stripMarks, title)
	if err != nil {
		result = title
	}
	result = nonSlugChars.ReplaceAllString(strings.ToLower(result), "-")
	return strings.Trim(result, "-")
}
