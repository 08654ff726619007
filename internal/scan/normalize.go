package scan

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics removes diacritical marks from a string (e.g., "Škoda" -> "Skoda").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeCamera cleans an EXIF camera model for stable grouping and
// filtering: diacritics stripped, whitespace collapsed, edges trimmed.
func NormalizeCamera(model string) string {
	return strings.Join(strings.Fields(removeDiacritics(model)), " ")
}
