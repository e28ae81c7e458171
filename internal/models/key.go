package models

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	spaceRegex       = regexp.MustCompile(`\s+`)
)

// CatalogKey creates a normalized brand|model key for caching lookups.
// "Apple", "iPhone 15" and " APPLE ", "iphone-15" map to the same key.
func CatalogKey(brand, model string) string {
	return NormalizeKeyPart(brand) + "|" + NormalizeKeyPart(model)
}

// NormalizeKeyPart lower-cases s, strips punctuation and diacritics and collapses spaces
func NormalizeKeyPart(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = punctuationRegex.ReplaceAllString(s, " ")
	s = removeDiacritics(s)
	s = spaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func removeDiacritics(s string) string {
	t := norm.NFD.String(s)
	var result strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
