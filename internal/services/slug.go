package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	slugHyphenRuns   = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a title to a URL-friendly slug: accents are folded,
// whitespace becomes hyphens and everything else outside [a-z0-9-] is dropped.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, title)

	result = strings.ToLower(result)
	result = strings.Join(strings.Fields(result), "-")
	result = slugInvalidChars.ReplaceAllString(result, "")
	result = slugHyphenRuns.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
