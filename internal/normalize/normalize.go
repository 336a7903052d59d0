// Package normalize provides text normalization used for catalog search and
// ordering, so "Álgebra" and "algebra" index and sort the same way.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches runs of whitespace.
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Fold lowercases a string and strips diacritics and non-ASCII characters.
// Used for index fields and search terms.
func Fold(s string) string {
	// Decompose accented characters, then drop the combining marks.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = strings.ToLower(s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// SortKey produces a stable ordering key for a title: folded, with
// punctuation collapsed to single hyphens.
// "Data Structures & Algorithms" -> "data-structures-algorithms".
func SortKey(s string) string {
	s = Fold(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Branch canonicalizes a branch code for filtering: trimmed and uppercased.
// "cse " -> "CSE".
func Branch(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
