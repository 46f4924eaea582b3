package domain

import (
	"strings"
)

// NormalizeText prepares a search query for case-insensitive substring
// matching. A query made only of whitespace normalizes to "" (no filter);
// any other query is lowercased with its whitespace kept exactly, so
// "york " and "new  mexico" match only text containing those runs.
//
// Diacritics, hyphens, and apostrophes are preserved.
func NormalizeText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return strings.ToLower(text)
}

// ContainsNormalized reports whether text contains an already normalized
// query, ignoring case. An empty query matches nothing.
func ContainsNormalized(text, normalizedQuery string) bool {
	if normalizedQuery == "" || text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), normalizedQuery)
}
