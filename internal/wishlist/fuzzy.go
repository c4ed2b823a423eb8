package wishlist

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchThreshold is the default minimum normalized similarity for two
// character names to be considered the same character.
const MatchThreshold = 0.8

var foldTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// normalizeName lowercases a name, strips diacritics, and collapses interior
// whitespace so "Rém  Rezero" and "rem rezero" compare equal.
func normalizeName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}

	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// namesMatch reports whether two already-normalized names count as the same
// character under the configured matching mode.
func (s *Store) namesMatch(a, b string) bool {
	if a == b {
		return true
	}

	if !s.opts.FuzzyEnabled {
		return false
	}

	return stringSimilarity(a, b) >= s.opts.FuzzyThreshold
}

// stringSimilarity computes a normalized similarity score between two strings,
// from 0.0 (completely different) to 1.0 (identical).
func stringSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	distance := levenshteinDistance(s1, s2)

	maxLen := float64(max(len(s1), len(s2)))

	return 1.0 - float64(distance)/maxLen
}

// levenshteinDistance calculates the edit distance between two strings: the
// minimum number of single-character insertions, deletions, or substitutions
// required to change one into the other.
func levenshteinDistance(s1, s2 string) int {
	// Convert to runes to handle Unicode correctly
	runes1 := []rune(s1)
	runes2 := []rune(s2)

	rows, cols := len(runes1)+1, len(runes2)+1
	dist := make([][]int, rows)
	for i := range dist {
		dist[i] = make([]int, cols)
		dist[i][0] = i
	}
	for j := 1; j < cols; j++ {
		dist[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if runes1[i-1] == runes2[j-1] {
				cost = 0
			}
			dist[i][j] = min(
				dist[i-1][j]+1,      // deletion
				dist[i][j-1]+1,      // insertion
				dist[i-1][j-1]+cost, // substitution
			)
		}
	}

	return dist[rows-1][cols-1]
}
