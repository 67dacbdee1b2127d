// Package match holds the pure string utilities the engine uses for
// duplicate detection and for the local answer-similarity fallback.
package match

import "strings"

// Normalize lower-cases and trims a string for comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// SimilarityRatio maps Levenshtein distance onto [0,1], where 1 is an
// exact match.
func SimilarityRatio(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

// Contains reports whether either normalized string contains the other.
// Strings shorter than 3 characters never count as contained, otherwise
// "cat" would collide with half the dictionary.
func Contains(a, b string) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// AnswerSimilarityThreshold is the Levenshtein ratio above which a
// candidate answer is considered a repeat of an excluded one.
const AnswerSimilarityThreshold = 0.75

// IsAnswerTooSimilar checks a candidate answer against a list of excluded
// answers: exact normalized match, containment, then Levenshtein ratio.
func IsAnswerTooSimilar(candidate string, excluded []string) bool {
	c := Normalize(candidate)
	if c == "" {
		return false
	}
	for _, e := range excluded {
		n := Normalize(e)
		if n == "" {
			continue
		}
		if c == n {
			return true
		}
		if Contains(c, n) {
			return true
		}
		if SimilarityRatio(c, n) > AnswerSimilarityThreshold {
			return true
		}
	}
	return false
}
