// Package similarity provides the pure scoring primitives used by the
// matcher: normalized string similarity, numeric proximity, and the
// date-window bonus.
package similarity

import (
	"math"
	"strings"
	"time"
)

// Date window scoring constants. A transaction is expected to follow its
// order within the window; one that apparently precedes its order is
// suspicious.
const (
	DateBonus   = 0.1
	DatePenalty = -0.05
)

// StringSimilarity returns a case-insensitive similarity in [0,1]:
// 1 for an exact match, otherwise 1 minus the Levenshtein distance of the
// lowercased strings divided by the longer length. Both strings empty
// yields 1; exactly one empty yields 0. Symmetric.
func StringSimilarity(a, b string) float64 {
	s1 := []rune(strings.ToLower(a))
	s2 := []rune(strings.ToLower(b))

	if len(s1) == 0 && len(s2) == 0 {
		return 1
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}
	if string(s1) == string(s2) {
		return 1
	}

	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}

	return 1 - float64(levenshtein(s1, s2))/float64(maxLen)
}

// levenshtein computes the classic edit distance using a rolling
// two-row matrix.
func levenshtein(s1, s2 []rune) int {
	prev := make([]int, len(s1)+1)
	curr := make([]int, len(s1)+1)

	for i := 0; i <= len(s1); i++ {
		prev[i] = i
	}

	for j := 1; j <= len(s2); j++ {
		curr[0] = j
		for i := 1; i <= len(s1); i++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[i] = min3(
				curr[i-1]+1,      // insertion
				prev[i]+1,        // deletion
				prev[i-1]+cost,   // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s1)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// NumericProximity returns 1 when x == y (including both zero),
// otherwise max(0, 1 - |x-y| / max(|x|,|y|)).
func NumericProximity(x, y float64) float64 {
	if x == y {
		return 1
	}

	maxAbs := math.Max(math.Abs(x), math.Abs(y))
	if maxAbs == 0 {
		return 1
	}

	return math.Max(0, 1-math.Abs(x-y)/maxAbs)
}

// DateWindowBonus returns DateBonus when candidate falls within
// windowDays on or after reference, DatePenalty when candidate precedes
// reference, and 0 otherwise. Zero dates score 0.
func DateWindowBonus(candidate, reference time.Time, windowDays int) float64 {
	if candidate.IsZero() || reference.IsZero() {
		return 0
	}

	if candidate.Before(reference) {
		return DatePenalty
	}

	days := candidate.Sub(reference).Hours() / 24
	if days <= float64(windowDays) {
		return DateBonus
	}

	return 0
}
