package dictionary

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Similarity scores how alike a and b are in [0, 1]. It is the normalised
// Levenshtein similarity 1 - d/max(len) refined by [Ratio].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	d := matchr.Levenshtein(a, b)
	lev := 1 - float64(d)/float64(max(la, lb))
	if lev < 0 {
		lev = 0
	}
	return lev * Ratio(a, b)
}

// Ratio is the longest-common-subsequence ratio 2*LCS/(len(a)+len(b)).
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 1
	}
	return 2 * float64(matchr.LongestCommonSubsequence(a, b)) / float64(la+lb)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
