package matching

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// tokenSortRatio scores the similarity of two already-normalized strings the
// way rapidfuzz's fuzz.token_sort_ratio does: split each into whitespace
// tokens, sort the tokens alphabetically, rejoin, then score the two
// reordered strings by normalized edit distance. Sorting tokens first means
// word order differences ("Trump wins" vs "wins Trump") don't hurt the
// score. Returns a value in [0, 100].
func tokenSortRatio(a, b string) float64 {
	sortedA := sortTokens(a)
	sortedB := sortTokens(b)
	return editRatio(sortedA, sortedB)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// editRatio converts Levenshtein distance into rapidfuzz's normalized
// similarity percentage: 100 * (1 - distance / max(len(a), len(b), 1)).
func editRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 100.0
	}

	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100.0
	}

	ratio := (1.0 - float64(dist)/float64(maxLen)) * 100.0
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

// bestMatch scans candidates for the highest-scoring tokenSortRatio against
// query, returning its index and score. ok is false if candidates is empty
// or the best score falls below scoreCutoff.
func bestMatch(query string, candidates []string, scoreCutoff float64) (idx int, score float64, ok bool) {
	bestIdx := -1
	bestScore := -1.0

	for i, c := range candidates {
		s := tokenSortRatio(query, c)
		if s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < scoreCutoff {
		return 0, 0, false
	}
	return bestIdx, bestScore, true
}
