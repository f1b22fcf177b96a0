// Package match scores transcripts against cue phrases.
package match

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Scorer finds the best candidate for a query string. Implementations return
// the matched candidate, a similarity score in [0,100], and the candidate's
// index; index is -1 when candidates is empty.
type Scorer interface {
	BestMatch(query string, candidates []string) (match string, score int, index int)
}

// PartialRatioScorer scores with token-window partial similarity, the same
// discipline a prompter needs: the spoken line usually contains the cue
// phrase plus extra words.
type PartialRatioScorer struct{}

// BestMatch returns the highest-scoring candidate. Ties keep the earliest
// candidate, so catalog order is authoritative.
func (PartialRatioScorer) BestMatch(query string, candidates []string) (string, int, int) {
	best, bestScore, bestIdx := "", 0, -1
	for i, cand := range candidates {
		score := fuzzy.PartialRatio(query, cand)
		if score > bestScore || bestIdx == -1 {
			best, bestScore, bestIdx = cand, score, i
		}
	}
	return best, bestScore, bestIdx
}

// PrefixTokens normalizes a transcript to its first n lower-cased tokens.
func PrefixTokens(text string, n int) []string {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return tokens
}

// ExactPrefix returns the index of the first candidate token sequence that is
// a prefix of tokens, or -1. Candidate tokens are compared case-insensitively.
func ExactPrefix(tokens []string, candidates [][]string) int {
	for i, want := range candidates {
		if len(want) == 0 || len(tokens) < len(want) {
			continue
		}
		ok := true
		for j := range want {
			if tokens[j] != strings.ToLower(want[j]) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}
