package ui

import (
	"sort"
	"strings"
)

// Suggestion limits used by FindSimilar
const (
	MaxSuggestionDistance = 3
	MaxSuggestions        = 3
)

// FindSimilar returns up to MaxSuggestions candidates within
// MaxSuggestionDistance edits of target, closest first. Case is ignored and
// candidate order breaks ties.
//
//	FindSimilar("resource-typ", []string{"minimize-cross-refs", "resource-type"})
//	// ["resource-type"]
func FindSimilar(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	target = strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		if d := EditDistance(target, strings.ToLower(c)); d <= MaxSuggestionDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	out := make([]string, 0, min(len(matches), MaxSuggestions))
	for _, m := range matches[:min(len(matches), MaxSuggestions)] {
		out = append(out, m.value)
	}
	return out
}

// EditDistance is the Levenshtein distance between a and b over runes,
// computed with two rolling rows.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
