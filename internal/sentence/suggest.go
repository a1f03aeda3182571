package sentence

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Closest returns the candidate nearest to target, or "" when nothing is
// reasonably close.
func Closest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(target), strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Suggest proposes the sentence prefix the author most likely meant for an
// unrecognised line.
func Suggest(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return ""
	}
	prefixes := Prefixes()
	word := Closest(fields[0], firstWords(prefixes))
	if word == "" {
		return ""
	}
	var group []string
	shortest := ""
	for _, p := range prefixes {
		if strings.Fields(p)[0] != word {
			continue
		}
		group = append(group, p)
		if shortest == "" || len(p) < len(shortest) {
			shortest = p
		}
	}
	n := min(len(fields), 4)
	if best := Closest(strings.Join(fields[:n], " "), group); best != "" {
		return best
	}
	return shortest
}

func firstWords(prefixes []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range prefixes {
		w := strings.Fields(p)[0]
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
