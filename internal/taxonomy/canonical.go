package taxonomy

import (
	"sort"
	"strings"
)

// sortKey concatenates the names along a lineage. Ranks do not participate.
func sortKey(ln Lineage) string {
	var b strings.Builder
	for _, step := range ln {
		b.WriteString(step.Name)
	}
	return b.String()
}

// Canonicalize stably sorts lineages by their concatenated names and drops any
// lineage identical to its predecessor. The input slice is not reordered.
func Canonicalize(lineages []Lineage) []Lineage {
	keys := make([]string, len(lineages))
	order := make([]int, len(lineages))
	for i, ln := range lineages {
		keys[i] = sortKey(ln)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] < keys[order[b]]
	})

	out := make([]Lineage, 0, len(lineages))
	for _, i := range order {
		ln := lineages[i]
		if len(out) > 0 && out[len(out)-1].equal(ln) {
			continue
		}
		out = append(out, append(Lineage(nil), ln...))
	}
	return out
}
