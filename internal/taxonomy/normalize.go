package taxonomy

import "sort"

// NormalizeHitOrder stably sorts every scored node's per-hit lists by
// ascending score, keeping them index-aligned. Nodes without scores are left
// alone.
func NormalizeHitOrder(taxa TaxonSet) {
	for _, n := range taxa {
		if n.Scores == nil {
			continue
		}
		n.sortHits()
	}
}

func (n *Node) sortHits() {
	perm := make([]int, len(n.Scores))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return n.Scores[perm[a]] < n.Scores[perm[b]]
	})

	scores := make([]float64, len(perm))
	genes := make([]string, len(perm))
	names := make([]string, len(perm))
	var headers []*string
	if n.Headers != nil {
		headers = make([]*string, len(perm))
	}
	for dst, src := range perm {
		scores[dst] = n.Scores[src]
		genes[dst] = n.GeneNames[src]
		names[dst] = n.Names[src]
		if headers != nil {
			headers[dst] = n.Headers[src]
		}
	}
	n.Scores, n.GeneNames, n.Names = scores, genes, names
	if headers != nil {
		n.Headers = headers
	}
}
