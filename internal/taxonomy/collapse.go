package taxonomy

// carry holds hit data lifted off a leaf whose rank is not kept, until the
// walk toward the root reaches a node that can absorb it.
type carry struct {
	from      string
	count     int
	geneNames []string
	scores    []float64
	headers   []*string
}

func (c *carry) lift(n *Node) {
	c.from = n.Key()
	c.count = n.RawCount
	c.geneNames = append([]string(nil), n.GeneNames...)
	c.scores = append([]float64(nil), n.Scores...)
	c.headers = append([]*string(nil), n.Headers...)
}

// foldInto moves the carried hits onto n and clears the carry. Provenance
// names record the key the hits were lifted from.
func (c *carry) foldInto(n *Node) {
	if c.count <= 0 {
		return
	}
	n.UnaCount += c.count
	n.TotCount += c.count
	n.GeneNames = append(n.GeneNames, c.geneNames...)
	for i := 0; i < c.count; i++ {
		n.Names = append(n.Names, c.from)
	}
	if n.Scores != nil {
		n.Scores = append(n.Scores, c.scores...)
	}
	if n.Headers != nil {
		n.Headers = append(n.Headers, c.headers...)
	}
	*c = carry{}
}

// Collapse removes every lineage step whose rank is outside pattern. Hits on a
// removed leaf move to the nearest kept ancestor; removed interior steps carry
// nothing. Kept nodes found in the raw index are copied with UnaCount seeded
// from RawCount; kept ancestors without a raw entry are created empty.
//
// The raw index is not modified. The sum of UnaCount over the result equals
// the raw hit count.
func Collapse(ri *RawIndex, pattern RankPattern) (TaxonSet, []Lineage) {
	keep := pattern.WithRoot().set()
	scores, headers := ri.Columns.Scores, ri.Columns.Headers

	existent := TaxonSet{}
	created := TaxonSet{}
	trimmed := make([]Lineage, len(ri.Lineages))

	for i := len(ri.Lineages) - 1; i >= 0; i-- {
		ln := ri.Lineages[i]
		var c carry
		kept := make(Lineage, 0, len(ln))

		for j := len(ln) - 1; j >= 0; j-- {
			step := ln[j]
			key := step.Key()

			if _, ok := keep[step.Rank]; !ok {
				if j == len(ln)-1 {
					if raw, ok := ri.Taxa[key]; ok {
						c.lift(raw)
					}
				}
				continue
			}

			var node *Node
			if raw, ok := ri.Taxa[key]; ok {
				node, ok = existent[key]
				if !ok {
					node = raw.clone()
					node.UnaCount = raw.RawCount
					existent[key] = node
				}
			} else {
				node, ok = created[key]
				if !ok {
					node = newNode("", step.Name, step.Rank, scores, headers)
					created[key] = node
				}
			}
			c.foldInto(node)
			kept = append(kept, step)
		}

		for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
			kept[l], kept[r] = kept[r], kept[l]
		}
		trimmed[i] = kept
	}

	merged := make(TaxonSet, len(created)+len(existent))
	for k, n := range created {
		merged[k] = n
	}
	for k, n := range existent {
		merged[k] = n
	}
	return merged, trimmed
}
