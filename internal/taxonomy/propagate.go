package taxonomy

import (
	"fmt"

	"taxsun/internal/errors"
)

// Propagate walks each lineage from its leaf toward the root. Every node
// strictly between root and leaf gains the leaf's UnaCount in TotCount, the
// leaf key in Children and the next step down in DirectChildren (skipped when
// it repeats the last entry). The root gains the count and leaf key of every
// non-root leaf. LnIndex is overwritten with the position in the current
// lineage.
func Propagate(lineages []Lineage, taxa TaxonSet) error {
	root, ok := taxa[RootKey]
	if !ok {
		return errors.New(errors.InternalError, "taxon set has no root node", nil)
	}

	for _, ln := range lineages {
		if len(ln) == 0 {
			continue
		}
		leafKey := ln.Leaf().Key()
		leaf, err := lookup(taxa, leafKey)
		if err != nil {
			return err
		}
		leaf.LnIndex = len(ln) - 1

		for j := len(ln) - 2; j >= 1; j-- {
			anc, err := lookup(taxa, ln[j].Key())
			if err != nil {
				return err
			}
			anc.TotCount += leaf.UnaCount
			anc.Children = append(anc.Children, leafKey)
			next := ln[j+1].Key()
			if d := anc.DirectChildren; len(d) == 0 || d[len(d)-1] != next {
				anc.DirectChildren = append(anc.DirectChildren, next)
			}
			anc.LnIndex = j
		}

		if leafKey != RootKey {
			root.TotCount += leaf.UnaCount
			root.Children = append(root.Children, leafKey)
		}
	}
	return nil
}

func lookup(taxa TaxonSet, key string) (*Node, error) {
	n, ok := taxa[key]
	if !ok {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("lineage references unknown taxon %q", key), nil)
	}
	return n, nil
}
