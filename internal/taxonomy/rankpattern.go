package taxonomy

// RankPattern is the ordered whitelist of ranks kept when collapsing.
type RankPattern []string

// DefaultRankPattern returns the rank ladder from root down to species.
func DefaultRankPattern() RankPattern {
	return RankPattern{
		"root", "superkingdom", "kingdom", "subkingdom", "superphylum", "phylum", "subphylum",
		"superclass", "class", "subclass", "superorder", "order", "suborder", "superfamily",
		"family", "subfamily", "supergenus", "genus", "subgenus", "superspecies", "species",
	}
}

// WithRoot returns the pattern with "root" prepended if it is missing. The
// root node always survives collapsing.
func (p RankPattern) WithRoot() RankPattern {
	for _, r := range p {
		if r == RootRank {
			return p
		}
	}
	return append(RankPattern{RootRank}, p...)
}

func (p RankPattern) set() map[string]struct{} {
	s := make(map[string]struct{}, len(p))
	for _, r := range p {
		s[r] = struct{}{}
	}
	return s
}
