package taxonomy

import (
	"context"
	"sync"

	"taxsun/internal/errors"
)

func rn(rank, name string) RankName { return RankName{Rank: rank, Name: name} }

var (
	hominidae = []RankName{
		rn("family", "Hominidae"), rn("order", "Primates"), rn("class", "Mammalia"),
		rn("phylum", "Chordata"), rn("kingdom", "Metazoa"), rn("superkingdom", "Eukaryota"),
	}
	enterobacterales = []RankName{
		rn("order", "Enterobacterales"), rn("clade", "Gamma clade"), rn("class", "Gammaproteobacteria"),
		rn("phylum", "Pseudomonadota"), rn("superkingdom", "Bacteria"),
	}
)

func chain(head []RankName, tail ...[]RankName) []RankName {
	out := append([]RankName{}, head...)
	for _, t := range tail {
		out = append(out, t...)
	}
	return out
}

// fixtureTaxa mirrors a small slice of the NCBI tree. Some ancestor lists
// start with the taxon itself and some do not, as real directories vary.
var fixtureTaxa = map[string]*Resolution{
	"9606": {
		Name: "Homo sapiens", Rank: "species",
		Ancestors: chain([]RankName{rn("species", "Homo sapiens"), rn("genus", "Homo")}, hominidae),
	},
	"9605": {
		Name: "Homo sapiens ssp.", Rank: "subspecies",
		Ancestors: chain([]RankName{rn("genus", "Homo")}, hominidae),
	},
	"9598": {
		Name: "Pan troglodytes", Rank: "species",
		Ancestors: chain([]RankName{rn("genus", "Pan")}, hominidae),
	},
	"562": {
		Name: "Escherichia coli", Rank: "species",
		Ancestors: chain([]RankName{
			rn("species", "Escherichia coli"), rn("genus", "Escherichia"), rn("family", "Enterobacteriaceae"),
		}, enterobacterales),
	},
	"83333": {
		Name: "Escherichia coli K-12", Rank: "strain",
		Ancestors: chain([]RankName{
			rn("strain", "Escherichia coli K-12"), rn("species", "Escherichia coli"),
			rn("genus", "Escherichia"), rn("family", "Enterobacteriaceae"),
		}, enterobacterales),
	},
	"1224": {
		Name: "Gamma clade", Rank: "clade",
		Ancestors: []RankName{
			rn("clade", "Gamma clade"), rn("class", "Gammaproteobacteria"),
			rn("phylum", "Pseudomonadota"), rn("superkingdom", "Bacteria"),
		},
	},
	"2": {
		Name: "Bacteria", Rank: "superkingdom",
		Ancestors: []RankName{rn("superkingdom", "Bacteria")},
	},
}

type fakeResolver struct {
	mu    sync.Mutex
	taxa  map[string]*Resolution
	calls map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{taxa: fixtureTaxa, calls: map[string]int{}}
}

func (f *fakeResolver) Resolve(_ context.Context, id string) (*Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	res, ok := f.taxa[id]
	if !ok {
		return nil, errors.Newf(errors.UnknownIdentifier, "taxonomy ID %s not found", id)
	}
	return res, nil
}

func (f *fakeResolver) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}
