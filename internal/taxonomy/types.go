// Package taxonomy aggregates taxonomic hit records into a summary tree.
//
// The pipeline runs in five passes over one dataset: BuildRawIndex groups
// records by taxonomy identifier and resolves lineages, Collapse folds ranks
// outside the RankPattern into their nearest kept ancestor, Canonicalize sorts
// and deduplicates lineages, Propagate accumulates totals and child links, and
// NormalizeHitOrder sorts each node's per-hit lists by score.
package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
)

// RootKey is the key of the synthetic root node.
const RootKey = "root root"

// RootRank is the rank (and name) of the synthetic root node.
const RootRank = "root"

// Key builds the composite "<name> <rank>" key for a taxon.
func Key(name, rank string) string {
	return name + " " + rank
}

// RankName is one lineage step. It serializes as a [rank, name] pair.
type RankName struct {
	Rank string
	Name string
}

// Key returns the composite key of the step.
func (p RankName) Key() string {
	return Key(p.Name, p.Rank)
}

func (p RankName) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Rank, p.Name})
}

func (p *RankName) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("lineage step must be a [rank, name] pair: %w", err)
	}
	p.Rank, p.Name = pair[0], pair[1]
	return nil
}

func (p RankName) MarshalYAML() (interface{}, error) {
	return []string{p.Rank, p.Name}, nil
}

// rootStep opens every lineage.
var rootStep = RankName{Rank: RootRank, Name: RootRank}

// Lineage is a root-first path of lineage steps.
type Lineage []RankName

// Leaf returns the last step.
func (l Lineage) Leaf() RankName {
	return l[len(l)-1]
}

func (l Lineage) equal(o Lineage) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// Node is one taxon in the aggregation result.
//
// Names, GeneNames, Scores and Headers are parallel: entry i of each describes
// the same hit. Scores is nil unless the score column is enabled and Headers is
// nil unless the header column is enabled. LnIndex is the node's position in the
// last lineage that touched it, not a stable depth.
type Node struct {
	TaxID          string
	Name           string
	Rank           string
	RawCount       int
	UnaCount       int
	TotCount       int
	LnIndex        int
	Names          []string
	GeneNames      []string
	Scores         []float64
	Headers        []*string
	Children       []string
	DirectChildren []string
}

// Key returns the node's composite key.
func (n *Node) Key() string {
	return Key(n.Name, n.Rank)
}

// newNode returns an empty node with per-hit lists allocated for the enabled columns.
func newNode(taxID, name, rank string, scores, headers bool) *Node {
	n := &Node{
		TaxID:          taxID,
		Name:           name,
		Rank:           rank,
		Names:          []string{},
		GeneNames:      []string{},
		Children:       []string{},
		DirectChildren: []string{},
	}
	if scores {
		n.Scores = []float64{}
	}
	if headers {
		n.Headers = []*string{}
	}
	return n
}

func (n *Node) clone() *Node {
	c := *n
	c.Names = append([]string{}, n.Names...)
	c.GeneNames = append([]string{}, n.GeneNames...)
	c.Children = append([]string{}, n.Children...)
	c.DirectChildren = append([]string{}, n.DirectChildren...)
	if n.Scores != nil {
		c.Scores = append([]float64{}, n.Scores...)
	}
	if n.Headers != nil {
		c.Headers = append([]*string{}, n.Headers...)
	}
	return &c
}

// nodeWire is the serialized form. Pointer slices keep an enabled but empty
// list in the output while dropping disabled ones.
type nodeWire struct {
	TaxID          string     `json:"taxID" yaml:"taxID"`
	Name           string     `json:"name" yaml:"name"`
	Rank           string     `json:"rank" yaml:"rank"`
	RawCount       int        `json:"rawCount" yaml:"rawCount"`
	UnaCount       int        `json:"unaCount" yaml:"unaCount"`
	TotCount       int        `json:"totCount" yaml:"totCount"`
	LnIndex        int        `json:"lnIndex" yaml:"lnIndex"`
	Names          []string   `json:"names" yaml:"names"`
	GeneNames      []string   `json:"geneNames" yaml:"geneNames"`
	EValues        *[]float64 `json:"eValues,omitempty" yaml:"eValues,omitempty"`
	FastaHeaders   *[]*string `json:"fastaHeaders,omitempty" yaml:"fastaHeaders,omitempty"`
	Children       []string   `json:"children" yaml:"children"`
	DirectChildren []string   `json:"directChildren" yaml:"directChildren"`
}

func (n *Node) wire() nodeWire {
	w := nodeWire{
		TaxID:          n.TaxID,
		Name:           n.Name,
		Rank:           n.Rank,
		RawCount:       n.RawCount,
		UnaCount:       n.UnaCount,
		TotCount:       n.TotCount,
		LnIndex:        n.LnIndex,
		Names:          n.Names,
		GeneNames:      n.GeneNames,
		Children:       n.Children,
		DirectChildren: n.DirectChildren,
	}
	if n.Scores != nil {
		w.EValues = &n.Scores
	}
	if n.Headers != nil {
		w.FastaHeaders = &n.Headers
	}
	return w
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.wire())
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Node{
		TaxID:          w.TaxID,
		Name:           w.Name,
		Rank:           w.Rank,
		RawCount:       w.RawCount,
		UnaCount:       w.UnaCount,
		TotCount:       w.TotCount,
		LnIndex:        w.LnIndex,
		Names:          w.Names,
		GeneNames:      w.GeneNames,
		Children:       w.Children,
		DirectChildren: w.DirectChildren,
	}
	if w.EValues != nil {
		n.Scores = *w.EValues
	}
	if w.FastaHeaders != nil {
		n.Headers = *w.FastaHeaders
	}
	return nil
}

func (n *Node) MarshalYAML() (interface{}, error) {
	return n.wire(), nil
}

// TaxonSet maps composite keys to nodes.
type TaxonSet map[string]*Node

// Resolution is what the taxonomy directory knows about one identifier.
// Ancestors run from the taxon (or its parent) toward the root.
type Resolution struct {
	Name      string
	Rank      string
	Ancestors []RankName
}

// Resolver resolves taxonomy identifiers. Implementations must be safe for
// concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*Resolution, error)
}

// Directory is a Resolver that can also search identifiers by name.
type Directory interface {
	Resolver
	LookupIDsByName(ctx context.Context, name string) ([]string, error)
}
