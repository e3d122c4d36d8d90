package taxonomy

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"taxsun/internal/errors"
	"taxsun/internal/hits"
	"taxsun/internal/slogutil"
)

// RawIndex is the per-identifier grouping of one dataset before collapsing.
type RawIndex struct {
	Taxa     TaxonSet
	Lineages []Lineage
	Columns  hits.Columns
}

// HitCount is the sum of RawCount over all entries.
func (ri *RawIndex) HitCount() int {
	total := 0
	for _, n := range ri.Taxa {
		total += n.RawCount
	}
	return total
}

// BuildRawIndex groups records by taxonomy identifier. Each identifier is
// resolved once, on first sight; its lineage is appended in first-seen order
// behind the root lineage. A resolver failure aborts the batch.
func BuildRawIndex(ctx context.Context, resolver Resolver, cols hits.Columns, records []hits.Record, logger *slog.Logger) (*RawIndex, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	ri := &RawIndex{
		Taxa:     TaxonSet{RootKey: newNode(hits.RootTaxID, RootRank, RootRank, cols.Scores, cols.Headers)},
		Lineages: []Lineage{{rootStep}},
		Columns:  cols,
	}
	ids := map[string]string{hits.RootTaxID: RootKey}

	for _, rec := range records {
		key, seen := ids[rec.TaxID]
		if !seen {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := resolver.Resolve(ctx, rec.TaxID)
			if err != nil {
				return nil, resolutionError(rec.TaxID, err)
			}

			key = Key(res.Name, res.Rank)
			ids[rec.TaxID] = key
			if _, exists := ri.Taxa[key]; exists {
				logger.Warn("Taxonomy identifiers share a taxon key, merging hits",
					"taxID", rec.TaxID,
					"key", key,
				)
			} else {
				ri.Taxa[key] = newNode(rec.TaxID, res.Name, res.Rank, cols.Scores, cols.Headers)
				ri.Lineages = append(ri.Lineages, lineageOf(res))
			}
		}
		ri.Taxa[key].addHit(key, rec, cols)
	}

	logger.Debug("Raw index built",
		"records", len(records),
		"taxa", len(ri.Taxa),
		"lineages", len(ri.Lineages),
	)
	return ri, nil
}

// lineageOf reverses the ancestors behind the root step and appends the taxon
// itself unless it already closes the path.
func lineageOf(res *Resolution) Lineage {
	ln := make(Lineage, 0, len(res.Ancestors)+2)
	ln = append(ln, rootStep)
	for i := len(res.Ancestors) - 1; i >= 0; i-- {
		ln = append(ln, res.Ancestors[i])
	}
	self := RankName{Rank: res.Rank, Name: res.Name}
	if ln.Leaf() != self {
		ln = append(ln, self)
	}
	return ln
}

func (n *Node) addHit(key string, rec hits.Record, cols hits.Columns) {
	n.RawCount++
	n.TotCount++
	n.Names = append(n.Names, key)
	n.GeneNames = append(n.GeneNames, rec.GeneName)
	if cols.Scores {
		n.Scores = append(n.Scores, rec.ScoreOr())
	}
	if cols.Headers {
		n.Headers = append(n.Headers, rec.Header)
	}
}

func resolutionError(id string, err error) error {
	var coded *errors.Error
	if errors.As(err, &coded) {
		return err
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.New(errors.UnknownIdentifier, fmt.Sprintf("cannot resolve taxonomy ID %q", id), err).
		WithDetails(map[string]interface{}{"taxID": id})
}
