package taxdb

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"taxsun/internal/errors"
	"taxsun/internal/slogutil"
	"taxsun/internal/storage"
	"taxsun/internal/taxonomy"
)

// noRank marks NCBI nodes that carry no rank; they never appear in the
// rank-to-name dictionary.
const noRank = "no rank"

// Meta keys recorded by Import.
const (
	MetaImportedAt = "taxdump_imported_at"
	MetaFetchedAt  = "taxdump_fetched_at"
	MetaTaxaCount  = "taxdump_taxa"
)

// Import loads the taxdump in dir into db, replacing any previous contents.
// fetchedAt identifies the dump so that a provider can tell whether a
// re-import is due; it may be zero.
func Import(ctx context.Context, db *storage.DB, dir string, fetchedAt time.Time, logger *slog.Logger) (int, error) {
	start := time.Now()
	dump, err := ReadDump(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read taxdump: %w", err)
	}

	if err := storage.NewTaxonomyStore(db).Replace(ctx, dump.Taxa, dump.Merged); err != nil {
		return 0, err
	}

	meta := map[string]string{
		MetaImportedAt: time.Now().UTC().Format(time.RFC3339),
		MetaTaxaCount:  strconv.Itoa(len(dump.Taxa)),
	}
	if !fetchedAt.IsZero() {
		meta[MetaFetchedAt] = fetchedAt.UTC().Format(time.RFC3339)
	}
	for k, v := range meta {
		if err := db.SetMeta(ctx, k, v); err != nil {
			return 0, err
		}
	}

	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	logger.Info("Taxonomy imported",
		"taxa", len(dump.Taxa),
		"merged", len(dump.Merged),
		"duration", time.Since(start),
	)
	return len(dump.Taxa), nil
}

// Directory resolves taxonomy identifiers and names against an imported
// taxdump. Resolutions are memoized; it is safe for concurrent use.
type Directory struct {
	store  *storage.TaxonomyStore
	logger *slog.Logger

	mu   sync.RWMutex
	memo map[int64]*taxonomy.Resolution
}

// NewDirectory creates a directory over db.
func NewDirectory(db *storage.DB, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Directory{
		store:  storage.NewTaxonomyStore(db),
		logger: logger,
		memo:   make(map[int64]*taxonomy.Resolution),
	}
}

// Resolve returns the scientific name, rank and ancestor dictionary of id.
// Ancestors start at the taxon itself and end next to the root; "no rank"
// nodes are skipped and a rank seen twice keeps its first position but the
// name found closer to the root. Retired identifiers are followed to their
// replacement.
func (d *Directory) Resolve(ctx context.Context, id string) (*taxonomy.Resolution, error) {
	taxID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || taxID <= 0 {
		return nil, unknownID(id)
	}

	d.mu.RLock()
	res, ok := d.memo[taxID]
	d.mu.RUnlock()
	if ok {
		return res, nil
	}

	effective := taxID
	if newID, merged, err := d.store.MergedInto(ctx, taxID); err != nil {
		return nil, err
	} else if merged {
		d.logger.Debug("Following merged taxonomy ID", "from", taxID, "to", newID)
		effective = newID
	}

	rows, err := d.store.Lineage(ctx, effective)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, unknownID(id)
	}

	res = &taxonomy.Resolution{
		Name:      rows[0].Name,
		Rank:      rows[0].Rank,
		Ancestors: rankNameDictionary(rows),
	}

	d.mu.Lock()
	d.memo[taxID] = res
	d.mu.Unlock()
	return res, nil
}

// rankNameDictionary folds a taxon-first lineage into ordered rank/name pairs.
func rankNameDictionary(rows []storage.TaxonRow) []taxonomy.RankName {
	out := make([]taxonomy.RankName, 0, len(rows))
	pos := make(map[string]int, len(rows))
	for _, r := range rows {
		if r.Rank == noRank {
			continue
		}
		if i, seen := pos[r.Rank]; seen {
			out[i].Name = r.Name
			continue
		}
		pos[r.Rank] = len(out)
		out = append(out, taxonomy.RankName{Rank: r.Rank, Name: r.Name})
	}
	return out
}

// LookupIDsByName returns the identifiers whose scientific name matches name
// exactly after normalization, in ascending numeric order. No match is an
// empty slice, not an error.
func (d *Directory) LookupIDsByName(ctx context.Context, name string) ([]string, error) {
	ids, err := d.store.IDsByName(ctx, NormalizeName(name))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out, nil
}

// Count returns the number of taxa in the directory.
func (d *Directory) Count(ctx context.Context) (int, error) {
	return d.store.Count(ctx)
}

func unknownID(id string) error {
	return errors.New(errors.UnknownIdentifier, fmt.Sprintf("unknown taxonomy ID %q", id), nil).
		WithDetails(map[string]interface{}{"taxID": id})
}

var _ taxonomy.Directory = (*Directory)(nil)
