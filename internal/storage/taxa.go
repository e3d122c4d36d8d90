package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// maxLineageDepth bounds the ancestor walk in case the parent links form a cycle.
const maxLineageDepth = 512

// TaxonRow is one node of the taxonomy tree. NameNorm is the lookup form of
// Name.
type TaxonRow struct {
	TaxID    int64
	ParentID int64
	Rank     string
	Name     string
	NameNorm string
}

// MergedRow maps a retired identifier to its replacement.
type MergedRow struct {
	OldID int64
	NewID int64
}

// TaxonomyStore provides access to the taxa, taxon_names and merged_ids tables
type TaxonomyStore struct {
	db *DB
}

// NewTaxonomyStore creates a new taxonomy store
func NewTaxonomyStore(db *DB) *TaxonomyStore {
	return &TaxonomyStore{db: db}
}

// Replace swaps the stored taxonomy for taxa and merged in one transaction.
func (s *TaxonomyStore) Replace(ctx context.Context, taxa []TaxonRow, merged []MergedRow) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"taxa", "taxon_names", "merged_ids"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		insTaxon, err := tx.PrepareContext(ctx, "INSERT INTO taxa (tax_id, parent_id, rank, name) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer insTaxon.Close()

		insName, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO taxon_names (name_norm, tax_id) VALUES (?, ?)")
		if err != nil {
			return err
		}
		defer insName.Close()

		for i, row := range taxa {
			if i%10000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if _, err := insTaxon.ExecContext(ctx, row.TaxID, row.ParentID, row.Rank, row.Name); err != nil {
				return fmt.Errorf("failed to insert taxon %d: %w", row.TaxID, err)
			}
			if row.NameNorm == "" {
				continue
			}
			if _, err := insName.ExecContext(ctx, row.NameNorm, row.TaxID); err != nil {
				return fmt.Errorf("failed to insert name of taxon %d: %w", row.TaxID, err)
			}
		}

		insMerged, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO merged_ids (old_id, new_id) VALUES (?, ?)")
		if err != nil {
			return err
		}
		defer insMerged.Close()

		for _, m := range merged {
			if _, err := insMerged.ExecContext(ctx, m.OldID, m.NewID); err != nil {
				return fmt.Errorf("failed to insert merged id %d: %w", m.OldID, err)
			}
		}
		return nil
	})
}

// Get returns one taxon, or nil if it is not stored.
func (s *TaxonomyStore) Get(ctx context.Context, taxID int64) (*TaxonRow, error) {
	var row TaxonRow
	err := s.db.QueryRow(ctx,
		"SELECT tax_id, parent_id, rank, name FROM taxa WHERE tax_id = ?", taxID,
	).Scan(&row.TaxID, &row.ParentID, &row.Rank, &row.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get taxon %d: %w", taxID, err)
	}
	return &row, nil
}

// Lineage returns the taxon followed by its ancestors up to the root. It is
// empty when the taxon is not stored.
func (s *TaxonomyStore) Lineage(ctx context.Context, taxID int64) ([]TaxonRow, error) {
	rows, err := s.db.Query(ctx, `
		WITH RECURSIVE chain(tax_id, parent_id, rank, name, depth) AS (
			SELECT tax_id, parent_id, rank, name, 0 FROM taxa WHERE tax_id = ?
			UNION ALL
			SELECT t.tax_id, t.parent_id, t.rank, t.name, c.depth + 1
			FROM taxa t JOIN chain c ON t.tax_id = c.parent_id
			WHERE c.tax_id != c.parent_id AND c.depth < ?
		)
		SELECT tax_id, parent_id, rank, name FROM chain ORDER BY depth
	`, taxID, maxLineageDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to query lineage of %d: %w", taxID, err)
	}
	defer rows.Close()

	var out []TaxonRow
	for rows.Next() {
		var row TaxonRow
		if err := rows.Scan(&row.TaxID, &row.ParentID, &row.Rank, &row.Name); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MergedInto returns the replacement of a retired identifier.
func (s *TaxonomyStore) MergedInto(ctx context.Context, oldID int64) (int64, bool, error) {
	var newID int64
	err := s.db.QueryRow(ctx, "SELECT new_id FROM merged_ids WHERE old_id = ?", oldID).Scan(&newID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up merged id %d: %w", oldID, err)
	}
	return newID, true, nil
}

// IDsByName returns the identifiers whose normalized scientific name equals
// nameNorm, in ascending order.
func (s *TaxonomyStore) IDsByName(ctx context.Context, nameNorm string) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		"SELECT tax_id FROM taxon_names WHERE name_norm = ? ORDER BY tax_id", nameNorm)
	if err != nil {
		return nil, fmt.Errorf("failed to look up name: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of stored taxa.
func (s *TaxonomyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM taxa").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count taxa: %w", err)
	}
	return n, nil
}
