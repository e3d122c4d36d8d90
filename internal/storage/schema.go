package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createTaxonomyTables(tx); err != nil {
			return err
		}
		if err := createResultCacheTable(tx); err != nil {
			return err
		}
		if err := createMetaTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == 0 {
		// The file existed but was never initialized.
		return db.initializeSchema()
	}
	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	ctx := context.Background()

	var tableName string
	err := db.QueryRow(ctx, `
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createTaxonomyTables creates the NCBI taxonomy tables: nodes, scientific
// names keyed by their normalized form, and merged identifiers.
func createTaxonomyTables(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS taxa (
			tax_id INTEGER PRIMARY KEY,
			parent_id INTEGER NOT NULL,
			rank TEXT NOT NULL,
			name TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create taxa table: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS taxon_names (
			name_norm TEXT NOT NULL,
			tax_id INTEGER NOT NULL,

			PRIMARY KEY (name_norm, tax_id)
		)
	`); err != nil {
		return fmt.Errorf("failed to create taxon_names table: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS merged_ids (
			old_id INTEGER PRIMARY KEY,
			new_id INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create merged_ids table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_taxa_parent_id ON taxa(parent_id)",
		"CREATE INDEX IF NOT EXISTS idx_taxon_names_tax_id ON taxon_names(tax_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createResultCacheTable creates the aggregation result cache
func createResultCacheTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS result_cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create result_cache table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at)"); err != nil {
		return fmt.Errorf("failed to create cache index: %w", err)
	}
	return nil
}

func createMetaTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}
	return nil
}
