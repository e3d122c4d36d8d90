package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"taxsun/internal/errors"
	"taxsun/internal/paths"
	"taxsun/internal/taxdb"
)

var (
	fetchForce   bool
	statusFormat string
)

var taxdumpCmd = &cobra.Command{
	Use:   "taxdump",
	Short: "Manage the local NCBI taxonomy dump",
}

var taxdumpFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the taxdump and import it",
	Long: `Download taxdump.tar.gz from taxonomy.dumpURL, extract nodes.dmp, names.dmp
and merged.dmp into the taxonomy directory and import them. Nothing is
downloaded when the files are present unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runTaxdumpFetch,
}

var taxdumpImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the taxdump files already on disk",
	Args:  cobra.NoArgs,
	RunE:  runTaxdumpImport,
}

var taxdumpStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is on disk and what has been imported",
	Args:  cobra.NoArgs,
	RunE:  runTaxdumpStatus,
}

func init() {
	taxdumpFetchCmd.Flags().BoolVar(&fetchForce, "force", false, "Download even if the dump files exist")
	taxdumpStatusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (human, json, yaml)")

	taxdumpCmd.AddCommand(taxdumpFetchCmd)
	taxdumpCmd.AddCommand(taxdumpImportCmd)
	taxdumpCmd.AddCommand(taxdumpStatusCmd)
	rootCmd.AddCommand(taxdumpCmd)
}

func runTaxdumpFetch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	opts := a.providerOptions()
	m, err := taxdb.Ensure(ctx, paths.TaxonomyDir(a.home()), taxdb.EnsureOptions{
		URL:         opts.DumpURL,
		LockTimeout: opts.LockTimeout,
		Force:       fetchForce,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}
	return importDump(ctx, a, m, cmd.OutOrStdout())
}

func runTaxdumpImport(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	dir := paths.TaxonomyDir(a.home())
	if missing := taxdb.MissingFiles(dir); len(missing) > 0 {
		return errors.New(errors.TaxonomyUnavailable,
			fmt.Sprintf("taxonomy files %v missing from %s", missing, dir), nil)
	}
	m, err := taxdb.ReadManifest(dir)
	if err != nil {
		// Files placed by hand have no manifest.
		m = &taxdb.Manifest{}
	}
	return importDump(ctx, a, m, cmd.OutOrStdout())
}

func importDump(ctx context.Context, a *app, m *taxdb.Manifest, out io.Writer) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	start := time.Now()
	n, err := taxdb.Import(ctx, db, paths.TaxonomyDir(a.home()), m.FetchedAt, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d taxa in %s\n", n, time.Since(start).Round(time.Millisecond))
	return nil
}

func runTaxdumpStatus(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(statusFormat, FormatHuman, FormatJSON, FormatYAML)
	if err != nil {
		return err
	}
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	st, err := taxdb.ReadStatus(cmd.Context(), db, a.home())
	if err != nil {
		return err
	}
	if format == FormatHuman {
		printStatus(cmd.OutOrStdout(), st, db.Path())
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), st, format)
}

func printStatus(w io.Writer, st *taxdb.Status, dbPath string) {
	fmt.Fprintf(w, "Taxonomy directory: %s\n", st.Dir)
	fmt.Fprintf(w, "Database:           %s\n", dbPath)
	if len(st.Missing) > 0 {
		fmt.Fprintf(w, "Missing files:      %v\n", st.Missing)
	} else {
		fmt.Fprintln(w, "Files:              complete")
	}
	if st.Manifest != nil {
		fmt.Fprintf(w, "Source:             %s\n", st.Manifest.Source)
		fmt.Fprintf(w, "Fetched:            %s\n", st.Manifest.FetchedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Imported taxa:      %d\n", st.Taxa)
	if st.ImportedAt != "" {
		fmt.Fprintf(w, "Imported at:        %s\n", st.ImportedAt)
	}
	if st.Taxa == 0 {
		fmt.Fprintln(w, "\nRun 'taxsun taxdump fetch' to download and import the taxonomy.")
	}
}
