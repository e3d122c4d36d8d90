package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"taxsun/internal/errors"
	"taxsun/internal/taxonomy"
)

var (
	resolveFormat string
	lookupFormat  string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <taxID>...",
	Short: "Show the name, rank and ancestors of taxonomy IDs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <scientific name>",
	Short: "Find the taxonomy IDs carrying a scientific name",
	Long: `Find the taxonomy IDs whose scientific name matches exactly, as /fetchID
does. Several words are joined with spaces.

Examples:
  taxsun lookup Escherichia coli
  taxsun lookup "Homo sapiens" --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "human", "Output format (human, json, yaml)")
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(lookupCmd)
}

// ResolvedTaxon is one resolve result.
type ResolvedTaxon struct {
	TaxID     string              `json:"taxID" yaml:"taxID"`
	Name      string              `json:"name" yaml:"name"`
	Rank      string              `json:"rank" yaml:"rank"`
	Ancestors []taxonomy.RankName `json:"ancestors" yaml:"ancestors"`
}

// LookupResult lists the identifiers found for a name.
type LookupResult struct {
	Name   string   `json:"name" yaml:"name"`
	TaxIDs []string `json:"taxIDs" yaml:"taxIDs"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(resolveFormat, FormatHuman, FormatJSON, FormatYAML)
	if err != nil {
		return err
	}
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()
	prov, err := a.provider()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	taxa, err := resolveIDs(ctx, prov, args)
	if err != nil {
		return err
	}
	if format == FormatHuman {
		printResolved(cmd.OutOrStdout(), taxa)
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), taxa, format)
}

func resolveIDs(ctx context.Context, r taxonomy.Resolver, ids []string) ([]ResolvedTaxon, error) {
	out := make([]ResolvedTaxon, 0, len(ids))
	for _, id := range ids {
		res, err := r.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ResolvedTaxon{TaxID: id, Name: res.Name, Rank: res.Rank, Ancestors: res.Ancestors})
	}
	return out, nil
}

// printResolved prints each taxon with its path from the root.
func printResolved(w io.Writer, taxa []ResolvedTaxon) {
	for _, t := range taxa {
		fmt.Fprintf(w, "%s\t%s (%s)\n", t.TaxID, t.Name, t.Rank)
		path := make([]string, 0, len(t.Ancestors)+1)
		path = append(path, taxonomy.RootRank)
		for i := len(t.Ancestors) - 1; i >= 0; i-- {
			path = append(path, t.Ancestors[i].Name)
		}
		fmt.Fprintf(w, "\t%s\n", strings.Join(path, " > "))
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(lookupFormat, FormatHuman, FormatJSON, FormatYAML)
	if err != nil {
		return err
	}
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()
	prov, err := a.provider()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	res, err := lookupName(ctx, prov, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if format == FormatHuman {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(res.TaxIDs, "\n"))
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), res, format)
}

func lookupName(ctx context.Context, d taxonomy.Directory, name string) (*LookupResult, error) {
	ids, err := d.LookupIDsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.Newf(errors.NameNotFound, "no taxon named %q", name)
	}
	return &LookupResult{Name: name, TaxIDs: ids}, nil
}
