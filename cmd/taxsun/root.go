package main

import (
	"github.com/spf13/cobra"

	"taxsun/internal/version"
)

var (
	// configPath is the --config flag value
	configPath string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "taxsun",
	Short: "taxsun - taxonomic hit aggregation",
	Long: `taxsun turns tab-separated tables of gene hits annotated with NCBI taxonomy
IDs into the lineage tree a sunburst chart draws: every hit is placed on its
lineage, lineages are collapsed onto a rank ladder, and counts are summed
towards the root.`,
	Version:       version.Get().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("taxsun version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: taxsun.{json,toml,yaml} in the working directory or $TAXSUN_HOME)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress all logging")
}
