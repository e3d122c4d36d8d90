package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"taxsun/internal/hits"
	"taxsun/internal/taxonomy"
)

var (
	aggregateFormat  string
	aggregateOutput  string
	aggregateSummary bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <hits.tsv|->",
	Short: "Aggregate a hit table into a lineage tree",
	Long: `Aggregate a tab-separated hit table, as uploaded to /load_tsv_data, and
print the result.

Examples:
  taxsun aggregate hits.tsv                  # JSON result on stdout
  taxsun aggregate hits.tsv --format yaml -o tree.yaml
  cat hits.tsv | taxsun aggregate - --summary`,
	Args: cobra.ExactArgs(1),
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateFormat, "format", "json", "Output format (json, yaml)")
	aggregateCmd.Flags().StringVarP(&aggregateOutput, "output", "o", "", "Write to this file instead of stdout")
	aggregateCmd.Flags().BoolVar(&aggregateSummary, "summary", false, "Print only taxa, lineage and hit counts")
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(aggregateFormat, FormatJSON, FormatYAML)
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

	engine := taxonomy.NewEngine(prov, taxonomy.RankPattern(a.cfg.Engine.Ranks), a.logger)
	res, err := aggregateFile(ctx, engine, args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if aggregateOutput != "" {
		f, err := os.Create(aggregateOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if aggregateSummary {
		return writeStructured(out, res.Summary(), format)
	}
	return writeStructured(out, res, format)
}

// aggregateFile runs engine over the hit table at path; "-" reads stdin.
func aggregateFile(ctx context.Context, engine *taxonomy.Engine, path string, stdin io.Reader) (*taxonomy.Result, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hit table: %w", err)
	}

	header, lines := hits.SplitUpload(data)
	return engine.Run(ctx, header, lines)
}
