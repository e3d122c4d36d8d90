package main

import (
	"github.com/spf13/cobra"

	"taxsun/internal/fasta"
)

var fastaFormat string

var fastaCmd = &cobra.Command{
	Use:   "fasta <proteins.faa[.gz]|->",
	Short: "Split a protein FASTA file into a header to sequence map",
	Long: `Split a protein FASTA file the way /load_faa_data does: sequence lines are
joined, stop codons removed, and entries without a sequence dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runFasta,
}

func init() {
	fastaCmd.Flags().StringVar(&fastaFormat, "format", "json", "Output format (json, yaml)")
	rootCmd.AddCommand(fastaCmd)
}

func runFasta(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(fastaFormat, FormatJSON, FormatYAML)
	if err != nil {
		return err
	}

	rc, err := fasta.Open(args[0])
	if err != nil {
		return err
	}
	defer rc.Close()

	seqs, err := fasta.Split(rc)
	if err != nil {
		return err
	}
	return writeStructured(cmd.OutOrStdout(), seqs, format)
}
