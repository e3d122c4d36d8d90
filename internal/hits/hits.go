// Package hits parses tab-separated hit uploads into typed records.
//
// A hit file starts with a header line that is only sniffed for optional
// columns, followed by lines of the form
//
//	geneName \t taxID [\t score [\t sourceHeader]]
package hits

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"taxsun/internal/errors"
)

// RootTaxID is substituted for an empty or NA taxonomy identifier.
const RootTaxID = "1"

// DefaultScore is used when the score column is enabled but the cell is empty.
const DefaultScore = 1.0

// Columns reports which optional columns a header announces.
type Columns struct {
	Scores  bool
	Headers bool
}

// ParseHeader sniffs the header line. Scores are enabled when it contains
// "value" and source headers when it contains "fasta", case-insensitively.
func ParseHeader(line string) Columns {
	lower := strings.ToLower(line)
	return Columns{
		Scores:  strings.Contains(lower, "value"),
		Headers: strings.Contains(lower, "fasta"),
	}
}

// Record is one hit. Score and Header are nil when the line has no such field;
// Header is also nil for an empty cell.
type Record struct {
	GeneName string
	TaxID    string
	Score    *float64
	Header   *string
}

// ScoreOr returns the score, or DefaultScore when the field was absent.
func (r Record) ScoreOr() float64 {
	if r.Score == nil {
		return DefaultScore
	}
	return *r.Score
}

// ParseLine parses one data line. lineNo is the 1-based data line number used
// in error messages.
func ParseLine(line string, lineNo int) (Record, error) {
	fields := strings.Split(line, "\t")
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "\r", "")
	}
	if len(fields) < 2 {
		return Record{}, errors.New(errors.MalformedRecord,
			fmt.Sprintf("line %d: expected gene name and taxonomy identifier, got %d field(s)", lineNo, len(fields)), nil).
			WithDetails(map[string]interface{}{"line": lineNo})
	}

	rec := Record{GeneName: fields[0], TaxID: fields[1]}
	if rec.TaxID == "" || rec.TaxID == "NA" {
		rec.TaxID = RootTaxID
	}

	if len(fields) > 2 {
		score := DefaultScore
		if s := strings.TrimSpace(fields[2]); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || math.IsNaN(v) {
				return Record{}, errors.New(errors.MalformedRecord,
					fmt.Sprintf("line %d: score %q is not a number", lineNo, fields[2]), err).
					WithDetails(map[string]interface{}{"line": lineNo})
			}
			score = v
		}
		rec.Score = &score
	}

	if len(fields) > 3 && fields[3] != "" {
		h := fields[3]
		rec.Header = &h
	}

	return rec, nil
}

// Parse sniffs header and parses every data line. Lines that are empty once
// carriage returns are removed are skipped; any other bad line fails the batch.
func Parse(header string, lines []string) (Columns, []Record, error) {
	cols := ParseHeader(header)
	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		if strings.ReplaceAll(line, "\r", "") == "" {
			continue
		}
		rec, err := ParseLine(line, i+1)
		if err != nil {
			return cols, nil, err
		}
		records = append(records, rec)
	}
	return cols, records, nil
}

// SplitUpload splits a raw upload into its header and data lines. A single
// trailing newline does not produce an extra empty line.
func SplitUpload(data []byte) (string, []string) {
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return "", nil
	}
	lines := strings.Split(text, "\n")
	return lines[0], lines[1:]
}
