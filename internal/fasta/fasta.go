// Package fasta splits protein FASTA uploads into header to sequence maps.
package fasta

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Record is one FASTA entry. Header is the definition line without '>'.
type Record struct {
	Header string
	Seq    string
}

// Scan calls fn for every record in r that has at least one sequence line.
// Sequence lines are concatenated and stop codons ('*') removed. Text before
// the first header is ignored.
func Scan(r io.Reader, fn func(Record) error) error {
	br := bufio.NewReader(r)
	var (
		header  string
		inEntry bool
		hasSeq  bool
		seq     strings.Builder
	)

	flush := func() error {
		if !inEntry || !hasSeq {
			return nil
		}
		return fn(Record{Header: header, Seq: seq.String()})
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, ">"):
			if ferr := flush(); ferr != nil {
				return ferr
			}
			header = line[1:]
			inEntry, hasSeq = true, false
			seq.Reset()
		case inEntry && line != "":
			hasSeq = true
			seq.WriteString(strings.ReplaceAll(line, "*", ""))
		}

		if eof {
			break
		}
	}
	return flush()
}

// Split reads every record of r into a map keyed by header. A header seen
// twice keeps its last sequence.
func Split(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	err := Scan(r, func(rec Record) error {
		out[rec.Header] = rec.Seq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Open opens path for Scan. "-" is stdin; a ".gz" suffix is decompressed.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return fh, nil
	}
	gr, err := gzip.NewReader(fh)
	if err != nil {
		_ = fh.Close()
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{Reader: gr, Closer: fh}, nil
}
