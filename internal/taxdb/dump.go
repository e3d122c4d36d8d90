// Package taxdb is the taxonomy directory: it provisions the NCBI taxdump,
// imports it into SQLite and resolves identifiers and names against it.
package taxdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"taxsun/internal/storage"
)

// Files of the taxdump that the directory needs.
const (
	NodesFile  = "nodes.dmp"
	NamesFile  = "names.dmp"
	MergedFile = "merged.dmp"
)

// DumpFiles lists the required files in extraction order.
var DumpFiles = []string{NodesFile, NamesFile, MergedFile}

const scientificName = "scientific name"

// Dump is a parsed taxdump ready for import.
type Dump struct {
	Taxa   []storage.TaxonRow
	Merged []storage.MergedRow
}

// NormalizeName is the lookup form of a taxon name: NFKC with surrounding
// whitespace removed.
func NormalizeName(name string) string {
	return norm.NFKC.String(strings.TrimSpace(name))
}

// ReadDump parses nodes.dmp, names.dmp and merged.dmp from dir. Only
// scientific names are kept; a node without one is an error.
func ReadDump(dir string) (*Dump, error) {
	names := make(map[int64]string)
	err := scanDumpFile(filepath.Join(dir, NamesFile), 4, func(f []string) error {
		if f[3] != scientificName {
			return nil
		}
		id, err := parseID(f[0])
		if err != nil {
			return err
		}
		names[id] = f[1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	d := &Dump{}
	err = scanDumpFile(filepath.Join(dir, NodesFile), 3, func(f []string) error {
		id, err := parseID(f[0])
		if err != nil {
			return err
		}
		parent, err := parseID(f[1])
		if err != nil {
			return err
		}
		name, ok := names[id]
		if !ok {
			return fmt.Errorf("taxon %d has no scientific name", id)
		}
		d.Taxa = append(d.Taxa, storage.TaxonRow{
			TaxID:    id,
			ParentID: parent,
			Rank:     f[2],
			Name:     name,
			NameNorm: NormalizeName(name),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = scanDumpFile(filepath.Join(dir, MergedFile), 2, func(f []string) error {
		oldID, err := parseID(f[0])
		if err != nil {
			return err
		}
		newID, err := parseID(f[1])
		if err != nil {
			return err
		}
		d.Merged = append(d.Merged, storage.MergedRow{OldID: oldID, NewID: newID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}

// scanDumpFile calls fn with the fields of every non-empty line. Lines are
// "\t|\t" separated and end with "\t|".
func scanDumpFile(path string, minFields int, fn func([]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return scanDump(f, filepath.Base(path), minFields, fn)
}

func scanDump(r io.Reader, name string, minFields int, fn func([]string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		line = strings.TrimSuffix(line, "\t|")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t|\t")
		if len(fields) < minFields {
			return fmt.Errorf("%s:%d: expected at least %d fields, got %d", name, lineNo, minFields, len(fields))
		}
		if err := fn(fields); err != nil {
			return fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
	}
	return sc.Err()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid taxonomy id %q", s)
	}
	return id, nil
}
