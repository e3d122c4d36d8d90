package taxdb

import (
	"archive/tar"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"taxsun/internal/storage"
)

type fixtureNode struct {
	id, parent int
	rank, name string
}

// fixtureNodes is a small slice of the NCBI tree. 1000-1002 exercise a
// repeated rank; 1386 and 55087 share a name.
var fixtureNodes = []fixtureNode{
	{1, 1, "no rank", "root"},
	{131567, 1, "no rank", "cellular organisms"},
	{2, 131567, "superkingdom", "Bacteria"},
	{1224, 2, "phylum", "Pseudomonadota"},
	{1236, 1224, "class", "Gammaproteobacteria"},
	{91347, 1236, "order", "Enterobacterales"},
	{543, 91347, "family", "Enterobacteriaceae"},
	{561, 543, "genus", "Escherichia"},
	{562, 561, "species", "Escherichia coli"},
	{1000, 1224, "clade", "Alpha clade"},
	{1001, 1000, "clade", "Beta clade"},
	{1002, 1001, "genus", "Testgenus"},
	{1239, 2, "phylum", "Bacillota"},
	{1386, 1239, "genus", "Bacillus"},
	{2759, 131567, "superkingdom", "Eukaryota"},
	{55087, 2759, "genus", "Bacillus"},
}

var fixtureMerged = map[int]int{12345: 562}

func dumpContents() map[string]string {
	var nodes, names, merged strings.Builder
	for _, n := range fixtureNodes {
		fmt.Fprintf(&nodes, "%d\t|\t%d\t|\t%s\t|\t\t|\n", n.id, n.parent, n.rank)
		fmt.Fprintf(&names, "%d\t|\t%s\t|\t\t|\tscientific name\t|\n", n.id, n.name)
		fmt.Fprintf(&names, "%d\t|\t%s synonym\t|\t\t|\tsynonym\t|\n", n.id, n.name)
	}
	for oldID, newID := range fixtureMerged {
		fmt.Fprintf(&merged, "%d\t|\t%d\t|\n", oldID, newID)
	}
	return map[string]string{
		NodesFile:  nodes.String(),
		NamesFile:  names.String(),
		MergedFile: merged.String(),
	}
}

// writeDump writes the fixture dump files into dir.
func writeDump(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, body := range dumpContents() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
}

// dumpArchive builds a taxdump.tar.gz with the fixture files nested under
// prefix, plus an unrelated file the extractor must ignore.
func dumpArchive(t *testing.T, prefix string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	files := dumpContents()
	files["gencode.dmp"] = "1\t|\tStandard\t|\n"
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     prefix + name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// dumpServer serves archive and counts downloads.
func dumpServer(t *testing.T, archive []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "taxsun.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
