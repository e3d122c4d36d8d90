// Package testutil provides golden-file helpers for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// FixtureDir is the directory, relative to the package under test, that
// holds input fixtures and expected outputs.
const FixtureDir = "testdata"

// FixturePath joins elems below the package's testdata directory.
func FixturePath(elems ...string) string {
	return filepath.Join(append([]string{FixtureDir}, elems...)...)
}

// ReadFixture returns the contents of a testdata file, failing the test on error.
func ReadFixture(t *testing.T, elems ...string) []byte {
	t.Helper()

	path := FixturePath(elems...)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read fixture %s: %v", path, err)
	}
	return data
}
