package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// GoldenPath is where the expected output called name lives.
func GoldenPath(name string) string {
	return FixturePath("golden", name+".json")
}

// CompareGolden compares got against the golden file, failing with a diff on mismatch.
// Both sides are normalized before comparison.
// If -update flag is set, updates the golden file instead of comparing.
func CompareGolden(t *testing.T, name string, got any) {
	t.Helper()

	normalized := MarshalNormalized(t, got)
	goldenPath := GoldenPath(name)

	if *updateGolden {
		UpdateGolden(t, name, normalized)
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	raw, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, string(normalized), t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}
	expected := normalizeJSON(t, raw)

	if !bytes.Equal(normalized, expected) {
		diff := unifiedDiff(string(expected), string(normalized), goldenPath)
		t.Fatalf("Golden mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, diff, t.Name())
	}
}

// UpdateGolden writes normalized data to the golden file.
// Creates parent directories if they don't exist.
func UpdateGolden(t *testing.T, name string, data []byte) {
	t.Helper()

	goldenPath := GoldenPath(name)
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		t.Fatalf("Failed to create golden directory: %v", err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		t.Fatalf("Failed to write golden file: %v", err)
	}
}

// unifiedDiff reports the first differing line of expected and got, with up
// to three lines of context on either side.
func unifiedDiff(expected, got, path string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	exp := strings.Split(expected, "\n")
	act := strings.Split(got, "\n")

	first := 0
	for first < len(exp) && first < len(act) && exp[first] == act[first] {
		first++
	}
	if first == len(exp) && first == len(act) {
		return buf.String()
	}

	from := max(0, first-3)
	fmt.Fprintf(&buf, "@@ line %d @@\n", first+1)
	for i := from; i < first; i++ {
		buf.WriteString(" " + exp[i] + "\n")
	}
	for i := first; i < min(len(exp), first+4); i++ {
		buf.WriteString("-" + exp[i] + "\n")
	}
	for i := first; i < min(len(act), first+4); i++ {
		buf.WriteString("+" + act[i] + "\n")
	}
	return buf.String()
}
