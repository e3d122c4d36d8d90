package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taxsun/internal/paths"
)

// fixture taxdump: root > Bacteria > Escherichia > Escherichia coli.
var fixtureDump = map[string]string{
	"nodes.dmp": "1\t|\t1\t|\tno rank\t|\n" +
		"2\t|\t1\t|\tsuperkingdom\t|\n" +
		"561\t|\t2\t|\tgenus\t|\n" +
		"562\t|\t561\t|\tspecies\t|\n",
	"names.dmp": "1\t|\troot\t|\t\t|\tscientific name\t|\n" +
		"2\t|\tBacteria\t|\t\t|\tscientific name\t|\n" +
		"561\t|\tEscherichia\t|\t\t|\tscientific name\t|\n" +
		"562\t|\tEscherichia coli\t|\t\t|\tscientific name\t|\n",
	"merged.dmp": "12345\t|\t562\t|\n",
}

// setupHome points TAXSUN_HOME at a temp dir holding the fixture dump and
// disables downloads.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(paths.HomeEnvVar, home)
	t.Setenv("TAXSUN_TAXONOMY_AUTOFETCH", "false")

	dir := paths.TaxonomyDir(home)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, body := range fixtureDump {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return home
}

func resetFlags() {
	configPath, verbosity, quiet = "", 0, true
	aggregateFormat, aggregateOutput, aggregateSummary = "json", "", false
	resolveFormat, lookupFormat, fastaFormat, statusFormat = "human", "human", "json", "human"
	fetchForce = false
	configFormat, configShowDiff = "human", false
	initFormat, initPath, initForce = "toml", "", false
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append(args, "--quiet"))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
