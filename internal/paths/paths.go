// Package paths resolves the on-disk locations taxsun uses for its data, database and logs.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnvVar overrides the default home directory (~/.taxsun).
const HomeEnvVar = "TAXSUN_HOME"

const (
	taxonomyDirName = "taxonomy"
	logsDirName     = "logs"
	databaseName    = "taxsun.db"
)

// HomeDir returns the taxsun home directory.
// TAXSUN_HOME wins; otherwise ~/.taxsun.
func HomeDir() (string, error) {
	if env := os.Getenv(HomeEnvVar); env != "" {
		return ExpandHome(env), nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(userHome, ".taxsun"), nil
}

// TaxonomyDir is where nodes.dmp, names.dmp and merged.dmp live.
func TaxonomyDir(home string) string {
	return filepath.Join(home, taxonomyDirName)
}

// DatabasePath is the SQLite database holding the imported taxonomy and the result cache.
func DatabasePath(home string) string {
	return filepath.Join(home, databaseName)
}

// LogsDir returns the directory for server log files.
func LogsDir(home string) string {
	return filepath.Join(home, logsDirName)
}

// EnsureDir creates dir (and parents) if needed and returns it.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return userHome
	}
	return filepath.Join(userHome, path[2:])
}
