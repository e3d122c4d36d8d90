package taxdb

import (
	"archive/tar"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/blake2b"

	"taxsun/internal/errors"
	"taxsun/internal/slogutil"
)

const (
	// DefaultDumpURL is the NCBI taxdump archive.
	DefaultDumpURL = "https://ftp.ncbi.nlm.nih.gov/pub/taxonomy/taxdump.tar.gz"

	archiveName  = "taxdump.tar.gz"
	manifestName = "taxdump.toml"
	lockName     = ".taxdump.lock"

	lockPollInterval = 500 * time.Millisecond
)

// Manifest describes the taxdump currently on disk.
type Manifest struct {
	Source         string    `toml:"source"`
	FetchedAt      time.Time `toml:"fetched_at"`
	ArchiveBytes   int64     `toml:"archive_bytes"`
	ArchiveBlake2b string    `toml:"archive_blake2b"`
	Files          []string  `toml:"files"`
}

// ReadManifest loads dir/taxdump.toml.
func ReadManifest(dir string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(filepath.Join(dir, manifestName), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func writeManifest(dir string, m *Manifest) error {
	tmp := filepath.Join(dir, manifestName+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, manifestName))
}

// EnsureOptions controls Ensure.
type EnsureOptions struct {
	URL         string
	LockTimeout time.Duration
	// Force downloads even when the dump files are present.
	Force  bool
	Client *http.Client
	Logger *slog.Logger
}

// MissingFiles lists the required dump files absent from dir.
func MissingFiles(dir string) []string {
	var missing []string
	for _, name := range DumpFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Ensure makes sure dir holds nodes.dmp, names.dmp and merged.dmp,
// downloading and extracting the taxdump archive when they are missing.
// Concurrent processes are serialized with a lock file in dir.
func Ensure(ctx context.Context, dir string, opts EnsureOptions) (*Manifest, error) {
	if opts.URL == "" {
		opts.URL = DefaultDumpURL
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Minute
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, unavailable("cannot create taxonomy directory", err)
	}

	if !opts.Force && len(MissingFiles(dir)) == 0 {
		return localManifest(dir), nil
	}

	release, err := acquireLock(ctx, filepath.Join(dir, lockName), opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another process may have finished while we waited.
	if !opts.Force && len(MissingFiles(dir)) == 0 {
		return localManifest(dir), nil
	}

	logger.Info("Downloading taxonomy dump", "url", opts.URL, "missing", MissingFiles(dir))
	m, err := download(ctx, opts.Client, opts.URL, filepath.Join(dir, archiveName))
	if err != nil {
		return nil, unavailable("taxdump download failed", err)
	}
	if err := extract(filepath.Join(dir, archiveName), dir); err != nil {
		return nil, unavailable("taxdump extraction failed", err)
	}
	if missing := MissingFiles(dir); len(missing) > 0 {
		return nil, unavailable(fmt.Sprintf("taxdump archive is missing %v", missing), nil)
	}

	m.Files = append([]string(nil), DumpFiles...)
	if err := writeManifest(dir, m); err != nil {
		return nil, unavailable("cannot write taxdump manifest", err)
	}
	logger.Info("Taxonomy files ready", "dir", dir, "bytes", m.ArchiveBytes)
	return m, nil
}

// localManifest returns the recorded manifest, or one derived from the file
// times when the dump was placed by hand.
func localManifest(dir string) *Manifest {
	if m, err := ReadManifest(dir); err == nil {
		return m
	}
	m := &Manifest{Source: "local", Files: append([]string(nil), DumpFiles...)}
	if info, err := os.Stat(filepath.Join(dir, NodesFile)); err == nil {
		m.FetchedAt = info.ModTime().UTC().Truncate(time.Second)
	}
	return m
}

// acquireLock creates path exclusively, polling until timeout.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, unavailable("cannot create taxdump lock", err)
		}
		if time.Now().After(deadline) {
			return nil, unavailable(fmt.Sprintf("timed out waiting for taxdump lock %s", path), nil)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// download fetches url into dest through a temporary file.
func download(ctx context.Context, client *http.Client, url, dest string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, err
	}
	h, _ := blake2b.New256(nil)
	n, err := io.Copy(io.MultiWriter(f, h), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return nil, err
	}

	return &Manifest{
		Source:         url,
		FetchedAt:      time.Now().UTC().Truncate(time.Second),
		ArchiveBytes:   n,
		ArchiveBlake2b: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// extract copies the required dump files out of a .tar.gz archive into dir,
// flattening any directory prefix inside the archive.
func extract(archive, dir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	needed := make(map[string]bool, len(DumpFiles))
	for _, name := range DumpFiles {
		needed[name] = true
	}

	tr := tar.NewReader(gz)
	for len(needed) > 0 {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		base := path.Base(hdr.Name)
		if hdr.Typeflag != tar.TypeReg || !needed[base] {
			continue
		}
		if err := writeFile(filepath.Join(dir, base), tr); err != nil {
			return fmt.Errorf("extract %s: %w", base, err)
		}
		delete(needed, base)
	}
	return nil
}

func writeFile(dest string, r io.Reader) error {
	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

func unavailable(msg string, cause error) error {
	return errors.New(errors.TaxonomyUnavailable, msg, cause)
}
