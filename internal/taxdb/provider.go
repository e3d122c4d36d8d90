package taxdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"taxsun/internal/errors"
	"taxsun/internal/paths"
	"taxsun/internal/slogutil"
	"taxsun/internal/storage"
	"taxsun/internal/taxonomy"
)

// ProviderOptions configures a Provider.
type ProviderOptions struct {
	// Home is the taxsun home; the dump lives under paths.TaxonomyDir(Home).
	Home        string
	DumpURL     string
	LockTimeout time.Duration
	AutoFetch   bool
	Client      *http.Client
}

// Provider initializes the taxonomy directory lazily on first use: it makes
// sure the dump is on disk, imports it when the database is stale and then
// serves lookups. Concurrent first callers share one initialization. A
// failed initialization is retried by the next caller.
type Provider struct {
	db     *storage.DB
	opts   ProviderOptions
	logger *slog.Logger

	group singleflight.Group

	mu  sync.RWMutex
	dir *Directory
}

// NewProvider creates a provider backed by db.
func NewProvider(db *storage.DB, opts ProviderOptions, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Provider{db: db, opts: opts, logger: logger}
}

// Ready reports whether the directory has been initialized.
func (p *Provider) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dir != nil
}

// Directory returns the initialized directory, initializing it if needed.
// ctx bounds only this caller's wait; the shared initialization keeps running.
func (p *Provider) Directory(ctx context.Context) (*Directory, error) {
	p.mu.RLock()
	dir := p.dir
	p.mu.RUnlock()
	if dir != nil {
		return dir, nil
	}

	ch := p.group.DoChan("init", func() (interface{}, error) {
		return p.initialize(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Directory), nil
	}
}

func (p *Provider) initialize(ctx context.Context) (*Directory, error) {
	p.mu.RLock()
	dir := p.dir
	p.mu.RUnlock()
	if dir != nil {
		return dir, nil
	}

	taxDir := paths.TaxonomyDir(p.opts.Home)
	var manifest *Manifest
	if p.opts.AutoFetch {
		m, err := Ensure(ctx, taxDir, EnsureOptions{
			URL:         p.opts.DumpURL,
			LockTimeout: p.opts.LockTimeout,
			Client:      p.opts.Client,
			Logger:      p.logger,
		})
		if err != nil {
			p.logger.Error("Taxonomy provisioning failed", "error", err)
			return nil, err
		}
		manifest = m
	} else {
		if missing := MissingFiles(taxDir); len(missing) > 0 {
			return nil, errors.New(errors.TaxonomyUnavailable,
				fmt.Sprintf("taxonomy files %v missing from %s and auto-fetch is disabled", missing, taxDir), nil)
		}
		manifest = localManifest(taxDir)
	}

	stale, err := p.stale(ctx, manifest)
	if err != nil {
		return nil, errors.New(errors.TaxonomyUnavailable, "cannot inspect taxonomy database", err)
	}
	if stale {
		p.logger.Info("Importing taxonomy dump", "dir", taxDir)
		if _, err := Import(ctx, p.db, taxDir, manifest.FetchedAt, p.logger); err != nil {
			return nil, errors.New(errors.TaxonomyUnavailable, "taxonomy import failed", err)
		}
	}

	dir = NewDirectory(p.db, p.logger)
	p.mu.Lock()
	p.dir = dir
	p.mu.Unlock()
	return dir, nil
}

// stale reports whether the database lacks the dump described by m.
func (p *Provider) stale(ctx context.Context, m *Manifest) (bool, error) {
	n, err := storage.NewTaxonomyStore(p.db).Count(ctx)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return true, nil
	}
	if m.FetchedAt.IsZero() {
		return false, nil
	}
	recorded, ok, err := p.db.GetMeta(ctx, MetaFetchedAt)
	if err != nil {
		return false, err
	}
	return !ok || recorded != m.FetchedAt.UTC().Format(time.RFC3339), nil
}

// Resolve implements taxonomy.Resolver.
func (p *Provider) Resolve(ctx context.Context, id string) (*taxonomy.Resolution, error) {
	dir, err := p.Directory(ctx)
	if err != nil {
		return nil, err
	}
	return dir.Resolve(ctx, id)
}

// LookupIDsByName implements taxonomy.Directory.
func (p *Provider) LookupIDsByName(ctx context.Context, name string) ([]string, error) {
	dir, err := p.Directory(ctx)
	if err != nil {
		return nil, err
	}
	return dir.LookupIDsByName(ctx, name)
}

var _ taxonomy.Directory = (*Provider)(nil)

// Status summarizes the on-disk dump and what has been imported from it.
type Status struct {
	Dir        string    `json:"dir"`
	Missing    []string  `json:"missing,omitempty"`
	Manifest   *Manifest `json:"manifest,omitempty"`
	Taxa       int       `json:"taxa"`
	ImportedAt string    `json:"importedAt,omitempty"`
	FetchedAt  string    `json:"fetchedAt,omitempty"`
}

// ReadStatus inspects the dump under home and the database db.
func ReadStatus(ctx context.Context, db *storage.DB, home string) (*Status, error) {
	dir := paths.TaxonomyDir(home)
	st := &Status{Dir: dir, Missing: MissingFiles(dir)}
	if m, err := ReadManifest(dir); err == nil {
		st.Manifest = m
	}

	n, err := storage.NewTaxonomyStore(db).Count(ctx)
	if err != nil {
		return nil, err
	}
	st.Taxa = n
	if v, ok, err := db.GetMeta(ctx, MetaImportedAt); err != nil {
		return nil, err
	} else if ok {
		st.ImportedAt = v
	}
	if v, ok, err := db.GetMeta(ctx, MetaFetchedAt); err != nil {
		return nil, err
	} else if ok {
		st.FetchedAt = v
	}
	return st, nil
}
