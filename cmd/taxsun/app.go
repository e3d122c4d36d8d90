package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taxsun/internal/config"
	"taxsun/internal/paths"
	"taxsun/internal/slogutil"
	"taxsun/internal/storage"
	"taxsun/internal/taxdb"
)

// app bundles what every command needs: the loaded configuration, loggers
// and, once opened, the database.
type app struct {
	cfg     *config.Config
	loaded  *config.LoadResult
	loggers *slogutil.LoggerFactory
	logger  *slog.Logger
	db      *storage.DB
}

// loadApp reads the configuration selected by the global flags.
func loadApp() (*app, error) {
	res, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := res.Config.Validate(); err != nil {
		return nil, err
	}
	return newApp(res), nil
}

func newApp(res *config.LoadResult) *app {
	f := slogutil.NewLoggerFactory(res.Config.Logging, res.Config.Taxonomy.DataDir)
	if verbosity > 0 || quiet {
		f.WithCLILevel(slogutil.LevelFromVerbosity(verbosity, quiet))
	}
	return &app{
		cfg:     res.Config,
		loaded:  res,
		loggers: f,
		logger:  f.CLILogger(),
	}
}

// home is the data directory holding the taxdump, database and logs.
func (a *app) home() string {
	return a.cfg.Taxonomy.DataDir
}

// openDB opens the taxsun database once.
func (a *app) openDB() (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := storage.Open(paths.DatabasePath(a.home()), a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	return db, nil
}

// provider returns the lazily initialized taxonomy directory.
func (a *app) provider() (*taxdb.Provider, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return taxdb.NewProvider(db, a.providerOptions(), a.logger), nil
}

func (a *app) providerOptions() taxdb.ProviderOptions {
	return taxdb.ProviderOptions{
		Home:        a.home(),
		DumpURL:     a.cfg.Taxonomy.DumpURL,
		LockTimeout: time.Duration(a.cfg.Taxonomy.LockTimeoutSeconds) * time.Second,
		AutoFetch:   a.cfg.Taxonomy.AutoFetch,
	}
}

func (a *app) Close() error {
	var firstErr error
	if a.db != nil {
		firstErr = a.db.Close()
		a.db = nil
	}
	if err := a.loggers.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// signalContext is canceled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
