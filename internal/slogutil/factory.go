package slogutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"taxsun/internal/config"
	"taxsun/internal/paths"
)

// LoggerFactory builds loggers for the CLI and the HTTP server.
// Precedence for the level is CLI flag, then config, then info.
type LoggerFactory struct {
	cfg      config.LoggingConfig
	home     string
	stderr   io.Writer
	cliLevel slog.Level
	cliSet   bool
	closers  []io.Closer
}

// NewLoggerFactory creates a factory. home anchors relative log file paths.
func NewLoggerFactory(cfg config.LoggingConfig, home string) *LoggerFactory {
	return &LoggerFactory{cfg: cfg, home: home, stderr: os.Stderr}
}

// WithCLILevel pins the level chosen by -v/--quiet.
func (f *LoggerFactory) WithCLILevel(level slog.Level) *LoggerFactory {
	f.cliLevel = level
	f.cliSet = true
	return f
}

// WithStderr redirects console output, mostly for tests.
func (f *LoggerFactory) WithStderr(w io.Writer) *LoggerFactory {
	f.stderr = w
	return f
}

// Level returns the effective level.
func (f *LoggerFactory) Level() slog.Level {
	if f.cliSet {
		return f.cliLevel
	}
	if f.cfg.Level != "" {
		return LevelFromString(f.cfg.Level)
	}
	return slog.LevelInfo
}

// CLILogger writes to stderr only.
func (f *LoggerFactory) CLILogger() *slog.Logger {
	return NewLogger(f.stderr, f.Level())
}

// ServerLogger writes to stderr and, when logging.file is set, to a rotating file.
// A file that cannot be opened is reported on stderr and skipped.
func (f *LoggerFactory) ServerLogger() *slog.Logger {
	level := f.Level()
	console := NewLineHandler(f.stderr, &slog.HandlerOptions{Level: level})
	if f.cfg.File == "" {
		return slog.New(console)
	}

	path := f.LogPath()
	rf, err := OpenRotatingFile(path, int64(f.cfg.MaxSizeMB)<<20, f.cfg.MaxBackups)
	if err != nil {
		logger := slog.New(console)
		logger.Warn("Log file unavailable, logging to stderr only", "path", path, "error", err)
		return logger
	}
	f.closers = append(f.closers, rf)

	file := NewLineHandler(rf, &slog.HandlerOptions{Level: level})
	return slog.New(NewTeeHandler(console, file))
}

// LogPath resolves logging.file against the logs directory.
func (f *LoggerFactory) LogPath() string {
	if f.cfg.File == "" {
		return ""
	}
	p := paths.ExpandHome(f.cfg.File)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(paths.LogsDir(f.home), p)
}

// Close closes every log file the factory opened.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
