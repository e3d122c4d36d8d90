package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taxsun/internal/config"
)

func TestRotatingFile_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	rf, err := OpenRotatingFile(path, 100, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer rf.Close()

	for i := 0; i < 5; i++ {
		if _, err := rf.Write([]byte("hello world\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file should exist in a created parent dir: %v", err)
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	rf, err := OpenRotatingFile(path, 50, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}

	line := []byte(strings.Repeat("a", 29) + "\n")
	for i := 0; i < 5; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should exist: %v", filepath.Base(p), err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("only maxBackups rotated files should be kept")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) > 50 {
		t.Errorf("active file has %d bytes, want at most 50", len(data))
	}
}

func TestRotatingFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	rf, err := OpenRotatingFile(path, 10, 0)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	_, _ = rf.Write([]byte("first line\n"))
	_, _ = rf.Write([]byte("second\n"))
	_ = rf.Close()

	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backup should be written when maxBackups is 0")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second\n" {
		t.Errorf("file content = %q, want only the last write", data)
	}
}

func TestNewRotatingFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	logger, closer, err := NewRotatingFileLogger(path, slog.LevelInfo, 1, 3)
	if err != nil {
		t.Fatalf("NewRotatingFileLogger failed: %v", err)
	}
	logger.Info("started", "port", 8000)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "started | port=8000") {
		t.Errorf("unexpected log content: %q", data)
	}
}

func TestLoggerFactory_ServerLoggerTeesToFile(t *testing.T) {
	home := t.TempDir()
	var console bytes.Buffer

	f := NewLoggerFactory(config.LoggingConfig{Level: "debug", File: "server.log", MaxSizeMB: 1, MaxBackups: 1}, home).
		WithStderr(&console)
	logger := f.ServerLogger()
	logger.Debug("upload parsed", "records", 3)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(console.String(), "upload parsed") {
		t.Errorf("console missing record: %q", console.String())
	}
	data, err := os.ReadFile(filepath.Join(home, "logs", "server.log"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "records=3") {
		t.Errorf("file missing record: %q", data)
	}
}

func TestLoggerFactory_Level(t *testing.T) {
	f := NewLoggerFactory(config.LoggingConfig{Level: "error"}, t.TempDir())
	if f.Level() != slog.LevelError {
		t.Errorf("Level() = %v, want error from config", f.Level())
	}

	// CLI info (the zero level) still overrides config.
	f.WithCLILevel(slog.LevelInfo)
	if f.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v, want info from CLI", f.Level())
	}

	if got := NewLoggerFactory(config.LoggingConfig{}, "").Level(); got != slog.LevelInfo {
		t.Errorf("default Level() = %v, want info", got)
	}
}

func TestLoggerFactory_CLILoggerNoFile(t *testing.T) {
	var console bytes.Buffer
	f := NewLoggerFactory(config.LoggingConfig{File: "ignored.log"}, t.TempDir()).
		WithStderr(&console).
		WithCLILevel(slog.LevelWarn)

	logger := f.CLILogger()
	logger.Info("hidden")
	logger.Warn("shown")

	out := console.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected CLI output: %q", out)
	}
}
