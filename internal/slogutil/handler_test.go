package slogutil

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLineHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	h := NewLineHandler(&buf, nil)

	r := slog.NewRecord(ts, slog.LevelInfo, "Dataset aggregated", 0)
	r.AddAttrs(slog.Int("taxa", 42), slog.String("source", "upload"), slog.Duration("duration", 1500*time.Millisecond))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	want := "2026-03-01T11:30:00Z [info] Dataset aggregated | taxa=42 source=upload duration=1.5s\n"
	if got := buf.String(); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestLineHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Warn("Taxonomy directory not ready")

	out := buf.String()
	if !strings.HasSuffix(out, "[warn] Taxonomy directory not ready\n") {
		t.Errorf("unexpected line: %q", out)
	}
	if strings.Contains(out, " | ") {
		t.Errorf("separator written without attributes: %q", out)
	}
}

func TestLineHandler_LevelFiltering(t *testing.T) {
	tests := []struct {
		min     slog.Level
		logged  slog.Level
		want    bool
		wantTag string
	}{
		{slog.LevelDebug, slog.LevelDebug, true, "[debug]"},
		{slog.LevelInfo, slog.LevelDebug, false, ""},
		{slog.LevelInfo, slog.LevelInfo, true, "[info]"},
		{slog.LevelWarn, slog.LevelInfo, false, ""},
		{slog.LevelWarn, slog.LevelWarn, true, "[warn]"},
		{slog.LevelWarn, slog.LevelError, true, "[error]"},
		{LevelSilent, slog.LevelError, false, ""},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		NewLogger(&buf, tt.min).Log(context.Background(), tt.logged, "Taxdump imported")

		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("min %v, logged %v: written = %v, want %v", tt.min, tt.logged, got, tt.want)
			continue
		}
		if tt.want && !strings.Contains(buf.String(), tt.wantTag) {
			t.Errorf("expected %s in %q", tt.wantTag, buf.String())
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := LevelFromString(tt.input)
			if got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{3, false, slog.LevelDebug},
		{0, true, LevelSilent},
		{5, true, LevelSilent}, // quiet wins
	}

	for _, tt := range tests {
		got := LevelFromVerbosity(tt.verbosity, tt.quiet)
		if got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v",
				tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not enable any level")
	}
	logger.Error("dropped", "key", "value")
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewLineHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewLineHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewTeeHandler(h1, h2))
	logger.Info("info message")
	logger.Warn("warn message")

	// buf1 should have both (info level)
	if !strings.Contains(buf1.String(), "info message") {
		t.Error("buf1 should contain info message")
	}
	if !strings.Contains(buf1.String(), "warn message") {
		t.Error("buf1 should contain warn message")
	}

	// buf2 should only have warn (warn level)
	if strings.Contains(buf2.String(), "info message") {
		t.Error("buf2 should not contain info message")
	}
	if !strings.Contains(buf2.String(), "warn message") {
		t.Error("buf2 should contain warn message")
	}
}

func TestLineHandler_QuotesAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("component", "api").WithGroup("req")

	logger.Info("Upload rejected", "file", "my hits.tsv", "size", 12, slog.Group("limit", "bytes", 10))

	out := buf.String()
	for _, want := range []string{
		"component=api",
		`req.file="my hits.tsv"`,
		"req.size=12",
		"req.limit.bytes=10",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("each record should end with a newline")
	}
}

func TestLineHandler_ErrorValue(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Error("Resolve failed", "error", errors.New("no such taxon"))

	if !strings.Contains(buf.String(), `error="no such taxon"`) {
		t.Errorf("error should be quoted, got: %s", buf.String())
	}
}
