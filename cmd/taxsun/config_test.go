package main

import (
	"testing"

	"taxsun/internal/config"
)

func TestValueOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue string
		want         string
	}{
		{"empty value uses default", "", "default", "default"},
		{"non-empty value used", "custom", "default", "custom"},
		{"empty default with empty value", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := valueOrDefault(tt.value, tt.defaultValue)
			if got != tt.want {
				t.Errorf("valueOrDefault(%q, %q) = %q, want %q", tt.value, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestIsEqual(t *testing.T) {
	tests := []struct {
		name string
		a    interface{}
		b    interface{}
		want bool
	}{
		{"equal strings", "hello", "hello", true},
		{"different strings", "hello", "world", false},
		{"equal ints", 42, 42, true},
		{"int vs float from JSON", 42, float64(42), true},
		{"equal slices", []interface{}{"root", "species"}, []interface{}{"root", "species"}, true},
		{"different bools", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("isEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFlattenAndDiff(t *testing.T) {
	t.Setenv("TAXSUN_HOME", t.TempDir())
	defaults, err := flatten(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if defaults["server.port"] != float64(8000) {
		t.Errorf("server.port = %v", defaults["server.port"])
	}
	if _, ok := defaults["server"]; ok {
		t.Error("nested sections should be flattened")
	}

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	current, err := flatten(cfg)
	if err != nil {
		t.Fatal(err)
	}
	diff := computeDiff(current, defaults)
	if len(diff) != 1 || diff["logging.level"] != "debug" {
		t.Errorf("diff = %v, want only logging.level", diff)
	}
}
