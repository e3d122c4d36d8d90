package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("TAXSUN_HOME", home)
	return home
}

func TestDefaultConfig(t *testing.T) {
	home := isolate(t)
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Taxonomy.DataDir != home {
		t.Errorf("Taxonomy.DataDir = %q, want %q", cfg.Taxonomy.DataDir, home)
	}
	if len(cfg.Engine.Ranks) != 21 {
		t.Errorf("len(Engine.Ranks) = %d, want 21", len(cfg.Engine.Ranks))
	}
	if cfg.Engine.Ranks[0] != "root" || cfg.Engine.Ranks[20] != "species" {
		t.Errorf("Engine.Ranks should run root..species, got %v", cfg.Engine.Ranks)
	}
	if !cfg.Cache.Enabled {
		t.Error("result cache should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	// Mutating the defaults must not leak into the package-level rank list.
	cfg.Engine.Ranks[0] = "changed"
	if DefaultRanks[0] != "root" {
		t.Error("DefaultConfig shares its rank slice with DefaultRanks")
	}
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	result, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if !result.UsedDefaults {
		t.Error("UsedDefaults should be true when no config file exists")
	}
	if result.Config.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", result.Config.Server.Port)
	}
	if len(result.Config.Engine.Ranks) != len(DefaultRanks) {
		t.Errorf("Engine.Ranks = %v, want defaults", result.Config.Engine.Ranks)
	}
}

func TestLoadConfig_PartialFileMergesDefaults(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "taxsun.json")
	content := `{"server": {"port": 9100}, "cache": {"enabled": false}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if result.UsedDefaults {
		t.Error("UsedDefaults should be false when a file was read")
	}
	if result.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", result.ConfigPath, path)
	}
	cfg := result.Config
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false from file")
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Server.Host = %q, want default localhost", cfg.Server.Host)
	}
	if cfg.Cache.TTLSeconds != 3600 {
		t.Errorf("Cache.TTLSeconds = %d, want default 3600", cfg.Cache.TTLSeconds)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	home := isolate(t)

	if _, err := LoadConfig(filepath.Join(home, "nope.json")); err == nil {
		t.Error("LoadConfig() should fail for an explicit path that does not exist")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TAXSUN_SERVER_PORT", "9001")
	t.Setenv("TAXSUN_ENGINE_RANKS", "root,genus,species")

	result, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if result.Config.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", result.Config.Server.Port)
	}
	ranks := result.Config.Engine.Ranks
	if len(ranks) != 3 || ranks[1] != "genus" {
		t.Errorf("Engine.Ranks = %v, want [root genus species]", ranks)
	}

	found := map[string]bool{}
	for _, o := range result.EnvOverrides {
		found[o.EnvVar] = true
	}
	if !found["TAXSUN_SERVER_PORT"] || !found["TAXSUN_ENGINE_RANKS"] {
		t.Errorf("EnvOverrides = %+v, want both overrides recorded", result.EnvOverrides)
	}
}

func TestWriteAndReload(t *testing.T) {
	for _, format := range []string{"json", "toml", "yaml"} {
		t.Run(format, func(t *testing.T) {
			home := isolate(t)
			cfg := DefaultConfig()
			cfg.Server.Port = 8123
			cfg.Engine.Ranks = []string{"root", "family", "genus"}
			cfg.Logging.File = "server.log"

			path := filepath.Join(home, "taxsun."+format)
			if err := cfg.Write(path, ""); err != nil {
				t.Fatalf("Write() error: %v", err)
			}

			result, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig() error: %v", err)
			}
			got := result.Config
			if got.Server.Port != 8123 {
				t.Errorf("Server.Port = %d, want 8123", got.Server.Port)
			}
			if len(got.Engine.Ranks) != 3 || got.Engine.Ranks[2] != "genus" {
				t.Errorf("Engine.Ranks = %v", got.Engine.Ranks)
			}
			if got.Logging.File != "server.log" {
				t.Errorf("Logging.File = %q", got.Logging.File)
			}
			if got.Server.MaxUploadBytes != cfg.Server.MaxUploadBytes {
				t.Errorf("Server.MaxUploadBytes = %d, want %d", got.Server.MaxUploadBytes, cfg.Server.MaxUploadBytes)
			}
		})
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	home := isolate(t)
	err := DefaultConfig().Write(filepath.Join(home, "taxsun.ini"), "")
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("Write() error = %v, want *ConfigError", err)
	}
}

func TestValidate(t *testing.T) {
	isolate(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad version", func(c *Config) { c.Version = 7 }, "version"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no upload budget", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "server.maxUploadBytes"},
		{"empty data dir", func(c *Config) { c.Taxonomy.DataDir = "" }, "taxonomy.dataDir"},
		{"negative ttl", func(c *Config) { c.Cache.TTLSeconds = -1 }, "cache.ttlSeconds"},
		{"ranks without root", func(c *Config) { c.Engine.Ranks = []string{"genus"} }, "engine.ranks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestSupportedEnvVars(t *testing.T) {
	isolate(t)
	vars := SupportedEnvVars()

	if vars["server.port"] != "TAXSUN_SERVER_PORT" {
		t.Errorf("server.port env = %q", vars["server.port"])
	}
	if vars["taxonomy.dataDir"] != "TAXSUN_TAXONOMY_DATADIR" {
		t.Errorf("taxonomy.dataDir env = %q", vars["taxonomy.dataDir"])
	}
}
