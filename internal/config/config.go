package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"taxsun/internal/paths"
)

// CurrentVersion is the config schema version this build understands.
const CurrentVersion = 1

// EnvPrefix prefixes every environment override, e.g. TAXSUN_SERVER_PORT.
const EnvPrefix = "TAXSUN"

// Config represents the complete taxsun configuration
type Config struct {
	Version  int            `json:"version" mapstructure:"version" toml:"version" yaml:"version"`
	Server   ServerConfig   `json:"server" mapstructure:"server" toml:"server" yaml:"server"`
	Taxonomy TaxonomyConfig `json:"taxonomy" mapstructure:"taxonomy" toml:"taxonomy" yaml:"taxonomy"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache" toml:"cache" yaml:"cache"`
	Engine   EngineConfig   `json:"engine" mapstructure:"engine" toml:"engine" yaml:"engine"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging" toml:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host                string   `json:"host" mapstructure:"host" toml:"host" yaml:"host"`
	Port                int      `json:"port" mapstructure:"port" toml:"port" yaml:"port"`
	AllowedOrigins      []string `json:"allowedOrigins" mapstructure:"allowedOrigins" toml:"allowedOrigins" yaml:"allowedOrigins"`
	MaxUploadBytes      int64    `json:"maxUploadBytes" mapstructure:"maxUploadBytes" toml:"maxUploadBytes" yaml:"maxUploadBytes"`
	ReadTimeoutSeconds  int      `json:"readTimeoutSeconds" mapstructure:"readTimeoutSeconds" toml:"readTimeoutSeconds" yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int      `json:"writeTimeoutSeconds" mapstructure:"writeTimeoutSeconds" toml:"writeTimeoutSeconds" yaml:"writeTimeoutSeconds"`
}

// TaxonomyConfig controls where the NCBI taxdump lives and how it is provisioned
type TaxonomyConfig struct {
	DataDir            string `json:"dataDir" mapstructure:"dataDir" toml:"dataDir" yaml:"dataDir"`
	DumpURL            string `json:"dumpURL" mapstructure:"dumpURL" toml:"dumpURL" yaml:"dumpURL"`
	LockTimeoutSeconds int    `json:"lockTimeoutSeconds" mapstructure:"lockTimeoutSeconds" toml:"lockTimeoutSeconds" yaml:"lockTimeoutSeconds"`
	AutoFetch          bool   `json:"autoFetch" mapstructure:"autoFetch" toml:"autoFetch" yaml:"autoFetch"`
}

// CacheConfig contains result cache settings
type CacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
	TTLSeconds int  `json:"ttlSeconds" mapstructure:"ttlSeconds" toml:"ttlSeconds" yaml:"ttlSeconds"`
}

// EngineConfig contains aggregation settings
type EngineConfig struct {
	// Ranks is the ordered whitelist used when collapsing lineages.
	Ranks []string `json:"ranks" mapstructure:"ranks" toml:"ranks" yaml:"ranks"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level" toml:"level" yaml:"level"`
	File       string `json:"file" mapstructure:"file" toml:"file" yaml:"file"`
	MaxSizeMB  int    `json:"maxSizeMB" mapstructure:"maxSizeMB" toml:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups" yaml:"maxBackups"`
}

// DefaultRanks is the canonical rank ladder, root through species.
var DefaultRanks = []string{
	"root", "superkingdom", "kingdom", "subkingdom", "superphylum", "phylum", "subphylum",
	"superclass", "class", "subclass", "superorder", "order", "suborder", "superfamily",
	"family", "subfamily", "supergenus", "genus", "subgenus", "superspecies", "species",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, err := paths.HomeDir()
	if err != nil {
		home = ".taxsun"
	}

	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host: "localhost",
			Port: 8000,
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
			MaxUploadBytes:      256 << 20,
			ReadTimeoutSeconds:  60,
			WriteTimeoutSeconds: 120,
		},
		Taxonomy: TaxonomyConfig{
			DataDir:            home,
			DumpURL:            "https://ftp.ncbi.nlm.nih.gov/pub/taxonomy/taxdump.tar.gz",
			LockTimeoutSeconds: 300,
			AutoFetch:          true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 3600,
		},
		Engine: EngineConfig{
			Ranks: append([]string(nil), DefaultRanks...),
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// EnvOverride records a setting taken from the environment
type EnvOverride struct {
	Key    string `json:"key"`
	EnvVar string `json:"envVar"`
	Value  string `json:"value"`
}

// LoadResult is a loaded config plus where it came from
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// defaultsMap flattens DefaultConfig into viper keys.
func defaultsMap(d *Config) map[string]interface{} {
	return map[string]interface{}{
		"version":                     d.Version,
		"server.host":                 d.Server.Host,
		"server.port":                 d.Server.Port,
		"server.allowedOrigins":       d.Server.AllowedOrigins,
		"server.maxUploadBytes":       d.Server.MaxUploadBytes,
		"server.readTimeoutSeconds":   d.Server.ReadTimeoutSeconds,
		"server.writeTimeoutSeconds":  d.Server.WriteTimeoutSeconds,
		"taxonomy.dataDir":            d.Taxonomy.DataDir,
		"taxonomy.dumpURL":            d.Taxonomy.DumpURL,
		"taxonomy.lockTimeoutSeconds": d.Taxonomy.LockTimeoutSeconds,
		"taxonomy.autoFetch":          d.Taxonomy.AutoFetch,
		"cache.enabled":               d.Cache.Enabled,
		"cache.ttlSeconds":            d.Cache.TTLSeconds,
		"engine.ranks":                d.Engine.Ranks,
		"logging.level":               d.Logging.Level,
		"logging.file":                d.Logging.File,
		"logging.maxSizeMB":           d.Logging.MaxSizeMB,
		"logging.maxBackups":          d.Logging.MaxBackups,
	}
}

// EnvVarFor returns the environment variable that overrides a config key.
func EnvVarFor(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// SupportedEnvVars lists every config key together with its environment variable.
func SupportedEnvVars() map[string]string {
	out := make(map[string]string)
	for key := range defaultsMap(DefaultConfig()) {
		out[key] = EnvVarFor(key)
	}
	return out
}

// LoadConfig loads configuration from configPath, or searches for taxsun.{json,toml,yaml}
// in the working directory and the taxsun home when configPath is empty.
func LoadConfig(configPath string) (*LoadResult, error) {
	v := viper.New()

	defaults := defaultsMap(DefaultConfig())
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	result := &LoadResult{}

	if configPath != "" {
		v.SetConfigFile(paths.ExpandHome(configPath))
	} else {
		v.SetConfigName("taxsun")
		v.AddConfigPath(".")
		if home, err := paths.HomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Taxonomy.DataDir = paths.ExpandHome(cfg.Taxonomy.DataDir)
	result.Config = &cfg

	for key := range defaults {
		envVar := EnvVarFor(key)
		if value, ok := os.LookupEnv(envVar); ok {
			result.EnvOverrides = append(result.EnvOverrides, EnvOverride{Key: key, EnvVar: envVar, Value: value})
		}
	}

	return result, nil
}

// Write encodes the configuration to path. format is json, toml or yaml;
// when empty it is taken from the file extension.
func (c *Config) Write(path string, format string) error {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "json":
		data, err = json.MarshalIndent(c, "", "  ")
	case "toml":
		data, err = toml.Marshal(c)
	case "yaml", "yml":
		data, err = yaml.Marshal(c)
	default:
		return &ConfigError{Field: "format", Message: fmt.Sprintf("unsupported config format %q", format)}
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.Server.MaxUploadBytes <= 0 {
		return &ConfigError{Field: "server.maxUploadBytes", Message: "must be positive"}
	}
	if c.Taxonomy.DataDir == "" {
		return &ConfigError{Field: "taxonomy.dataDir", Message: "must not be empty"}
	}
	if c.Cache.TTLSeconds < 0 {
		return &ConfigError{Field: "cache.ttlSeconds", Message: "must not be negative"}
	}
	hasRoot := false
	for _, r := range c.Engine.Ranks {
		if r == "root" {
			hasRoot = true
		}
	}
	if !hasRoot {
		return &ConfigError{Field: "engine.ranks", Message: "must include \"root\""}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
