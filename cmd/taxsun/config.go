package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"taxsun/internal/config"
)

var (
	configFormat   string
	configShowDiff bool
	initFormat     string
	initPath       string
	initForce      bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage taxsun configuration",
	Long:  "View and manage taxsun configuration stored in taxsun.{json,toml,yaml}",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective taxsun configuration.

Examples:
  taxsun config show                # Pretty-print current config
  taxsun config show --format json  # Raw JSON output
  taxsun config show --diff         # Only show non-default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Long:  "Display all supported taxsun environment variable overrides",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (human, json, yaml)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")
	configInitCmd.Flags().StringVar(&initFormat, "format", "toml", "File format (json, toml, yaml)")
	configInitCmd.Flags().StringVar(&initPath, "path", "", "Where to write (default: $TAXSUN_HOME/taxsun.<format>)")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty" yaml:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults" yaml:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty" yaml:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config" yaml:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(configFormat, FormatHuman, FormatJSON, FormatYAML)
	if err != nil {
		return err
	}
	result, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	current, err := flatten(result.Config)
	if err != nil {
		return err
	}
	if configShowDiff {
		defaults, err := flatten(config.DefaultConfig())
		if err != nil {
			return err
		}
		current = computeDiff(current, defaults)
	}

	if format == FormatHuman {
		printConfigHuman(cmd.OutOrStdout(), result, current)
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       current,
	}, format)
}

// flatten turns a config into dotted keys, e.g. "server.port".
func flatten(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var nested map[string]interface{}
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, err
	}
	out := make(map[string]interface{})
	flattenInto(out, "", nested)
	return out, nil
}

func flattenInto(out map[string]interface{}, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			flattenInto(out, key, sub)
			continue
		}
		out[key] = v
	}
}

// computeDiff keeps the entries of current that differ from defaults.
func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	for k, v := range current {
		if d, ok := defaults[k]; !ok || !isEqual(v, d) {
			diff[k] = v
		}
	}
	return diff
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func printConfigHuman(w io.Writer, result *config.LoadResult, values map[string]interface{}) {
	fmt.Fprintln(w, "taxsun Configuration")
	fmt.Fprintln(w, strings.Repeat("─", 50))

	if result.UsedDefaults {
		fmt.Fprintln(w, "Source: defaults (no config file found)")
	} else {
		fmt.Fprintf(w, "Source: %s\n", valueOrDefault(result.ConfigPath, "unknown"))
	}

	if len(result.EnvOverrides) > 0 {
		fmt.Fprintln(w, "\nEnvironment Overrides:")
		for _, ov := range result.EnvOverrides {
			fmt.Fprintf(w, "  %s=%s → %s\n", ov.EnvVar, ov.Value, ov.Key)
		}
	}
	fmt.Fprintln(w)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	section := ""
	for _, k := range keys {
		head, rest, found := strings.Cut(k, ".")
		if !found {
			fmt.Fprintf(w, "%s: %v\n", k, values[k])
			continue
		}
		if head != section {
			fmt.Fprintf(w, "\n%s:\n", head)
			section = head
		}
		fmt.Fprintf(w, "  %s: %v\n", rest, values[k])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use 'taxsun config show --format json' for machine-readable output")
	fmt.Fprintln(w, "Use 'taxsun config env' to see supported environment variables")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(initFormat, FormatJSON, FormatTOML, FormatYAML)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()

	path := initPath
	if path == "" {
		path = filepath.Join(cfg.Taxonomy.DataDir, "taxsun."+string(format))
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := cfg.Write(path, string(format)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	vars := config.SupportedEnvVars()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Supported environment variables:")
	fmt.Fprintln(w)
	for _, k := range keys {
		current := ""
		if v, ok := os.LookupEnv(vars[k]); ok {
			current = " (set: " + v + ")"
		}
		fmt.Fprintf(w, "  %-36s %s%s\n", vars[k], k, current)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "TAXSUN_HOME overrides the data directory root (default ~/.taxsun).")
}
