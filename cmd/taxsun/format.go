package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatTOML  OutputFormat = "toml"
	FormatHuman OutputFormat = "human"
)

// parseFormat validates a --format value against the allowed set.
func parseFormat(s string, allowed ...OutputFormat) (OutputFormat, error) {
	f := OutputFormat(s)
	if f == "yml" {
		f = FormatYAML
	}
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (want one of %v)", s, allowed)
}

// writeStructured encodes v as indented JSON or YAML.
func writeStructured(w io.Writer, v interface{}, format OutputFormat) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
