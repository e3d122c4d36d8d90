package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"human", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := parseFormat(tt.in, FormatJSON, FormatYAML)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteStructured(t *testing.T) {
	v := map[string]int{"hits": 3}

	var buf bytes.Buffer
	if err := writeStructured(&buf, v, FormatJSON); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "{\n  \"hits\": 3\n}\n" {
		t.Errorf("json = %q", got)
	}

	buf.Reset()
	if err := writeStructured(&buf, v, FormatYAML); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "hits: 3" {
		t.Errorf("yaml = %q", got)
	}

	if err := writeStructured(&buf, v, FormatHuman); err == nil {
		t.Error("human is not a structured format")
	}
}
