package testutil

import (
	"encoding/json"
	"testing"
)

// MarshalNormalized encodes v as indented JSON with object keys sorted, so
// that map iteration order and whitespace never cause a golden mismatch.
func MarshalNormalized(t *testing.T, v any) []byte {
	t.Helper()

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}
	return normalizeJSON(t, raw)
}

// normalizeJSON round-trips raw through a generic value. encoding/json writes
// map keys in sorted order, and numbers come back in one canonical spelling.
func normalizeJSON(t *testing.T, raw []byte) []byte {
	t.Helper()

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}

	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return append(out, '\n')
}
