package hits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxsun/internal/errors"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		header string
		want   Columns
	}{
		{"gene\ttaxid", Columns{}},
		{"gene\ttaxid\tevalue", Columns{Scores: true}},
		{"Gene\tTaxID\tE-VALUE\tFASTA header", Columns{Scores: true, Headers: true}},
		{"gene\ttaxid\tfasta", Columns{Headers: true}},
		{"", Columns{}},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHeader(tt.header))
		})
	}
}

func TestParseLine(t *testing.T) {
	rec, err := ParseLine("g1\t9606\t0.01\t>seq1 desc\r", 1)
	require.NoError(t, err)
	assert.Equal(t, "g1", rec.GeneName)
	assert.Equal(t, "9606", rec.TaxID)
	require.NotNil(t, rec.Score)
	assert.Equal(t, 0.01, *rec.Score)
	require.NotNil(t, rec.Header)
	assert.Equal(t, ">seq1 desc", *rec.Header)
}

func TestParseLine_RootSubstitution(t *testing.T) {
	for _, id := range []string{"", "NA", "\r", "NA\r"} {
		rec, err := ParseLine("g\t"+id, 3)
		require.NoError(t, err)
		assert.Equal(t, RootTaxID, rec.TaxID, "taxid %q", id)
	}

	// Only the exact sentinel is substituted.
	rec, err := ParseLine("g\tna", 1)
	require.NoError(t, err)
	assert.Equal(t, "na", rec.TaxID)
}

func TestParseLine_OptionalFields(t *testing.T) {
	rec, err := ParseLine("g\t562", 1)
	require.NoError(t, err)
	assert.Nil(t, rec.Score)
	assert.Nil(t, rec.Header)
	assert.Equal(t, DefaultScore, rec.ScoreOr())

	rec, err = ParseLine("g\t562\t\t", 1)
	require.NoError(t, err)
	require.NotNil(t, rec.Score)
	assert.Equal(t, DefaultScore, *rec.Score)
	assert.Nil(t, rec.Header, "empty header cell maps to null")
}

func TestParseLine_Malformed(t *testing.T) {
	_, err := ParseLine("lonely-gene", 7)
	require.Error(t, err)
	assert.Equal(t, errors.MalformedRecord, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "line 7")

	_, err = ParseLine("g\t562\tabc", 2)
	assert.Equal(t, errors.MalformedRecord, errors.CodeOf(err))

	_, err = ParseLine("g\t562\tNaN", 2)
	assert.Equal(t, errors.MalformedRecord, errors.CodeOf(err))
}

func TestParse(t *testing.T) {
	cols, recs, err := Parse("gene\ttaxid\tevalue", []string{
		"g1\t9606\t0.01",
		"\r",
		"",
		"g2\tNA\t0.5",
	})
	require.NoError(t, err)
	assert.True(t, cols.Scores)
	assert.False(t, cols.Headers)
	require.Len(t, recs, 2)
	assert.Equal(t, "g2", recs[1].GeneName)
	assert.Equal(t, RootTaxID, recs[1].TaxID)
}

func TestParse_FailsWholeBatch(t *testing.T) {
	_, recs, err := Parse("gene\ttaxid", []string{"g1\t1", "broken", "g3\t1"})
	require.Error(t, err)
	assert.Nil(t, recs)
	assert.Contains(t, err.Error(), "line 2")
}

func TestSplitUpload(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		header string
		lines  []string
	}{
		{"empty", "", "", nil},
		{"header only", "gene\ttaxid\n", "gene\ttaxid", []string{}},
		{"trailing newline", "h\na\nb\n", "h", []string{"a", "b"}},
		{"no trailing newline", "h\na\nb", "h", []string{"a", "b"}},
		{"crlf", "h\r\na\r\n", "h\r", []string{"a\r"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, lines := SplitUpload([]byte(tt.data))
			assert.Equal(t, tt.header, header)
			assert.Equal(t, tt.lines, lines)
		})
	}
}
