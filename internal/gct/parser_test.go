package gct

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, content string) (*Matrix, error) {
	t.Helper()
	return NewParserFromReader(strings.NewReader(content)).Parse()
}

func TestParse_PlainTable(t *testing.T) {
	m, err := parseString(t, "gene_set\tS1\tS2\tS3\n"+
		"HALLMARK_APOPTOSIS\t0.1\t-0.2\t0.35\n"+
		"HALLMARK_HYPOXIA\t1\t2\t3\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2", "S3"}, m.Samples)
	assert.Equal(t, []string{"HALLMARK_APOPTOSIS", "HALLMARK_HYPOXIA"}, m.GeneSets)
	assert.Equal(t, []float64{0.1, -0.2, 0.35}, m.Row(0))
	assert.Equal(t, 2, m.NumGeneSets())
	assert.Equal(t, 3, m.NumSamples())

	idx, ok := m.SampleIndex("S3")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	_, ok = m.SampleIndex("S9")
	assert.False(t, ok)
}

func TestParse_HashHeader(t *testing.T) {
	m, err := parseString(t, "# exported scores\n#gene_set\tS1\tS2\nGS1\t1\t2\nGS2\t3\t4\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2"}, m.Samples)
	assert.Equal(t, []string{"GS1", "GS2"}, m.GeneSets)
	assert.Equal(t, []float64{3, 4}, m.Row(1))
}

func TestParse_CRLFAndBlankLines(t *testing.T) {
	m, err := parseString(t, "# produced by ssgsea\r\nid\tA\tB\r\n\r\nGS1\t1\t2\r\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, m.Samples)
	assert.Equal(t, []float64{1, 2}, m.Row(0))
}

func TestParse_GCT12(t *testing.T) {
	m, err := parseString(t, "#1.2\n2\t3\n"+
		"Name\tDescription\tS1\tS2\tS3\n"+
		"GS_A\tna\t1\t2\t3\n"+
		"GS_B\tna\t4\t5\t6\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2", "S3"}, m.Samples)
	assert.Equal(t, []string{"GS_A", "GS_B"}, m.GeneSets)
	assert.Equal(t, []float64{4, 5, 6}, m.Row(1))
}

func TestParse_GCT13(t *testing.T) {
	m, err := parseString(t, "#1.3\n1\t2\t1\t1\n"+
		"id\tsource\tS1\tS2\n"+
		"tissue\tna\tliver\tlung\n"+
		"GS_A\tmsigdb\t0.5\t0.25\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2"}, m.Samples)
	assert.Equal(t, []float64{0.5, 0.25}, m.Row(0))
}

func TestParse_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.gct.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("#1.2\n1\t2\nName\tDescription\tS1\tS2\nGS\tx\t7\t8\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	m, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8}, m.Row(0))
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.gct"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		msg     string
	}{
		{"empty", "", 0, "no header line"},
		{"no samples", "id\nGS\n", 1, "no sample columns"},
		{"ragged row", "id\tS1\tS2\nGS\t1\n", 2, "expected 3 columns"},
		{"non numeric", "id\tS1\nGS\tabc\n", 2, "invalid score"},
		{"missing value", "id\tS1\tS2\nGS\t1\tNA\n", 2, "invalid score"},
		{"infinite", "id\tS1\nGS\tInf\n", 2, "invalid score"},
		{"duplicate gene set", "id\tS1\nGS\t1\nGS\t2\n", 3, "duplicate gene set"},
		{"duplicate sample", "id\tS1\tS1\nGS\t1\t2\n", 1, "duplicate sample"},
		{"no rows", "id\tS1\n", 1, "no gene set rows"},
		{"dimension rows", "#1.2\n3\t1\nName\tDescription\tS1\nGS\tx\t1\n", 4, "declares 3 gene sets"},
		{"bad dimension line", "#1.2\nfoo\nName\tDescription\tS1\n", 2, "dimension line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, tt.content)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.line, pe.Line)
			assert.Contains(t, pe.Message, tt.msg)
		})
	}
}
