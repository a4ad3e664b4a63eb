package cls

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CLSNumeric(t *testing.T) {
	l, err := Parse(strings.NewReader("6 2 1\n# normal tumor\n0 0 0 1 1 1\n"))
	require.NoError(t, err)

	assert.False(t, l.Keyed())
	assert.Equal(t, [2]string{"normal", "tumor"}, l.ClassNames)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, l.Classes)
	assert.Equal(t, 6, l.Len())
}

func TestParse_CLSNamedLabels(t *testing.T) {
	l, err := Parse(strings.NewReader("4 2 1\r\n#  MUT WT\r\nWT MUT\tWT MUT\r\n"))
	require.NoError(t, err)

	assert.Equal(t, [2]string{"MUT", "WT"}, l.ClassNames)
	assert.Equal(t, []int{1, 0, 1, 0}, l.Classes)
}

func TestParse_CLSLabelsAcrossLines(t *testing.T) {
	l, err := Parse(strings.NewReader("4 2 1\n# a b\n0 1\n1 0\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, 0}, l.Classes)
}

func TestParse_Keyed(t *testing.T) {
	l, err := Parse(strings.NewReader("sample\tphenotype\nS1\tresponder\nS2\tnon_responder\n# excluded\nS3\tresponder\n"))
	require.NoError(t, err)

	assert.True(t, l.Keyed())
	assert.Equal(t, [2]string{"non_responder", "responder"}, l.ClassNames)
	assert.Equal(t, []string{"S1", "S2", "S3"}, l.Samples)
	assert.Equal(t, []int{1, 0, 1}, l.Classes)
}

func TestParse_KeyedClassOrderIgnoresRowOrder(t *testing.T) {
	sorted, err := Parse(strings.NewReader("sample\tclass\nS1\tnormal\nS2\ttumor\n"))
	require.NoError(t, err)
	reversed, err := Parse(strings.NewReader("sample\tclass\nS2\ttumor\nS1\tnormal\n"))
	require.NoError(t, err)

	assert.Equal(t, [2]string{"normal", "tumor"}, sorted.ClassNames)
	assert.Equal(t, sorted.ClassNames, reversed.ClassNames)
	assert.Equal(t, []int{0, 1}, sorted.Classes)
	assert.Equal(t, []int{1, 0}, reversed.Classes)
}

func TestRead_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.cls")
	require.NoError(t, os.WriteFile(path, []byte("2 2 1\n# x y\n1 0\n"), 0644))

	l, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, l.Classes)

	_, err = Read(filepath.Join(t.TempDir(), "missing.cls"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"empty", "\n\n", "empty label file"},
		{"three classes", "3 3 1\n# a b c\n0 1 2\n", "expected 2 classes"},
		{"missing names", "2 2 1\n", "missing class name line"},
		{"names without hash", "2 2 1\na b\n0 1\n", "must start with '#'"},
		{"one name", "2 2 1\n# a\n0 1\n", "expected 2 class names"},
		{"duplicate names", "2 2 1\n# a a\n0 1\n", "duplicate class name"},
		{"count mismatch", "3 2 1\n# a b\n0 1\n", "declares 3 samples, found 2"},
		{"unknown label", "2 2 1\n# a b\n0 c\n", "unknown label"},
		{"keyed one class", "sample\tclass\nS1\ta\nS2\ta\n", "expected 2 classes, got 1"},
		{"keyed third class", "sample\tclass\nS1\ta\nS2\tb\nS3\tc\n", "more than 2 classes"},
		{"keyed duplicate", "sample\tclass\nS1\ta\nS1\tb\n", "duplicate sample"},
		{"keyed columns", "sample\tclass\nS1\ta\tx\n", "expected 2 columns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.content))
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Contains(t, pe.Message, tt.msg)
		})
	}
}
