package score

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-roc/internal/cls"
	"github.com/inodb/vibe-roc/internal/dataset"
	"github.com/inodb/vibe-roc/internal/gct"
)

// scenario is a 3 gene set x 8 sample matrix: one perfectly separating
// set, one constant set and one inversely separating set.
func scenario(t *testing.T, reverse bool) *dataset.Dataset {
	t.Helper()
	m := &gct.Matrix{
		GeneSets: []string{"GS_SEPARATING", "GS_FLAT", "GS_INVERSE"},
		Samples:  []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"},
		Values: [][]float64{
			{10, 9, 8, 7, 1, 2, 3, 4},
			{5, 5, 5, 5, 5, 5, 5, 5},
			{1, 2, 3, 4, 10, 9, 8, 7},
		},
	}
	labels := &cls.Labels{
		ClassNames: [2]string{"normal", "tumor"},
		Classes:    []int{1, 1, 1, 1, 0, 0, 0, 0},
	}
	ds, err := dataset.NewLoader(reverse).Build(m, labels)
	require.NoError(t, err)
	return ds
}

func TestScore_SeparatingGeneSet(t *testing.T) {
	r, err := NewScorer(scenario(t, false)).Score(0)
	require.NoError(t, err)

	assert.Equal(t, "GS_SEPARATING", r.GeneSet)
	assert.Equal(t, 1.0, r.AUC)
	assert.Equal(t, 1.0, r.MCC)
	assert.Equal(t, 7.0, r.Threshold)
	assert.Equal(t, 1.0, r.Sensitivity)
	assert.Equal(t, 1.0, r.Specificity)
	assert.Less(t, r.WilcoxonP, 0.05)
	assert.Equal(t, "tumor", r.Direction)
	assert.False(t, r.Degenerate)
	assert.False(t, r.Calibrated())
	assert.InDelta(t, 0.5, r.Deviation(), 1e-15)
}

func TestScore_DegenerateGeneSet(t *testing.T) {
	r, err := NewScorer(scenario(t, false)).Score(1)

	var dErr *DegenerateGeneSetError
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, "GS_FLAT", dErr.GeneSet)
	assert.Equal(t, 5.0, dErr.Value)

	require.NotNil(t, r)
	assert.True(t, r.Degenerate)
	assert.True(t, math.IsNaN(r.AUC))
	assert.Equal(t, 0.0, r.MCC)
	assert.Equal(t, 5.0, r.Threshold)
	assert.Equal(t, "NA", r.Direction)
	assert.Equal(t, 0.0, r.Deviation())
}

func TestScore_InverseGeneSet(t *testing.T) {
	r, err := NewScorer(scenario(t, false)).Score(2)
	require.NoError(t, err)

	assert.Equal(t, 0.0, r.AUC)
	assert.Equal(t, -1.0, r.MCC)
	assert.Equal(t, "normal", r.Direction)
}

func TestScore_ReverseMirrorsAUC(t *testing.T) {
	fwd := NewScorer(scenario(t, false))
	rev := NewScorer(scenario(t, true))

	for _, row := range []int{0, 2} {
		a, err := fwd.Score(row)
		require.NoError(t, err)
		b, err := rev.Score(row)
		require.NoError(t, err)

		assert.InDelta(t, 1-a.AUC, b.AUC, 1e-15)
		assert.Equal(t, a.WilcoxonP, b.WilcoxonP)
		assert.Equal(t, a.Direction, b.Direction, "direction names the same class either way")
	}
}

func TestScore_OutOfRange(t *testing.T) {
	_, err := NewScorer(scenario(t, false)).Score(3)
	require.Error(t, err)
}

func TestScoreAll(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewScorer(scenario(t, false))
	s.SetLogger(zap.New(core))
	s.SetWorkers(2)

	results, err := s.ScoreAll()
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "GS_SEPARATING", results[0].GeneSet)
	assert.Equal(t, "GS_FLAT", results[1].GeneSet)
	assert.Equal(t, "GS_INVERSE", results[2].GeneSet)

	// BH over the two scored gene sets with equal p-values leaves them unchanged.
	assert.InDelta(t, results[0].WilcoxonP, results[0].WilcoxonFDR, 1e-15)
	assert.InDelta(t, results[2].WilcoxonP, results[2].WilcoxonFDR, 1e-15)
	assert.True(t, math.IsNaN(results[1].WilcoxonFDR))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "degenerate gene set", entry.Message)
	assert.Equal(t, "GS_FLAT", entry.ContextMap()["gene_set"])
}
