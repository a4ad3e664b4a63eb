package roc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairwiseAUC is the Mann-Whitney probability P(pos > neg) + 0.5 P(pos == neg).
func pairwiseAUC(scores []float64, positive []bool) float64 {
	var wins float64
	var pairs int
	for i, si := range scores {
		if !positive[i] {
			continue
		}
		for j, sj := range scores {
			if positive[j] {
				continue
			}
			pairs++
			switch {
			case si > sj:
				wins++
			case si == sj:
				wins += 0.5
			}
		}
	}
	return wins / float64(pairs)
}

func flip(positive []bool) []bool {
	out := make([]bool, len(positive))
	for i, p := range positive {
		out[i] = !p
	}
	return out
}

func TestAUC_PerfectSeparation(t *testing.T) {
	scores := []float64{10, 9, 8, 7, 1, 2, 3, 4}
	positive := []bool{true, true, true, true, false, false, false, false}

	c := NewCurve(scores, positive)
	assert.Equal(t, 1.0, c.AUC())
	assert.False(t, c.Degenerate)
	assert.Equal(t, 4, c.Positives)
	assert.Equal(t, 4, c.Negatives)
	assert.Len(t, c.Cuts, 8)

	assert.Equal(t, 0.0, NewCurve(scores, flip(positive)).AUC())
}

func TestAUC_MidrankTies(t *testing.T) {
	// pos {3,2,2} vs neg {2,1,1}: 8 of 9 pairs won counting ties as half.
	scores := []float64{3, 2, 2, 2, 1, 1}
	positive := []bool{true, true, true, false, false, false}

	c := NewCurve(scores, positive)
	assert.InDelta(t, 8.0/9.0, c.AUC(), 1e-15)

	// The tied group is swept as one diagonal step.
	require.Len(t, c.Cuts, 3)
	assert.Equal(t, Cut{Threshold: 2, TP: 3, FP: 1, TN: 2, FN: 0}, c.Cuts[1])
	assert.Equal(t, []Point{
		{0, 0},
		{0, 1.0 / 3.0},
		{1.0 / 3.0, 1},
		{1, 1},
	}, c.Points())
}

func TestAUC_TieGroupSpanningClasses(t *testing.T) {
	// One tie group spanning both classes plus a distinct value.
	scores := []float64{5, 5, 5, 5, 0}
	positive := []bool{true, false, true, false, false}
	assert.InDelta(t, pairwiseAUC(scores, positive), NewCurve(scores, positive).AUC(), 1e-15)
}

func TestAUC_MatchesPairwiseProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 4 + rng.Intn(20)
		scores := make([]float64, n)
		positive := make([]bool, n)
		for i := range scores {
			scores[i] = float64(rng.Intn(6)) // plenty of ties
			positive[i] = i%2 == 0
		}

		c := NewCurve(scores, positive)
		if c.Degenerate {
			assert.True(t, math.IsNaN(c.AUC()))
			continue
		}
		auc := c.AUC()
		assert.InDelta(t, pairwiseAUC(scores, positive), auc, 1e-12)
		assert.GreaterOrEqual(t, auc, 0.0)
		assert.LessOrEqual(t, auc, 1.0)

		// Swapping the positive class mirrors the AUC.
		assert.InDelta(t, 1-auc, NewCurve(scores, flip(positive)).AUC(), 1e-15)
	}
}

func TestAUC_Degenerate(t *testing.T) {
	scores := []float64{5, 5, 5, 5}
	positive := []bool{true, true, false, false}

	o := NewOrder(scores)
	assert.True(t, o.Degenerate())
	assert.Equal(t, 1, o.Groups())

	c := o.Curve(positive)
	assert.True(t, c.Degenerate)
	assert.True(t, math.IsNaN(c.AUC()))
	require.Len(t, c.Cuts, 1)
	assert.Equal(t, Cut{Threshold: 5, TP: 2, FP: 2}, c.Cuts[0])
}

func TestOrder_ReusedAcrossLabelings(t *testing.T) {
	scores := []float64{0.3, -1.2, 0.3, 2.5, 0.9, -0.4, 0.9}
	o := NewOrder(scores)

	labelings := [][]bool{
		{true, false, true, false, true, false, false},
		{false, true, false, true, false, true, true},
		{true, true, false, false, false, true, false},
	}
	for _, positive := range labelings {
		assert.Equal(t, NewCurve(scores, positive).AUC(), o.AUC(positive))
	}
}

func TestAUC_SingleClassIsNaN(t *testing.T) {
	o := NewOrder([]float64{1, 2, 3})
	assert.True(t, math.IsNaN(o.AUC([]bool{true, true, true})))
}
