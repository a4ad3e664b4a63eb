// Package ranksum implements the two-sided Wilcoxon rank-sum
// (Mann-Whitney U) test and Benjamini-Hochberg adjustment.
package ranksum

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Result holds the outcome of a rank-sum test.
type Result struct {
	// U is the Mann-Whitney statistic of the positive group.
	U float64
	// Z is the continuity- and tie-corrected normal deviate (signed).
	Z float64
	// P is the two-sided p-value in (0, 1].
	P float64
}

// Test compares scores of positive samples against the rest using the
// normal approximation with continuity and tie correction.
func Test(scores []float64, positive []bool) Result {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] < scores[idx[b]]
	})

	var rankSum, tieSum float64
	var n1 int
	for i := 0; i < n; {
		j := i
		for j < n && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		// midrank of positions i..j-1 (1-based)
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if positive[idx[k]] {
				rankSum += avg
				n1++
			}
		}
		if t := float64(j - i); t > 1 {
			tieSum += t*t*t - t
		}
		i = j
	}

	n2 := n - n1
	if n1 == 0 || n2 == 0 {
		return Result{P: 1}
	}

	f1, f2, nf := float64(n1), float64(n2), float64(n)
	u := rankSum - f1*(f1+1)/2
	mu := f1 * f2 / 2
	sigma := math.Sqrt(f1 * f2 / 12 * ((nf + 1) - tieSum/(nf*(nf-1))))
	if sigma <= 0 || math.IsNaN(sigma) {
		return Result{U: u, P: 1}
	}

	d := math.Abs(u-mu) - 0.5
	if d < 0 {
		d = 0
	}
	z := d / sigma
	if u < mu {
		z = -z
	}

	p := 2 * distuv.UnitNormal.CDF(-math.Abs(z))
	switch {
	case p > 1:
		p = 1
	case p <= 0:
		p = math.SmallestNonzeroFloat64
	}

	return Result{U: u, Z: z, P: p}
}

// AdjustBH returns Benjamini-Hochberg adjusted p-values. NaN inputs are
// left out of the correction and stay NaN.
func AdjustBH(pvals []float64) []float64 {
	adjusted := make([]float64, len(pvals))
	var idx []int
	for i, p := range pvals {
		if math.IsNaN(p) {
			adjusted[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}

	m := len(idx)
	if m == 0 {
		return adjusted
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return pvals[idx[a]] < pvals[idx[b]]
	})

	minP := 1.0
	for k := m - 1; k >= 0; k-- {
		i := idx[k]
		q := pvals[i] * float64(m) / float64(k+1)
		if q < minP {
			minP = q
		}
		adjusted[i] = minP
	}
	return adjusted
}
