package roc

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Selection is the chosen decision threshold of a curve.
type Selection struct {
	Cut
	J           float64 // Youden's J = TPR - FPR
	MCC         float64
	Sensitivity float64
	Specificity float64
}

// MCC returns the Matthews correlation coefficient of a confusion matrix,
// or 0 when any marginal total is zero.
func MCC(tp, fp, tn, fn int) float64 {
	denom := float64(tp+fp) * float64(tp+fn) * float64(tn+fp) * float64(tn+fn)
	if denom == 0 {
		return 0
	}
	num := float64(tp)*float64(tn) - float64(fp)*float64(fn)
	m := num / math.Sqrt(denom)
	// clamp rounding noise
	return math.Max(-1, math.Min(1, m))
}

// Midpoint returns the center of the curve's score range.
func (c *Curve) Midpoint() float64 {
	thresholds := make(stats.Float64Data, len(c.Cuts))
	for i, cut := range c.Cuts {
		thresholds[i] = cut.Threshold
	}
	lo, err := thresholds.Min()
	if err != nil {
		return math.NaN()
	}
	hi, _ := thresholds.Max()
	return (lo + hi) / 2
}

// Select picks the threshold maximizing Youden's J in the curve's
// enrichment direction: J when AUC >= 0.5, -J when AUC < 0.5. Ties go to
// the threshold nearest the score-range midpoint, then the higher one.
// Sensitivity and specificity always follow the score >= threshold rule,
// so a perfectly inverse gene set reports 0 and 0 with MCC -1.
func (c *Curve) Select() Selection {
	if len(c.Cuts) == 0 {
		return Selection{}
	}

	dir := int64(1)
	if auc := c.AUC(); !math.IsNaN(auc) && auc < 0.5 {
		dir = -1
	}
	mid := c.Midpoint()
	p, n := int64(c.Positives), int64(c.Negatives)

	// J scaled by P*N stays integral, so equal J compares exactly.
	best := 0
	bestJ := dir * (int64(c.Cuts[0].TP)*n - int64(c.Cuts[0].FP)*p)
	for i := 1; i < len(c.Cuts); i++ {
		cut := c.Cuts[i]
		j := dir * (int64(cut.TP)*n - int64(cut.FP)*p)
		switch {
		case j > bestJ:
			best, bestJ = i, j
		case j == bestJ && math.Abs(cut.Threshold-mid) < math.Abs(c.Cuts[best].Threshold-mid):
			best = i
		}
	}

	cut := c.Cuts[best]
	return Selection{
		Cut:         cut,
		J:           cut.Youden(),
		MCC:         MCC(cut.TP, cut.FP, cut.TN, cut.FN),
		Sensitivity: cut.TPR(),
		Specificity: cut.Specificity(),
	}
}
