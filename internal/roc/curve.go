// Package roc computes ROC curves, AUC and threshold statistics for a
// single gene set's scores against a binary positive/negative labeling.
//
// Samples are predicted positive when score >= threshold. Tied scores are
// swept together, so the curve moves diagonally across a tie group and
// AUC equals the Mann-Whitney probability with ties counted as 0.5.
package roc

import (
	"math"
	"sort"
)

// Order is the descending score order of one gene set, grouped by ties.
// It depends only on the scores, so it can be reused across labelings.
type Order struct {
	scores []float64
	idx    []int // sample indices, highest score first
	ends   []int // exclusive end offset in idx of each tie group
}

// NewOrder sorts sample indices by descending score.
func NewOrder(scores []float64) *Order {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	var ends []int
	for i := 1; i <= len(idx); i++ {
		if i == len(idx) || scores[idx[i]] != scores[idx[i-1]] {
			ends = append(ends, i)
		}
	}

	return &Order{scores: scores, idx: idx, ends: ends}
}

// Degenerate reports whether every sample has the same score.
func (o *Order) Degenerate() bool {
	return len(o.ends) <= 1
}

// Groups returns the number of distinct scores.
func (o *Order) Groups() int {
	return len(o.ends)
}

// AUC computes the area under the ROC curve for a labeling.
// Returns NaN for degenerate scores or a labeling without both classes.
func (o *Order) AUC(positive []bool) float64 {
	if o.Degenerate() {
		return math.NaN()
	}

	var tp, fp, area2 int64
	start := 0
	for _, end := range o.ends {
		var dtp, dfp int64
		for _, s := range o.idx[start:end] {
			if positive[s] {
				dtp++
			} else {
				dfp++
			}
		}
		// doubled trapezoid: dfp * (tp + (tp+dtp))
		area2 += dfp * (2*tp + dtp)
		tp += dtp
		fp += dfp
		start = end
	}

	if tp == 0 || fp == 0 {
		return math.NaN()
	}
	return float64(area2) / float64(2*tp*fp)
}

// Cut is the confusion matrix at one threshold.
type Cut struct {
	Threshold float64
	TP, FP    int
	TN, FN    int
}

// TPR returns the true positive rate (sensitivity).
func (c Cut) TPR() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

// FPR returns the false positive rate.
func (c Cut) FPR() float64 {
	return ratio(c.FP, c.FP+c.TN)
}

// Specificity returns TN / (TN + FP).
func (c Cut) Specificity() float64 {
	return ratio(c.TN, c.TN+c.FP)
}

// Youden returns TPR - FPR.
func (c Cut) Youden() float64 {
	return c.TPR() - c.FPR()
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Curve is a full ROC sweep of one gene set.
type Curve struct {
	// Cuts holds one entry per distinct score, highest threshold first.
	Cuts       []Cut
	Positives  int
	Negatives  int
	Degenerate bool
	auc        float64
}

// NewCurve sweeps every distinct score of scores as a threshold.
func NewCurve(scores []float64, positive []bool) *Curve {
	return NewOrder(scores).Curve(positive)
}

// Curve sweeps the order's distinct scores as thresholds for a labeling.
func (o *Order) Curve(positive []bool) *Curve {
	c := &Curve{
		Cuts:       make([]Cut, 0, len(o.ends)),
		Degenerate: o.Degenerate(),
		auc:        o.AUC(positive),
	}
	for _, p := range positive {
		if p {
			c.Positives++
		} else {
			c.Negatives++
		}
	}

	tp, fp := 0, 0
	start := 0
	for _, end := range o.ends {
		for _, s := range o.idx[start:end] {
			if positive[s] {
				tp++
			} else {
				fp++
			}
		}
		c.Cuts = append(c.Cuts, Cut{
			Threshold: o.scores[o.idx[start]],
			TP:        tp,
			FP:        fp,
			TN:        c.Negatives - fp,
			FN:        c.Positives - tp,
		})
		start = end
	}

	return c
}

// AUC returns the area under the curve, NaN when degenerate.
func (c *Curve) AUC() float64 {
	return c.auc
}

// Point is one vertex of the ROC curve.
type Point struct {
	FPR float64
	TPR float64
}

// Points returns the curve vertices starting at (0,0).
func (c *Curve) Points() []Point {
	pts := make([]Point, 0, len(c.Cuts)+1)
	pts = append(pts, Point{})
	for _, cut := range c.Cuts {
		pts = append(pts, Point{FPR: cut.FPR(), TPR: cut.TPR()})
	}
	return pts
}
