package score

import (
	"fmt"
	"math"
)

// DirectionNone marks a gene set with AUC exactly 0.5.
const DirectionNone = "none"

// Result holds the discrimination statistics of one gene set.
// Fields that are not available are NaN.
type Result struct {
	GeneSet string

	AUC float64
	// Direction is the class name the gene set is enriched toward.
	Direction string

	Threshold   float64
	MCC         float64
	Sensitivity float64
	Specificity float64

	WilcoxonP   float64
	WilcoxonFDR float64

	// Permutation fields, NaN unless calibration ran.
	NES  float64
	NomP float64
	FDR  float64

	Degenerate bool
}

// Deviation returns AUC - 0.5, or 0 when AUC is undefined.
func (r *Result) Deviation() float64 {
	if math.IsNaN(r.AUC) {
		return 0
	}
	return r.AUC - 0.5
}

// Calibrated reports whether permutation statistics are attached.
func (r *Result) Calibrated() bool {
	return !math.IsNaN(r.NomP)
}

// ClearPermutation marks permutation statistics as not available.
func (r *Result) ClearPermutation() {
	r.NES = math.NaN()
	r.NomP = math.NaN()
	r.FDR = math.NaN()
}

// DegenerateGeneSetError reports a gene set whose scores do not vary.
type DegenerateGeneSetError struct {
	GeneSet string
	Value   float64
}

func (e *DegenerateGeneSetError) Error() string {
	return fmt.Sprintf("gene set %s is degenerate: all samples score %g", e.GeneSet, e.Value)
}
