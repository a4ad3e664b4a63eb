// Package score computes per-gene-set discrimination statistics.
package score

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"

	"github.com/inodb/vibe-roc/internal/dataset"
	"github.com/inodb/vibe-roc/internal/ranksum"
	"github.com/inodb/vibe-roc/internal/roc"
)

// Scorer computes ROC/AUC, threshold and rank-sum statistics for the
// gene sets of a dataset.
type Scorer struct {
	ds      *dataset.Dataset
	workers int
	logger  *zap.Logger
}

// NewScorer creates a scorer for the given dataset.
func NewScorer(ds *dataset.Dataset) *Scorer {
	return &Scorer{
		ds:     ds,
		logger: zap.NewNop(),
	}
}

// SetWorkers sets the worker pool size. 0 uses runtime.NumCPU().
func (s *Scorer) SetWorkers(n int) {
	s.workers = n
}

// SetLogger sets the logger for warning and info messages.
func (s *Scorer) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Score computes the statistics of the gene set at matrix row i.
// A degenerate gene set yields a flagged result together with a
// *DegenerateGeneSetError.
func (s *Scorer) Score(i int) (*Result, error) {
	m := s.ds.Matrix
	if i < 0 || i >= m.NumGeneSets() {
		return nil, fmt.Errorf("gene set row %d out of range", i)
	}
	scores := m.Row(i)

	curve := roc.NewCurve(scores, s.ds.Positive)
	sel := curve.Select()
	wilcoxon := ranksum.Test(scores, s.ds.Positive)

	r := &Result{
		GeneSet:     m.GeneSets[i],
		AUC:         curve.AUC(),
		Threshold:   sel.Threshold,
		MCC:         sel.MCC,
		Sensitivity: sel.Sensitivity,
		Specificity: sel.Specificity,
		WilcoxonP:   wilcoxon.P,
		WilcoxonFDR: math.NaN(),
		Degenerate:  curve.Degenerate,
	}
	r.ClearPermutation()

	switch {
	case r.Degenerate:
		r.Direction = "NA"
		return r, &DegenerateGeneSetError{GeneSet: r.GeneSet, Value: scores[0]}
	case r.AUC > 0.5:
		r.Direction = s.ds.PositiveClass
	case r.AUC < 0.5:
		r.Direction = s.ds.NegativeClass
	default:
		r.Direction = DirectionNone
	}

	return r, nil
}

// ScoreAll scores every gene set using the worker pool and returns
// results in matrix row order. Degenerate gene sets are logged and kept.
func (s *Scorer) ScoreAll() ([]*Result, error) {
	n := s.ds.Matrix.NumGeneSets()
	workers := s.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	go func() {
		defer close(items)
		for i := 0; i < n; i++ {
			items <- WorkItem{Seq: i, Row: i}
		}
	}()

	results := make([]*Result, 0, n)
	degenerate := 0
	err := OrderedCollect(s.ParallelScore(items, workers), func(r WorkResult) error {
		if r.Err != nil {
			var dErr *DegenerateGeneSetError
			if !errors.As(r.Err, &dErr) {
				return fmt.Errorf("score gene set row %d: %w", r.Row, r.Err)
			}
			degenerate++
			s.logger.Warn("degenerate gene set",
				zap.String("gene_set", dErr.GeneSet),
				zap.Float64("value", dErr.Value))
		}
		results = append(results, r.Result)
		return nil
	})
	if err != nil {
		return nil, err
	}

	adjustWilcoxon(results)

	s.logger.Info("scored gene sets",
		zap.Int("gene_sets", len(results)),
		zap.Int("degenerate", degenerate))

	return results, nil
}

// adjustWilcoxon fills WilcoxonFDR across non-degenerate gene sets.
func adjustWilcoxon(results []*Result) {
	pvals := make([]float64, len(results))
	for i, r := range results {
		pvals[i] = r.WilcoxonP
		if r.Degenerate {
			pvals[i] = math.NaN()
		}
	}
	for i, q := range ranksum.AdjustBH(pvals) {
		results[i].WilcoxonFDR = q
	}
}
