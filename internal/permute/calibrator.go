// Package permute calibrates gene-set statistics against phenotype label
// permutations, producing GSEA-style normalized scores, nominal p-values
// and false discovery rates.
package permute

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-roc/internal/dataset"
	"github.com/inodb/vibe-roc/internal/roc"
	"github.com/inodb/vibe-roc/internal/score"
)

const (
	// MinClassSize is the smallest class for which permutation
	// calibration runs.
	MinClassSize = 7
	// DefaultPermutations is the default number of label permutations.
	DefaultPermutations = 1000
	// DefaultSeed seeds the permutation stream.
	DefaultSeed = 42
)

// Options configures a Calibrator.
type Options struct {
	Permutations int
	Seed         int64
	// Workers bounds concurrent gene sets. 0 uses runtime.NumCPU().
	Workers int
}

// DefaultOptions returns the default calibration settings.
func DefaultOptions() Options {
	return Options{Permutations: DefaultPermutations, Seed: DefaultSeed}
}

// Calibrator attaches permutation statistics to scored gene sets.
type Calibrator struct {
	opts   Options
	logger *zap.Logger
}

// NewCalibrator creates a calibrator.
func NewCalibrator(opts Options) *Calibrator {
	if opts.Permutations <= 0 {
		opts.Permutations = DefaultPermutations
	}
	return &Calibrator{opts: opts, logger: zap.NewNop()}
}

// SetLogger sets the logger for warning and info messages.
func (c *Calibrator) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Draw returns k class-size-preserving shuffles of positive, drawn in
// sequence from a single source seeded with seed.
func Draw(positive []bool, k int, seed int64) [][]bool {
	rng := rand.New(rand.NewSource(seed))
	perms := make([][]bool, k)
	for i := range perms {
		p := append([]bool(nil), positive...)
		// Fisher-Yates
		for j := len(p) - 1; j > 0; j-- {
			r := rng.Intn(j + 1)
			p[j], p[r] = p[r], p[j]
		}
		perms[i] = p
	}
	return perms
}

// Calibrate computes NES, NOM p and FDR for results, which must be in
// matrix row order. It returns false without modifying results when a
// class has fewer than MinClassSize samples.
func (c *Calibrator) Calibrate(ctx context.Context, ds *dataset.Dataset, results []*score.Result) (bool, error) {
	if len(results) != ds.Matrix.NumGeneSets() {
		return false, fmt.Errorf("calibrate: %d results for %d gene sets", len(results), ds.Matrix.NumGeneSets())
	}

	if class, size := ds.MinClass(); size < MinClassSize {
		c.logger.Warn("skipping permutation calibration",
			zap.Error(&dataset.InsufficientClassSizeError{Class: class, Size: size, Min: MinClassSize}))
		return false, nil
	}

	nulls, err := c.nullDistributions(ctx, ds, results)
	if err != nil {
		return false, err
	}

	c.normalize(results, nulls)

	c.logger.Info("permutation calibration complete",
		zap.Int("permutations", c.opts.Permutations),
		zap.Int64("seed", c.opts.Seed))
	return true, nil
}

// nullDistributions recomputes AUC - 0.5 for every gene set under every
// permutation. Degenerate gene sets get a nil distribution.
func (c *Calibrator) nullDistributions(ctx context.Context, ds *dataset.Dataset, results []*score.Result) ([][]float64, error) {
	perms := Draw(ds.Positive, c.opts.Permutations, c.opts.Seed)

	workers := c.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	nulls := make([][]float64, len(results))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, r := range results {
		if r.Degenerate {
			continue
		}
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			order := roc.NewOrder(ds.Matrix.Row(i))
			values := make([]float64, len(perms))
			for k, p := range perms {
				values[k] = order.AUC(p) - 0.5
			}
			nulls[i] = values
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("permutation pass: %w", err)
	}
	return nulls, nil
}

// signGroup holds one gene set's null statistics of one sign.
type signGroup struct {
	count int
	mean  float64 // mean |null|
}

func splitNulls(values []float64) (pos, neg signGroup) {
	var posAbs, negAbs stats.Float64Data
	for _, v := range values {
		if v >= 0 {
			posAbs = append(posAbs, v)
		} else {
			negAbs = append(negAbs, -v)
		}
	}
	pos.count, neg.count = len(posAbs), len(negAbs)
	pos.mean, _ = posAbs.Mean()
	neg.mean, _ = negAbs.Mean()
	return pos, neg
}

// normalize derives NES, NOM p and FDR from the observed statistics and
// their null distributions.
func (c *Calibrator) normalize(results []*score.Result, nulls [][]float64) {
	// Pools of |NES| per sign, across all gene sets.
	var nullPos, nullNeg, obsPos, obsNeg []float64

	for i, r := range results {
		r.ClearPermutation()
		values := nulls[i]
		if values == nil {
			continue
		}

		pos, neg := splitNulls(values)
		for _, v := range values {
			var n float64
			if v >= 0 {
				n = v / pos.mean
			} else {
				n = v / neg.mean
			}
			if !finite(n) {
				continue
			}
			if v >= 0 {
				nullPos = append(nullPos, n)
			} else {
				nullNeg = append(nullNeg, -n)
			}
		}

		obs := r.Deviation()
		group := pos
		if obs < 0 {
			group = neg
		}

		nes := obs / group.mean
		if group.count == 0 || !finite(nes) {
			c.logger.Warn("permutation statistics not available",
				zap.String("gene_set", r.GeneSet),
				zap.Int("same_sign_nulls", group.count),
				zap.Float64("null_mean", group.mean))
			continue
		}

		extreme := 0
		for _, v := range values {
			if obs >= 0 && v >= 0 && v >= obs {
				extreme++
			} else if obs < 0 && v < 0 && v <= obs {
				extreme++
			}
		}

		r.NES = nes
		r.NomP = float64(extreme) / float64(group.count)
		if nes >= 0 {
			obsPos = append(obsPos, nes)
		} else {
			obsNeg = append(obsNeg, -nes)
		}
	}

	sort.Float64s(nullPos)
	sort.Float64s(nullNeg)
	sort.Float64s(obsPos)
	sort.Float64s(obsNeg)

	for _, r := range results {
		if !r.Calibrated() {
			continue
		}
		if r.NES >= 0 {
			r.FDR = fdr(r.NES, nullPos, obsPos)
		} else {
			r.FDR = fdr(-r.NES, nullNeg, obsNeg)
		}
	}
}

// fdr returns the null fraction at or above t divided by the observed
// fraction at or above t, capped at 1. Both pools are sorted ascending
// and hold magnitudes of one sign group.
func fdr(t float64, nullPool, obsPool []float64) float64 {
	if len(nullPool) == 0 || len(obsPool) == 0 {
		return math.NaN()
	}
	nullFrac := float64(countAtLeast(nullPool, t)) / float64(len(nullPool))
	obsFrac := float64(countAtLeast(obsPool, t)) / float64(len(obsPool))
	if obsFrac == 0 {
		return 1
	}
	return math.Min(1, nullFrac/obsFrac)
}

func countAtLeast(sorted []float64, t float64) int {
	return len(sorted) - sort.SearchFloat64s(sorted, t)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
