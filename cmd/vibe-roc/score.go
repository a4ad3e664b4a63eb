package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-roc/internal/dataset"
	"github.com/inodb/vibe-roc/internal/duckdb"
	"github.com/inodb/vibe-roc/internal/permute"
	"github.com/inodb/vibe-roc/internal/report"
	"github.com/inodb/vibe-roc/internal/score"
)

type scoreOptions struct {
	output string
	topOut string
	rocOut string
	reuse  bool
}

func (a *app) newScoreCmd() *cobra.Command {
	var opts scoreOptions

	cmd := &cobra.Command{
		Use:   "score [options] <score-matrix> <labels>",
		Short: "Score gene sets against a two-class phenotype",
		Long: `Score every gene set of an enrichment score matrix by how well it separates
two phenotype classes.

Arguments:
  <score-matrix>  GCT (1.2/1.3) or tab-delimited gene set x sample matrix, optionally gzipped ('-' for stdin)
  <labels>        CLS file, or tab-delimited sample<TAB>class file`,
		Example: `  vibe-roc score scores.gct phenotype.cls
  vibe-roc score -o results.tsv.gz --top-out top.tsv scores.gct phenotype.cls
  vibe-roc score --reverse --permutations 5000 --seed 7 scores.gct labels.tsv
  vibe-roc score --db runs.duckdb scores.gct phenotype.cls`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScore(cmd.Context(), args[0], args[1], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "-", "Results file (.gz for gzip, '-' for stdout)")
	f.StringVar(&opts.topOut, "top-out", "", "Write scores and labels of the top gene sets for plotting")
	f.StringVar(&opts.rocOut, "roc-out", "", "Write ROC curve points of the top gene sets")
	f.BoolVar(&opts.reuse, "reuse", false, "Reuse a stored run with the same inputs and settings (requires --db)")
	f.Bool("reverse", false, "Treat class 0 as the positive class")
	f.Int("top", 20, "Number of top gene sets handed to the plot outputs")
	f.Int("permutations", permute.DefaultPermutations, "Label permutations (used when both classes have >= 7 samples)")
	f.Int64("seed", permute.DefaultSeed, "Permutation random seed")
	f.Int("workers", 0, "Worker goroutines (0 = all CPUs)")
	f.String("db", "", "DuckDB file to store the run in")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return a.bindFlags(cmd, map[string]string{
			keyReverse:      "reverse",
			keyTop:          "top",
			keyPermutations: "permutations",
			keySeed:         "seed",
			keyWorkers:      "workers",
			keyDB:           "db",
		})
	}

	return cmd
}

func (a *app) runScore(ctx context.Context, matrixPath, labelsPath string, opts scoreOptions) error {
	var (
		reverse      = a.v.GetBool(keyReverse)
		top          = a.v.GetInt(keyTop)
		permutations = a.v.GetInt(keyPermutations)
		seed         = a.v.GetInt64(keySeed)
		workers      = a.v.GetInt(keyWorkers)
		dbPath       = a.v.GetString(keyDB)
	)
	if opts.reuse && dbPath == "" {
		return &usageError{command: "vibe-roc score", err: fmt.Errorf("--reuse requires --db")}
	}
	if permutations <= 0 {
		return &usageError{command: "vibe-roc score", err: fmt.Errorf("permutation count must be positive, got %d", permutations)}
	}

	loader := dataset.NewLoader(reverse)
	loader.SetLogger(a.logger)
	ds, err := loader.Load(matrixPath, labelsPath)
	if err != nil {
		return err
	}
	a.logger.Info("loaded dataset", zap.Stringer("dataset", ds))

	var (
		store *duckdb.Store
		run   *duckdb.Run
	)
	if dbPath != "" {
		store, err = duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err = newRun(matrixPath, labelsPath)
		if err != nil {
			return err
		}
		run.PositiveClass = ds.PositiveClass
		run.NegativeClass = ds.NegativeClass
		run.Reverse = reverse
		run.Permutations = permutations
		run.Seed = seed
	}

	var table *report.Table
	if opts.reuse {
		table, err = a.storedTable(store, run)
		if err != nil {
			return err
		}
	}

	if table == nil {
		results, calibrated, err := a.computeResults(ctx, ds, permute.Options{
			Permutations: permutations,
			Seed:         seed,
			Workers:      workers,
		})
		if err != nil {
			return err
		}
		table = report.Rank(results)

		if store != nil {
			run.Calibrated = calibrated
			if err := store.WriteRun(run, table.Rows()); err != nil {
				return fmt.Errorf("store run: %w", err)
			}
			a.logger.Info("stored run", zap.String("run_id", run.ID), zap.String("db", dbPath))
		}
	}

	if err := a.writeResults(opts.output, table); err != nil {
		return err
	}

	best := table.Top(top)
	if opts.topOut != "" {
		if err := writeFile(opts.topOut, func(w io.Writer) error {
			return report.NewPlotWriter(w, ds).WriteScores(best)
		}); err != nil {
			return err
		}
	}
	if opts.rocOut != "" {
		if err := writeFile(opts.rocOut, func(w io.Writer) error {
			return report.NewPlotWriter(w, ds).WriteROC(best)
		}); err != nil {
			return err
		}
	}

	a.logger.Debug("top gene sets", zap.Strings("gene_sets", table.TopIDs(top)))
	return nil
}

// computeResults scores every gene set and calibrates them when the
// class sizes allow it.
func (a *app) computeResults(ctx context.Context, ds *dataset.Dataset, opts permute.Options) ([]*score.Result, bool, error) {
	scorer := score.NewScorer(ds)
	scorer.SetWorkers(opts.Workers)
	scorer.SetLogger(a.logger)
	results, err := scorer.ScoreAll()
	if err != nil {
		return nil, false, err
	}

	calibrator := permute.NewCalibrator(opts)
	calibrator.SetLogger(a.logger)
	calibrated, err := calibrator.Calibrate(ctx, ds, results)
	if err != nil {
		return nil, false, err
	}
	return results, calibrated, nil
}

// storedTable returns the ranked results of a stored run matching run, or
// nil when there is none.
func (a *app) storedTable(store *duckdb.Store, run *duckdb.Run) (*report.Table, error) {
	prior, err := store.FindRun(run)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		a.logger.Info("no stored run matches, scoring")
		return nil, nil
	}

	rows, err := store.RunResults(prior.ID, 0)
	if err != nil {
		return nil, err
	}
	a.logger.Info("reusing stored run", zap.String("run_id", prior.ID))
	return report.Rank(resultPointers(rows)), nil
}

func newRun(matrixPath, labelsPath string) (*duckdb.Run, error) {
	matrix, err := duckdb.StatFile(matrixPath)
	if err != nil {
		return nil, fmt.Errorf("stat score matrix: %w", err)
	}
	labels, err := duckdb.StatFile(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("stat labels: %w", err)
	}
	return duckdb.NewRun(matrix, labels), nil
}

func (a *app) writeResults(path string, table *report.Table) error {
	write := func(w io.Writer) error {
		tw := report.NewTabWriter(w)
		if err := tw.WriteTable(table); err != nil {
			return err
		}
		return tw.Flush()
	}
	if path == "" || path == "-" {
		if err := write(a.stdout); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		return nil
	}
	return writeFile(path, write)
}

// writeFile creates path, runs write on it and closes it.
func writeFile(path string, write func(io.Writer) error) error {
	w, err := report.Create(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
