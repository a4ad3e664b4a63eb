package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-roc/internal/duckdb"
	"github.com/inodb/vibe-roc/internal/report"
	"github.com/inodb/vibe-roc/internal/score"
)

func (a *app) newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect scoring runs stored in DuckDB",
		Example: `  vibe-roc runs list --db runs.duckdb
  vibe-roc runs show --db runs.duckdb --top 10 2f1c7e0a
  vibe-roc runs delete --db runs.duckdb 2f1c7e0a`,
		Args: usageArgs(cobra.NoArgs),
	}
	cmd.PersistentFlags().String("db", "", "DuckDB file holding stored runs")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		a.logger = newLogger(a.stderr, a.verbose)
		if err := a.initConfig(); err != nil {
			return err
		}
		return a.bindFlags(cmd, map[string]string{keyDB: "db"})
	}

	cmd.AddCommand(a.newRunsListCmd(), a.newRunsShowCmd(), a.newRunsDeleteCmd())
	return cmd
}

func (a *app) newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s *duckdb.Store) error {
				runs, err := s.ListRuns()
				if err != nil {
					return err
				}
				return a.writeRuns(runs)
			})
		},
	}
}

func (a *app) newRunsShowCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the ranked results of a stored run",
		Long:  "Print the ranked results of a stored run. A unique prefix of the run id is enough.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s *duckdb.Store) error {
				run, err := s.LookupRun(args[0])
				if err != nil {
					return err
				}
				rows, err := s.RunResults(run.ID, top)
				if err != nil {
					return err
				}

				tw := report.NewTabWriter(a.stdout)
				if err := tw.WriteHeader(); err != nil {
					return err
				}
				for i := range rows {
					if err := tw.Write(&rows[i]); err != nil {
						return err
					}
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "Only show the top N gene sets (0 = all)")
	return cmd
}

func (a *app) newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run and its results",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s *duckdb.Store) error {
				run, err := s.LookupRun(args[0])
				if err != nil {
					return err
				}
				if err := s.DeleteRun(run.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Deleted run %s\n", run.ID)
				return nil
			})
		},
	}
}

// withStore opens the configured database for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, fn func(*duckdb.Store) error) error {
	path := a.v.GetString(keyDB)
	if path == "" {
		return &usageError{command: cmd.CommandPath(), err: fmt.Errorf("--db is required")}
	}
	s, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

var runListColumns = []string{
	"run_id", "created_at", "score_matrix", "labels", "positive_class", "negative_class",
	"reverse", "permutations", "seed", "calibrated", "gene_sets",
}

func (a *app) writeRuns(runs []*duckdb.Run) error {
	w := bufio.NewWriter(a.stdout)
	if _, err := w.WriteString(strings.Join(runListColumns, "\t") + "\n"); err != nil {
		return err
	}
	for _, r := range runs {
		values := []string{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			r.Matrix.Path,
			r.Labels.Path,
			r.PositiveClass,
			r.NegativeClass,
			strconv.FormatBool(r.Reverse),
			strconv.Itoa(r.Permutations),
			strconv.FormatInt(r.Seed, 10),
			strconv.FormatBool(r.Calibrated),
			strconv.Itoa(r.GeneSets),
		}
		if _, err := w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// resultPointers adapts stored rows for ranking.
func resultPointers(rows []score.Result) []*score.Result {
	out := make([]*score.Result, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
