package duckdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-roc/internal/score"
)

// ErrRunNotFound is returned when no stored run matches an id.
var ErrRunNotFound = errors.New("run not found")

// Run describes one scoring invocation.
type Run struct {
	ID        string
	CreatedAt time.Time

	Matrix FileFingerprint
	Labels FileFingerprint

	PositiveClass string
	NegativeClass string
	Reverse       bool
	Permutations  int
	Seed          int64
	Calibrated    bool
	GeneSets      int
}

// NewRun creates a run with a fresh id for the given inputs.
func NewRun(matrix, labels FileFingerprint) *Run {
	return &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Matrix:    matrix,
		Labels:    labels,
	}
}

// SameInputs reports whether o scored the same files, by path and
// content, with the same settings.
func (r *Run) SameInputs(o *Run) bool {
	return r.Matrix.Matches(o.Matrix) && r.Labels.Matches(o.Labels) &&
		r.Reverse == o.Reverse && r.Permutations == o.Permutations && r.Seed == o.Seed
}

const runColumns = `run_id, created_at,
	matrix_path, matrix_size, matrix_mtime, matrix_digest,
	labels_path, labels_size, labels_mtime, labels_digest,
	positive_class, negative_class, reverse,
	permutations, seed, calibrated, gene_sets`

// WriteRun stores a run and its ranked results. rows must already be in
// rank order.
func (s *Store) WriteRun(run *Run, rows []score.Result) error {
	run.GeneSets = len(rows)
	if _, err := s.db.Exec(`INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt,
		run.Matrix.Path, run.Matrix.Size, run.Matrix.ModTime, run.Matrix.Digest,
		run.Labels.Path, run.Labels.Size, run.Labels.ModTime, run.Labels.Digest,
		run.PositiveClass, run.NegativeClass, run.Reverse,
		int64(run.Permutations), run.Seed, run.Calibrated, int64(run.GeneSets),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := s.appendResults(run.ID, rows); err != nil {
		if derr := s.DeleteRun(run.ID); derr != nil {
			return errors.Join(err, derr)
		}
		return err
	}
	return nil
}

// appendResults batch-inserts gene-set results using the Appender API.
func (s *Store) appendResults(runID string, rows []score.Result) error {
	if len(rows) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "gene_set_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, r := range rows {
		if err := appender.AppendRow(
			runID, int64(i+1), r.GeneSet,
			r.AUC, r.Direction, r.Threshold, r.MCC, r.Sensitivity, r.Specificity,
			r.WilcoxonP, r.WilcoxonFDR, r.NomP, r.FDR, r.NES,
			r.Degenerate,
		); err != nil {
			return fmt.Errorf("append gene set result: %w", err)
		}
	}

	return appender.Flush()
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(id string) error {
	if _, err := s.db.Exec("DELETE FROM gene_set_results WHERE run_id=?", id); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE run_id=?", id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// ListRuns returns all stored runs, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// LookupRun returns the run whose id equals or starts with id.
func (s *Store) LookupRun(id string) (*Run, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs
		WHERE starts_with(run_id, ?) ORDER BY run_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %s is ambiguous (%d matches)", id, len(runs))
	}
}

// FindRun returns the newest stored run with the same inputs and settings
// as run, or nil when there is none.
func (s *Store) FindRun(run *Run) (*Run, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.SameInputs(run) {
			return r, nil
		}
	}
	return nil, nil
}

// RunResults returns the ranked results of a run. limit <= 0 returns all.
func (s *Store) RunResults(id string, limit int) ([]score.Result, error) {
	query := `SELECT gene_set, auc, direction, threshold, mcc, sensitivity, specificity,
		wilcoxon_p, wilcoxon_fdr, nom_p, fdr, nes, degenerate
		FROM gene_set_results WHERE run_id=? ORDER BY rank`
	args := []any{id}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, int64(limit))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []score.Result
	for rows.Next() {
		var r score.Result
		if err := rows.Scan(
			&r.GeneSet, &r.AUC, &r.Direction, &r.Threshold, &r.MCC, &r.Sensitivity, &r.Specificity,
			&r.WilcoxonP, &r.WilcoxonFDR, &r.NomP, &r.FDR, &r.NES, &r.Degenerate,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// scanRuns scans rows into Run slices.
func scanRuns(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		var r Run
		var permutations, geneSets int64
		if err := rows.Scan(
			&r.ID, &r.CreatedAt,
			&r.Matrix.Path, &r.Matrix.Size, &r.Matrix.ModTime, &r.Matrix.Digest,
			&r.Labels.Path, &r.Labels.Size, &r.Labels.ModTime, &r.Labels.Digest,
			&r.PositiveClass, &r.NegativeClass, &r.Reverse,
			&permutations, &r.Seed, &r.Calibrated, &geneSets,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Permutations = int(permutations)
		r.GeneSets = int(geneSets)
		r.CreatedAt = r.CreatedAt.UTC()
		r.Matrix.ModTime = r.Matrix.ModTime.UTC()
		r.Labels.ModTime = r.Labels.ModTime.UTC()
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
