// Package duckdb persists scoring runs and their ranked gene-set results
// in DuckDB (queryable, append-only).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for scoring runs.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		created_at TIMESTAMP,
		matrix_path VARCHAR,
		matrix_size BIGINT,
		matrix_mtime TIMESTAMP,
		matrix_digest VARCHAR,
		labels_path VARCHAR,
		labels_size BIGINT,
		labels_mtime TIMESTAMP,
		labels_digest VARCHAR,
		positive_class VARCHAR,
		negative_class VARCHAR,
		reverse BOOLEAN,
		permutations BIGINT,
		seed BIGINT,
		calibrated BOOLEAN,
		gene_sets BIGINT
	)`); err != nil {
		return err
	}

	// NaN marks statistics that are not available.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS gene_set_results (
		run_id VARCHAR,
		rank BIGINT,
		gene_set VARCHAR,
		auc DOUBLE,
		direction VARCHAR,
		threshold DOUBLE,
		mcc DOUBLE,
		sensitivity DOUBLE,
		specificity DOUBLE,
		wilcoxon_p DOUBLE,
		wilcoxon_fdr DOUBLE,
		nom_p DOUBLE,
		fdr DOUBLE,
		nes DOUBLE,
		degenerate BOOLEAN,
		PRIMARY KEY (run_id, gene_set)
	)`)
	return err
}
