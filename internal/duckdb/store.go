// Package duckdb exports computed tables to a DuckDB database for ad-hoc
// SQL exploration. Each export is a run; rows carry the run's ID.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/rbseq/phbfit/internal/export"
)

// Store manages a DuckDB connection holding exported runs.
type Store struct {
	db   *sql.DB
	path string
}

var _ export.Store = (*Store)(nil)

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create export directory: %w", err)
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

// Path returns the database path ("" for in-memory).
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			created_at TIMESTAMP,
			label VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS gene_summary (
			run_id VARCHAR,
			locus_tag VARCHAR,
			gene_name VARCHAR,
			condition VARCHAR,
			carbon_source VARCHAR,
			nitrogen_source VARCHAR,
			fraction VARCHAR,
			n BIGINT,
			n_valid BIGINT,
			mean_fitness DOUBLE,
			median_fitness DOUBLE,
			mean_log2fc DOUBLE,
			median_log2fc DOUBLE,
			mean_t DOUBLE,
			median_t DOUBLE,
			strains_per_gene DOUBLE,
			counts DOUBLE,
			eggnog_name VARCHAR,
			cog_process VARCHAR,
			pathway VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS combined_scores (
			run_id VARCHAR,
			rank BIGINT,
			locus_tag VARCHAR,
			gene_name VARCHAR,
			condition_a VARCHAR,
			condition_b VARCHAR,
			score_a DOUBLE,
			score_b DOUBLE,
			combined DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS essentiality (
			run_id VARCHAR,
			locus_tag VARCHAR,
			substrate VARCHAR,
			mean_fitness DOUBLE,
			is_essential BOOLEAN
		)`,
		`CREATE TABLE IF NOT EXISTS sample_diversity (
			run_id VARCHAR,
			sample VARCHAR,
			total_reads BIGINT,
			barcodes BIGINT,
			mapped_barcodes BIGINT,
			mapped_reads BIGINT,
			fraction_mapped DOUBLE,
			shannon DOUBLE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of rows in table, restricted to runID when set.
func (s *Store) Count(ctx context.Context, table, runID string) (int64, error) {
	q, args, err := export.CountQuery(table, runID)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Runs lists exported runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]export.Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, label FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []export.Run
	for rows.Next() {
		var r export.Run
		var label sql.NullString
		if err := rows.Scan(&r.ID, &r.CreatedAt, &label); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Label = label.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
