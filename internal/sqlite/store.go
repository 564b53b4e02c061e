// Package sqlite exports computed tables to a single-file SQLite database
// using the pure Go driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/rbseq/phbfit/internal/export"
)

// timeLayout keeps created_at sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store persists exported runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ export.Store = (*Store)(nil)

// Open opens or creates a SQLite database at path. An empty path opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == "" {
		// Every new connection to :memory: is a fresh database.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			label TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS gene_summary (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			locus_tag TEXT, gene_name TEXT, condition TEXT,
			carbon_source TEXT, nitrogen_source TEXT, fraction TEXT,
			n INTEGER, n_valid INTEGER,
			mean_fitness REAL, median_fitness REAL,
			mean_log2fc REAL, median_log2fc REAL,
			mean_t REAL, median_t REAL,
			strains_per_gene REAL, counts REAL,
			eggnog_name TEXT, cog_process TEXT, pathway TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS combined_scores (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			rank INTEGER, locus_tag TEXT, gene_name TEXT,
			condition_a TEXT, condition_b TEXT,
			score_a REAL, score_b REAL, combined REAL
		)`,
		`CREATE TABLE IF NOT EXISTS essentiality (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			locus_tag TEXT, substrate TEXT, mean_fitness REAL, is_essential INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS sample_diversity (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			sample TEXT, total_reads INTEGER, barcodes INTEGER, mapped_barcodes INTEGER,
			mapped_reads INTEGER, fraction_mapped REAL, shannon REAL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func insertStatement(table string) string {
	cols := append([]string{"run_id"}, export.Columns[table]...)
	marks := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ","), marks)
}

// WriteRun records a new run and inserts its tables in one transaction.
func (s *Store) WriteRun(ctx context.Context, t *export.Tables) (run export.Run, retErr error) {
	run = export.NewRun(t.Label)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return export.Run{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, label) VALUES (?, ?, ?)`,
		run.ID, run.CreatedAt.Format(timeLayout), run.Label); err != nil {
		return export.Run{}, fmt.Errorf("insert run: %w", err)
	}

	stmts := make(map[string]*sql.Stmt, len(export.DataTables))
	defer func() {
		for _, st := range stmts {
			_ = st.Close()
		}
	}()
	for _, table := range export.DataTables {
		st, err := tx.PrepareContext(ctx, insertStatement(table))
		if err != nil {
			return export.Run{}, fmt.Errorf("prepare %s insert: %w", table, err)
		}
		stmts[table] = st
	}

	if err := t.Each(run.ID, func(table string, row []any) error {
		if _, err := stmts[table].ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
		return nil
	}); err != nil {
		return export.Run{}, err
	}

	if err := tx.Commit(); err != nil {
		return export.Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
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
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []export.Run
	for rows.Next() {
		var r export.Run
		var created string
		var label sql.NullString
		if err := rows.Scan(&r.ID, &created, &label); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at of run %s: %w", r.ID, err)
		}
		r.Label = label.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
