package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/rbseq/phbfit/internal/export"
)

// WriteRun records a new run and batch-inserts its tables using the
// Appender API. The appender bypasses transactions, so a failed write
// deletes whatever rows of the run were already stored.
func (s *Store) WriteRun(ctx context.Context, t *export.Tables) (run export.Run, err error) {
	run = export.NewRun(t.Label)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, label) VALUES (?, ?, ?)`,
		run.ID, run.CreatedAt, run.Label); err != nil {
		return export.Run{}, fmt.Errorf("insert run: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if derr := s.DeleteRun(context.WithoutCancel(ctx), run.ID); derr != nil {
			err = fmt.Errorf("%w (removing partial run %s: %v)", err, run.ID, derr)
		}
		run = export.Run{}
	}()

	if err := s.appendTables(ctx, run.ID, t); err != nil {
		return export.Run{}, err
	}
	return run, nil
}

// appendTables appends every data row of t. The appenders are closed, and
// so flushed, before it returns.
func (s *Store) appendTables(ctx context.Context, runID string, t *export.Tables) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	appenders := make(map[string]*goduckdb.Appender, len(export.DataTables))
	defer func() {
		for _, a := range appenders {
			a.Close()
		}
	}()
	for _, table := range export.DataTables {
		if err := conn.Raw(func(driverConn any) error {
			a, err := goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
			if err != nil {
				return err
			}
			appenders[table] = a
			return nil
		}); err != nil {
			return fmt.Errorf("create appender for %s: %w", table, err)
		}
	}

	values := make([]driver.Value, 0, 24)
	err = t.Each(runID, func(table string, row []any) error {
		values = values[:0]
		for _, v := range row {
			values = append(values, v)
		}
		if err := appenders[table].AppendRow(values...); err != nil {
			return fmt.Errorf("append %s row: %w", table, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, table := range export.DataTables {
		if err := appenders[table].Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", table, err)
		}
	}
	return nil
}

// DeleteRun removes a run and all of its rows.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	tables := append([]string{}, export.DataTables...)
	for _, table := range append(tables, export.TableRuns) {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}
