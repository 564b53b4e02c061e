// Package export defines the tables persisted by the database backends and
// their row layout.
package export

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/mapper"
	"github.com/rbseq/phbfit/internal/rank"
)

// Table names.
const (
	TableRuns            = "runs"
	TableGeneSummary     = "gene_summary"
	TableCombinedScores  = "combined_scores"
	TableEssentiality    = "essentiality"
	TableSampleDiversity = "sample_diversity"
)

// Columns lists the data columns of each per-run table, after run_id.
var Columns = map[string][]string{
	TableGeneSummary: {
		"locus_tag", "gene_name", "condition", "carbon_source", "nitrogen_source", "fraction",
		"n", "n_valid", "mean_fitness", "median_fitness", "mean_log2fc", "median_log2fc",
		"mean_t", "median_t", "strains_per_gene", "counts",
		"eggnog_name", "cog_process", "pathway",
	},
	TableCombinedScores: {
		"rank", "locus_tag", "gene_name", "condition_a", "condition_b",
		"score_a", "score_b", "combined",
	},
	TableEssentiality: {
		"locus_tag", "substrate", "mean_fitness", "is_essential",
	},
	TableSampleDiversity: {
		"sample", "total_reads", "barcodes", "mapped_barcodes", "mapped_reads",
		"fraction_mapped", "shannon",
	},
}

// DataTables are the per-run tables in write order.
var DataTables = []string{TableGeneSummary, TableCombinedScores, TableEssentiality, TableSampleDiversity}

// ValidTable reports whether name is an exported table.
func ValidTable(name string) bool {
	if name == TableRuns {
		return true
	}
	_, ok := Columns[name]
	return ok
}

// Run identifies one export.
type Run struct {
	ID        string
	CreatedAt time.Time
	Label     string
}

// NewRun creates a run with a fresh UUID stamped with the current time.
func NewRun(label string) Run {
	return Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Label:     label,
	}
}

// Tables is the set of computed tables written by one export.
type Tables struct {
	Label        string
	ConditionA   string
	ConditionB   string
	Summaries    []fitness.Summary
	Scores       []rank.Score
	Essentiality []essential.Flag
	Diversity    []mapper.SampleDiversity
}

// Store is implemented by the database backends.
type Store interface {
	WriteRun(ctx context.Context, t *Tables) (Run, error)
	Runs(ctx context.Context) ([]Run, error)
	Count(ctx context.Context, table, runID string) (int64, error)
	Close() error
}

// Each calls fn for every row of every data table, in DataTables order.
// Each row starts with runID followed by the table's Columns. Missing
// numeric values are passed as nil.
func (t *Tables) Each(runID string, fn func(table string, row []any) error) error {
	for i := range t.Summaries {
		s := &t.Summaries[i]
		if err := fn(TableGeneSummary, []any{
			runID, s.LocusTag, s.GeneName, s.Condition, s.Carbon, s.Nitrogen, s.Fraction,
			int64(s.Replicates), int64(s.Valid),
			Float(s.MeanFitness), Float(s.MedianFitness),
			Float(s.MeanLog2FC), Float(s.MedianLog2FC),
			Float(s.MeanT), Float(s.MedianT),
			Float(s.Strains), Float(s.Counts),
			s.EggNOGName, s.COGProcess, s.Pathway,
		}); err != nil {
			return err
		}
	}
	for i := range t.Scores {
		s := &t.Scores[i]
		if err := fn(TableCombinedScores, []any{
			runID, int64(s.Rank), s.LocusTag, s.GeneName, t.ConditionA, t.ConditionB,
			Float(s.ScoreA), Float(s.ScoreB), Float(s.Combined),
		}); err != nil {
			return err
		}
	}
	for i := range t.Essentiality {
		f := &t.Essentiality[i]
		if err := fn(TableEssentiality, []any{
			runID, f.LocusTag, f.Substrate, Float(f.MeanFitness), f.Essential,
		}); err != nil {
			return err
		}
	}
	for i := range t.Diversity {
		d := &t.Diversity[i]
		if err := fn(TableSampleDiversity, []any{
			runID, d.Sample, d.TotalReads, int64(d.Barcodes), int64(d.MappedBarcodes),
			d.MappedReads, Float(d.FractionMapped()), Float(d.Shannon),
		}); err != nil {
			return err
		}
	}
	return nil
}

// Float returns v, or nil when v is NaN or infinite so it is stored as NULL.
func Float(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// CountQuery builds the row count query for a table, optionally restricted
// to one run.
func CountQuery(table, runID string) (string, []any, error) {
	if !ValidTable(table) {
		return "", nil, fmt.Errorf("unknown table %q", table)
	}
	if runID == "" {
		return "SELECT COUNT(*) FROM " + table, nil, nil
	}
	return "SELECT COUNT(*) FROM " + table + " WHERE run_id = ?", []any{runID}, nil
}
