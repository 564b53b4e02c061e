package sqlite

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/export"
	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/rank"
)

func tables() *export.Tables {
	return &export.Tables{
		Label:      "run A",
		ConditionA: "fructose_NH4Cl",
		ConditionB: "formate_NH4Cl",
		Summaries: []fitness.Summary{
			{LocusTag: "H16_A1437", GeneName: "phaC1", Condition: "fructose_NH4Cl", Replicates: 3, Valid: 2, MeanFitness: 2, MedianFitness: 2, MeanLog2FC: math.NaN()},
		},
		Scores: []rank.Score{
			{Rank: 1, LocusTag: "H16_A1437", GeneName: "phaC1", ScoreA: -1.5, ScoreB: -2, Combined: -3.5},
			{Rank: 2, LocusTag: "H16_A1438", GeneName: "phaA", ScoreA: -1, ScoreB: -1, Combined: -2},
		},
		Essentiality: []essential.Flag{
			{LocusTag: "H16_A0001", Substrate: "fructose", MeanFitness: -2.6, Essential: true},
		},
	}
}

func TestWriteRun_InMemory(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	run, err := s.WriteRun(ctx, tables())
	require.NoError(t, err)

	for table, want := range map[string]int64{
		export.TableRuns:            1,
		export.TableGeneSummary:     1,
		export.TableCombinedScores:  2,
		export.TableEssentiality:    1,
		export.TableSampleDiversity: 0,
	} {
		n, err := s.Count(ctx, table, run.ID)
		require.NoError(t, err)
		assert.Equal(t, want, n, table)
	}

	var lfc sql.NullFloat64
	require.NoError(t, s.DB().QueryRow(`SELECT mean_log2fc FROM gene_summary`).Scan(&lfc))
	assert.False(t, lfc.Valid)

	var combined float64
	require.NoError(t, s.DB().QueryRow(`SELECT combined FROM combined_scores WHERE rank = 1`).Scan(&combined))
	assert.Equal(t, -3.5, combined)
}

func TestRuns_PersistAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "phbfit.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	run, err := s.WriteRun(ctx, tables())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "run A", runs[0].Label)
	assert.True(t, run.CreatedAt.Equal(runs[0].CreatedAt))
}

func TestCount_UnknownTable(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Count(context.Background(), "state", "")
	assert.Error(t, err)
}

func TestInsertStatement(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO essentiality (run_id,locus_tag,substrate,mean_fitness,is_essential) VALUES (?,?,?,?,?)",
		insertStatement(export.TableEssentiality))
}
