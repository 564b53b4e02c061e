package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/input"
	"github.com/rbseq/phbfit/internal/printer"
	"github.com/rbseq/phbfit/internal/sqlite"
)

const fitnessTable = "locusId\tcarbon_source\tnitrogen_source\ttime\treplicate\tnorm_gg_fitness\n" +
	"H16_A0001\tfructose\tNH4Cl\tF3\t1\t-1.0\n" +
	"H16_A0001\tfructose\tNH4Cl\tF3\t2\t-2.0\n" +
	"H16_A0001\tformate\tNH4Cl\tF3\t1\t-2.0\n" +
	"H16_A0002\tfructose\tNH4Cl\tF3\t1\t-3.0\n" +
	"H16_A0002\tformate\tNH4Cl\tF3\t1\t-3.0\n" +
	"H16_A0003\tfructose\tNH4Cl\tF3\t1\t0.5\n" +
	"H16_A0003\tformate\tNH4Cl\tF3\t1\t0.5\n"

// essentialityTable is a steady-state growth experiment independent of the
// density-fraction screen in fitnessTable.
const essentialityTable = "locusId\tcarbon_source\tnitrogen_source\ttime\treplicate\tnorm_gg_fitness\n" +
	"H16_A0001\tfructose\tNH4Cl\tG8\t1\t-0.2\n" +
	"H16_A0001\tformate\tNH4Cl\tG8\t1\t-0.2\n" +
	"H16_A0002\tfructose\tNH4Cl\tG8\t1\t-3.2\n" +
	"H16_A0002\tformate\tNH4Cl\tG8\t1\t-3.1\n" +
	"H16_A0003\tfructose\tNH4Cl\tG8\t1\t0.1\n" +
	"H16_A0003\tformate\tNH4Cl\tG8\t1\t0.1\n"

// runCLI runs the command line with fresh global state.
func runCLI(t *testing.T, args ...string) int {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	printer.Stderr = io.Discard
	t.Cleanup(func() { printer.Stderr = os.Stderr })
	return run(args)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRun_ExitCodes(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"version"}, printer.ExitOK},
		{"help", []string{"--help"}, printer.ExitOK},
		{"unknown command", []string{"frobnicate"}, printer.ExitUsage},
		{"bad flag value", []string{"rank", "--top", "many"}, printer.ExitUsage},
		{"unknown flag", []string{"essential", "--no-such-flag"}, printer.ExitUsage},
		{"missing required input", []string{"essential"}, printer.ExitUsage},
		{"missing conditions", []string{"rank", "--fitness", fit}, printer.ExitUsage},
		{"bad direction", []string{"rank", "--fitness", fit, "--direction", "sideways"}, printer.ExitUsage},
		{"missing file", []string{"aggregate", "--fitness", filepath.Join(t.TempDir(), "nope.tsv")}, printer.ExitFailure},
		{"unknown condition", []string{"rank", "--fitness", fit,
			"--condition-a", "fructose_NH4Cl", "--condition-b", "succinate_NH4Cl"}, printer.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runCLI(t, tt.args...))
		})
	}
}

func TestEssentialCommand(t *testing.T) {
	ess := writeFile(t, "fitness_8gen.tsv", essentialityTable)
	out := filepath.Join(t.TempDir(), "essential.tsv")

	code := runCLI(t, "essential", "--essentiality-fitness", ess, "--time", "G8", "-o", out)
	require.Equal(t, printer.ExitOK, code)

	got := readFile(t, out)
	assert.True(t, strings.HasPrefix(got, "locus_tag\tsubstrate\tmean_normalized_fitness\tis_essential\n"))
	assert.Contains(t, got, "H16_A0002\tfructose_NH4Cl\t-3.2000\tTRUE\n")
	assert.Contains(t, got, "H16_A0001\tfructose_NH4Cl\t-0.2000\tFALSE\n")
}

func TestEssentialCommand_IgnoresScreenFitness(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	code := runCLI(t, "essential", "--fitness", fit)
	assert.Equal(t, printer.ExitUsage, code, "the screen table is not an essentiality table")
}

func TestEssentialCommand_Cutoff(t *testing.T) {
	ess := writeFile(t, "fitness_8gen.tsv", essentialityTable)
	out := filepath.Join(t.TempDir(), "essential.tsv")

	code := runCLI(t, "essential", "--essentiality-fitness", ess, "--cutoff", "-0.1",
		"--substrates", "formate_NH4Cl", "--essential-only", "-o", out)
	require.Equal(t, printer.ExitOK, code)

	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	assert.Equal(t, []string{
		"locus_tag\tsubstrate\tmean_normalized_fitness\tis_essential",
		"H16_A0001\tformate_NH4Cl\t-0.2000\tTRUE",
		"H16_A0002\tformate_NH4Cl\t-3.1000\tTRUE",
	}, lines)
}

func TestRankCommand(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	out := filepath.Join(t.TempDir(), "ranked.tsv")

	code := runCLI(t, "rank", "--fitness", fit,
		"--condition-a", "fructose_NH4Cl", "--condition-b", "formate_NH4Cl", "--fraction", "F3",
		"--top", "1", "-o", out)
	require.Equal(t, printer.ExitOK, code)

	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	assert.Equal(t, []string{
		"rank\tlocus_tag\tgene_name\tscore_fructose_NH4Cl\tscore_formate_NH4Cl\tcombined_score",
		"1\tH16_A0002\tH16_A0002\t-3.0000\t-3.0000\t-6.0000",
	}, lines)
}

func TestRankCommand_EnrichmentExcludingEssential(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	ess := writeFile(t, "fitness_8gen.tsv", essentialityTable)
	out := filepath.Join(t.TempDir(), "ranked.tsv")

	code := runCLI(t, "rank", "--fitness", fit, "--essentiality-fitness", ess,
		"--condition-a", "fructose_NH4Cl", "--condition-b", "formate_NH4Cl",
		"--direction", "enrichment", "--exclude-essential", "--all", "-o", out)
	require.Equal(t, printer.ExitOK, code)

	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1\tH16_A0003\t"))
	assert.True(t, strings.HasPrefix(lines[2], "2\tH16_A0001\t"))
}

func TestRankCommand_ExcludeEssentialWithoutTable(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	out := filepath.Join(t.TempDir(), "ranked.tsv")

	// A gene that is strongly depleted in the screen is still ranked when no
	// independent essentiality table is given.
	code := runCLI(t, "rank", "--fitness", fit,
		"--condition-a", "fructose_NH4Cl", "--condition-b", "formate_NH4Cl",
		"--exclude-essential", "--all", "-o", out)
	require.Equal(t, printer.ExitOK, code)

	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "1\tH16_A0002\t"))
}

func TestRankCommand_ConfigFile(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	cfg := writeFile(t, "screen.yaml", "inputs:\n  fitness: "+fit+"\n"+
		"ranking:\n  condition_a: fructose_NH4Cl\n  condition_b: formate_NH4Cl\n  threshold: -3.5\n")
	out := filepath.Join(t.TempDir(), "ranked.tsv")

	code := runCLI(t, "rank", "--config", cfg, "-o", out)
	require.Equal(t, printer.ExitOK, code)

	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	require.Len(t, lines, 3, "threshold inclusive, top-N ignored")
	assert.Contains(t, lines[2], "H16_A0001")
}

func TestAggregateCommand_Filter(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	out := filepath.Join(t.TempDir(), "summary.tsv")

	code := runCLI(t, "aggregate", "--fitness", fit, "--condition", "formate_NH4Cl", "-o", out)
	require.Equal(t, printer.ExitOK, code)

	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	require.Len(t, lines, 4)
	for _, l := range lines[1:] {
		assert.Contains(t, l, "\tformate_NH4Cl\t")
	}
}

func TestRunCommand(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	out := filepath.Join(t.TempDir(), "results")
	db := filepath.Join(t.TempDir(), "screen.sqlite")

	ess := writeFile(t, "fitness_8gen.tsv", essentialityTable)
	code := runCLI(t, "run", "--fitness", fit, "--essentiality-fitness", ess,
		"--condition-a", "fructose_NH4Cl", "--condition-b", "formate_NH4Cl",
		"--sample", "1", "--out", out,
		"--export", "--export-format", "sqlite", "--db", db)
	require.Equal(t, printer.ExitOK, code)

	for _, name := range []string{"gene_summary.tsv", "essentiality.tsv", "combined_scores.tsv",
		"selected_genes.tsv", "sampled_genes.tsv"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, "mapped_barcodes.tsv"))
	assert.Len(t, strings.Split(strings.TrimSpace(readFile(t, filepath.Join(out, "sampled_genes.tsv"))), "\n"), 2)
	assert.FileExists(t, db)
}

func TestExportCommand_SQLite(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	db := filepath.Join(t.TempDir(), "screen.sqlite")

	for i := 0; i < 2; i++ {
		code := runCLI(t, "export", "--fitness", fit, "--export-format", "sqlite", "--db", db, "--label", "F3")
		require.Equal(t, printer.ExitOK, code)
	}

	store, err := sqlite.Open(db)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2, "each export is a new run")
	assert.Equal(t, "F3", runs[0].Label)
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
}

func TestExportCommand_UnknownFormat(t *testing.T) {
	fit := writeFile(t, "fitness.tsv", fitnessTable)
	code := runCLI(t, "export", "--fitness", fit, "--export-format", "parquet")
	assert.Equal(t, printer.ExitFailure, code)
}

func TestConfigSetGet(t *testing.T) {
	path := writeFile(t, "phbfit.yaml", "log:\n  level: warn\n")

	require.Equal(t, printer.ExitOK, runCLI(t, "--config", path, "config", "set", "ranking.top_n", "5"))
	saved := readFile(t, path)
	assert.Contains(t, saved, "top_n: 5")
	assert.Contains(t, saved, "level: warn")

	assert.Equal(t, printer.ExitOK, runCLI(t, "--config", path, "config", "get", "ranking.top_n"))
	assert.Equal(t, printer.ExitUsage, runCLI(t, "--config", path, "config", "get", "no.such.key"))
	assert.Equal(t, printer.ExitUsage, runCLI(t, "--config", path+".missing", "config"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("yes"))
	assert.Equal(t, false, parseValue("off"))
	assert.Equal(t, 5, parseValue("5"))
	assert.Equal(t, -2.5, parseValue("-2.5"))
	assert.Equal(t, "fructose_NH4Cl", parseValue("fructose_NH4Cl"))
}

func TestReadIdentifiers(t *testing.T) {
	opener := input.NewOpener(input.S3Config{})
	ctx := context.Background()

	plain := writeFile(t, "ids.txt", "# selected\nH16_A0001\n\nH16_A0002\n")
	ids, err := readIdentifiers(ctx, opener, plain)
	require.NoError(t, err)
	assert.Equal(t, []string{"H16_A0001", "H16_A0002"}, ids)

	table := writeFile(t, "selected.tsv",
		"rank\tlocus_tag\tgene_name\n1\tH16_A0002\tphaC1\n2\tH16_B0357\tNA\n")
	ids, err = readIdentifiers(ctx, opener, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"H16_A0002", "H16_B0357"}, ids)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write([]byte("rank\tlocus_tag\n1\tH16_A1437\n2\tNA\n3\t\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	gzipped := writeFile(t, "selected.tsv.gz", buf.String())
	ids, err = readIdentifiers(ctx, opener, gzipped)
	require.NoError(t, err)
	assert.Equal(t, []string{"H16_A1437"}, ids, "missing values skipped")
}

func TestFilterSummaries(t *testing.T) {
	s := []fitness.Summary{
		{LocusTag: "A", Condition: "fructose_NH4Cl", Fraction: "F3"},
		{LocusTag: "A", Condition: "fructose_NH4Cl", Fraction: "F1"},
		{LocusTag: "A", Condition: "formate_NH4Cl", Fraction: "F3"},
	}
	assert.Len(t, filterSummaries(s, "", ""), 3)
	assert.Len(t, filterSummaries(s, "fructose_NH4Cl", ""), 2)
	assert.Len(t, filterSummaries(s, "", "F3"), 2)
	assert.Len(t, filterSummaries(s, "formate_NH4Cl", "F1"), 0)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"fructose", "formate"}, splitList([]string{"fructose, formate", ""}))
	assert.Nil(t, splitList(nil))
}
