package output

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbseq/phbfit/internal/barseq"
	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/mapper"
	"github.com/rbseq/phbfit/internal/rank"
	"github.com/rbseq/phbfit/internal/stringdb"
)

func lines(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	var out [][]string
	for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		out = append(out, strings.Split(l, "\t"))
	}
	return out
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "NA"},
		{-3.5, "-3.5000"},
		{0.123456, "0.1235"},
		{math.Copysign(0, -1), "0.0000"},
		{-0.00001, "0.0000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.in))
		})
	}
}

func TestWriteGeneSummaries(t *testing.T) {
	var buf bytes.Buffer
	err := WriteGeneSummaries(&buf, []fitness.Summary{{
		LocusTag:      "H16_A1437",
		GeneName:      "phaC1",
		Condition:     "fructose_NH4Cl",
		Carbon:        "fructose",
		Nitrogen:      "NH4Cl",
		Fraction:      "F3",
		Replicates:    3,
		Valid:         2,
		MeanFitness:   2,
		MedianFitness: 2,
		MeanLog2FC:    math.NaN(),
		MedianLog2FC:  math.NaN(),
		MeanT:         -3,
		MedianT:       -3,
		Strains:       12,
		Counts:        890,
		Pathway:       "PHB synthesis",
	}})
	require.NoError(t, err)

	rows := lines(t, &buf)
	require.Len(t, rows, 2)
	require.Equal(t, len(rows[0]), len(rows[1]), "row width matches header")

	col := make(map[string]string)
	for i, name := range rows[0] {
		col[name] = rows[1][i]
	}
	assert.Equal(t, "phaC1", col["gene_name"])
	assert.Equal(t, "3", col["n"])
	assert.Equal(t, "2.0000", col["mean_fitness"])
	assert.Equal(t, "NA", col["mean_log2FC"])
	assert.Equal(t, "890.0000", col["counts"])
	assert.Equal(t, "NA", col["eggNOG_name"])
	assert.Equal(t, "PHB synthesis", col["Pathway"])
}

func TestWriteCombinedScores(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCombinedScores(&buf, "fructose", "formate", []rank.Score{
		{Rank: 1, LocusTag: "H16_A1437", GeneName: "phaC1", ScoreA: -1.5, ScoreB: -2, Combined: -3.5},
	})
	require.NoError(t, err)

	rows := lines(t, &buf)
	assert.Equal(t, []string{"rank", "locus_tag", "gene_name", "score_fructose", "score_formate", "combined_score"}, rows[0])
	assert.Equal(t, []string{"1", "H16_A1437", "phaC1", "-1.5000", "-2.0000", "-3.5000"}, rows[1])
}

func TestWriteEssentiality(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEssentiality(&buf, []essential.Flag{
		{LocusTag: "H16_A0001", Substrate: "fructose", MeanFitness: -2.6, Essential: true},
		{LocusTag: "H16_A0002", Substrate: "fructose", MeanFitness: math.NaN()},
	}))
	rows := lines(t, &buf)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"H16_A0001", "fructose", "-2.6000", "TRUE"}, rows[1])
	assert.Equal(t, []string{"H16_A0002", "fructose", "NA", "FALSE"}, rows[2])
}

func TestWriteMappedBarcodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMappedBarcodes(&buf, []mapper.MappedBarcode{
		{BarcodeCount: barseq.BarcodeCount{Barcode: "ACGT", Sample: "s1", Count: 5}, Mapped: true, Scaffold: "NC_008313", Strand: "+", Pos: 100, LocusTag: "H16_A0001"},
		{BarcodeCount: barseq.BarcodeCount{Barcode: "TTTT", Sample: "s1", Count: 2}},
	}))
	rows := lines(t, &buf)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ACGT", "s1", "5", "TRUE", "NC_008313", "+", "100", "H16_A0001"}, rows[1])
	assert.Equal(t, []string{"TTTT", "s1", "2", "FALSE", "NA", "NA", "NA", "NA"}, rows[2])
}

func TestWriteDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDiversity(&buf, []mapper.SampleDiversity{
		{Sample: "s1", TotalReads: 10, Barcodes: 2, MappedBarcodes: 1, MappedReads: 4, Shannon: math.Log(2)},
	}))
	assert.Equal(t, []string{"s1", "10", "2", "1", "4", "0.4000", "0.6931"}, lines(t, &buf)[1])

	buf.Reset()
	require.NoError(t, WriteColumnSums(&buf, []barseq.ColumnSum{{Sample: "s1", RawReads: 200, MappedReads: 150}}))
	assert.Equal(t, []string{"s1", "200", "150", "0.7500"}, lines(t, &buf)[1])

	buf.Reset()
	require.NoError(t, WriteGeneCounts(&buf, []mapper.GeneCount{{LocusTag: "H16_A0001", Sample: "s1", Barcodes: 3, Count: 42}}))
	assert.Equal(t, []string{"H16_A0001", "s1", "3", "42"}, lines(t, &buf)[1])

	buf.Reset()
	require.NoError(t, WriteInteractions(&buf, []stringdb.Interaction{{ProteinA: "phaC1", ProteinB: "phaA", Score: 0.999}}))
	assert.Equal(t, []string{"phaC1", "phaA", "0.9990"}, lines(t, &buf)[1])
}

func TestWrite_EmptyTableHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEssentiality(&buf, nil))
	assert.Equal(t, "locus_tag\tsubstrate\tmean_normalized_fitness\tis_essential\n", buf.String())
}
