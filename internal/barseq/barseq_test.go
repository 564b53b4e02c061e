package barseq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePoolCount = "barcode\trcbarcode\tscaffold\tstrand\tpos\tF0_fru_1\tF3_fru_1\n" +
	"AAACCGTT\tAACGGTTT\tNC_008313\t+\t1045\t12\t40\n" +
	"GGTACCAA\tTTGGTACC\tNC_008314\t-\t88210\t0\t7\n" +
	"CCCCAAAA\tTTTTGGGG\tpastEnd\t\t\t3\t1\n"

func TestLoadPoolCount(t *testing.T) {
	records, err := LoadPoolCount(strings.NewReader(samplePoolCount))
	require.NoError(t, err)
	require.Len(t, records, 6, "3 barcodes x 2 samples")

	first := records[0]
	assert.Equal(t, "AAACCGTT", first.Barcode)
	assert.Equal(t, "AACGGTTT", first.RCBarcode)
	assert.Equal(t, "NC_008313", first.Scaffold)
	assert.Equal(t, "+", first.Strand)
	assert.Equal(t, int64(1045), first.Pos)
	assert.Equal(t, "F0_fru_1", first.Sample)
	assert.Equal(t, int64(12), first.Count)

	assert.Equal(t, "F3_fru_1", records[1].Sample)
	assert.Equal(t, int64(40), records[1].Count)

	pastEnd := records[4]
	assert.Equal(t, "pastEnd", pastEnd.Scaffold)
	assert.Equal(t, int64(0), pastEnd.Pos)

	assert.Equal(t, []string{"F0_fru_1", "F3_fru_1"}, Samples(records))
}

func TestLoadPoolCount_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing column", "barcode\tscaffold\tstrand\tpos\tS1\nA\tc\t+\t1\t2\n"},
		{"no samples", "barcode\trcbarcode\tscaffold\tstrand\tpos\nA\tT\tc\t+\t1\n"},
		{"duplicate barcode", "barcode\trcbarcode\tscaffold\tstrand\tpos\tS1\nA\tT\tc\t+\t1\t2\nA\tT\tc\t+\t1\t3\n"},
		{"bad count", "barcode\trcbarcode\tscaffold\tstrand\tpos\tS1\nA\tT\tc\t+\t1\tx\n"},
		{"short row", "barcode\trcbarcode\tscaffold\tstrand\tpos\tS1\nA\tT\tc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPoolCount(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadColSums(t *testing.T) {
	input := "Index\tnReads\tnMulti\tnUsed\n" +
		"F0_fru_1\t1000\t3\t850\n" +
		"F3_fru_1\t0\t0\t0\n"

	sums, err := LoadColSums(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, "F0_fru_1", sums[0].Sample)
	assert.Equal(t, int64(1000), sums[0].RawReads)
	assert.Equal(t, int64(850), sums[0].MappedReads)
	assert.InDelta(t, 0.85, sums[0].Fraction(), 1e-9)
	assert.Equal(t, 0.0, sums[1].Fraction(), "no reads")
}

func TestLoadCodes(t *testing.T) {
	input := "barcode\tIT001\nAAAA\t10\nCCCC\t0\nGGGG\t5\n"

	obs, err := LoadCodes(strings.NewReader(input), "")
	require.NoError(t, err)
	require.Len(t, obs, 3)
	assert.Equal(t, BarcodeCount{Barcode: "AAAA", Sample: "IT001", Count: 10}, obs[0])
	assert.Equal(t, int64(0), obs[1].Count)

	obs, err = LoadCodes(strings.NewReader(input), "F1_fru_2")
	require.NoError(t, err)
	assert.Equal(t, "F1_fru_2", obs[2].Sample, "explicit sample name overrides header")
}

func TestObservations(t *testing.T) {
	records, err := LoadPoolCount(strings.NewReader(samplePoolCount))
	require.NoError(t, err)

	obs := Observations(records)
	require.Len(t, obs, len(records))
	assert.Equal(t, BarcodeCount{Barcode: "GGTACCAA", Sample: "F3_fru_1", Count: 7}, obs[3])
}
