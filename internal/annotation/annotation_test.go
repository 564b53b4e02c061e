package annotation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnnotation = `locus_tag,gene_name,eggNOG_name,COG_Process,Pathway
H16_A1437,phaC1,phaC,Lipid transport and metabolism,PHB synthesis
H16_A1438,phaA,phaA,Lipid transport and metabolism,"Butanoate metabolism, PHB synthesis"
H16_A1439,NA,phaB,Lipid transport and metabolism,
H16_A1437,phaC_dup,,,
`

func TestLoad(t *testing.T) {
	idx, dropped, err := Load("Ralstonia_H16_genome_annotation.csv", strings.NewReader(sampleAnnotation))
	require.NoError(t, err)

	assert.Len(t, idx, 3)
	assert.Equal(t, 1, dropped)

	tests := []struct {
		locus   string
		gene    string
		eggNOG  string
		pathway string
	}{
		{"H16_A1437", "phaC1", "phaC", "PHB synthesis"},
		{"H16_A1438", "phaA", "phaA", "Butanoate metabolism, PHB synthesis"},
		{"H16_A1439", "", "phaB", ""},
	}
	for _, tt := range tests {
		t.Run(tt.locus, func(t *testing.T) {
			rec, ok := idx.Get(tt.locus)
			require.True(t, ok)
			assert.Equal(t, tt.gene, rec.GeneName)
			assert.Equal(t, tt.eggNOG, rec.EggNOGName)
			assert.Equal(t, tt.pathway, rec.Pathway)
			assert.Equal(t, "Lipid transport and metabolism", rec.COGProcess)
		})
	}
}

func TestLoad_TSV(t *testing.T) {
	input := "locusId\tgene_name\nH16_B0001\tcbbL\n"
	idx, _, err := Load("annotation.tsv", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "cbbL", idx.DisplayName("H16_B0001"))
}

func TestLoad_MissingLocusColumn(t *testing.T) {
	_, _, err := Load("a.csv", strings.NewReader("gene_name,Pathway\nphaC,PHB\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locus_tag")
}

func TestIndex_DisplayName(t *testing.T) {
	idx := Index{
		"H16_A1437": &Record{LocusTag: "H16_A1437", GeneName: "phaC1"},
		"H16_A1439": &Record{LocusTag: "H16_A1439"},
	}
	assert.Equal(t, "phaC1", idx.DisplayName("H16_A1437"))
	assert.Equal(t, "H16_A1439", idx.DisplayName("H16_A1439"), "unnamed gene")
	assert.Equal(t, "H16_B9999", idx.DisplayName("H16_B9999"), "unannotated gene")

	var empty Index
	assert.Equal(t, "H16_A0001", empty.DisplayName("H16_A0001"))
}
