// Package fitness loads per-gene fitness tables and reduces replicate-level
// values to gene summaries per condition and fraction.
package fitness

import (
	"fmt"
	"io"
	"strings"

	"github.com/rbseq/phbfit/internal/table"
)

// Record is one gene's fitness in one replicate of one condition and
// fraction (or timepoint).
type Record struct {
	LocusTag       string
	Carbon         string
	Nitrogen       string
	Condition      string
	Fraction       string
	Replicate      string
	NormFitness    float64
	Log2FC         float64
	T              float64
	StrainsPerGene float64
	Counts         float64
}

// ConditionName joins carbon and nitrogen source into a condition label.
func ConditionName(carbon, nitrogen string) string {
	switch {
	case carbon == "":
		return nitrogen
	case nitrogen == "":
		return carbon
	}
	return carbon + "_" + nitrogen
}

// Load reads a fitness_gene table. Missing numeric values become NaN.
// If the table has no condition column the condition is derived from the
// carbon and nitrogen source columns.
func Load(r io.Reader) ([]Record, error) {
	tr, err := table.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("fitness table: %w", err)
	}
	defer tr.Close()

	locusIdx, err := tr.Require("locusId", "locus_tag")
	if err != nil {
		return nil, fmt.Errorf("fitness table: %w", err)
	}
	fitIdx, err := tr.Require("norm_gene_fitness", "norm_gg_fitness", "fitness")
	if err != nil {
		return nil, fmt.Errorf("fitness table: %w", err)
	}
	condIdx := tr.Index("condition")
	carbonIdx := tr.Index("carbon_source", "carbon")
	nitrogenIdx := tr.Index("nitrogen_source", "nitrogen")
	if condIdx < 0 && carbonIdx < 0 && nitrogenIdx < 0 {
		return nil, fmt.Errorf("fitness table: %w", tr.Errorf("no condition, carbon_source or nitrogen_source column"))
	}
	fracIdx := tr.Index("fraction", "time", "generations")
	repIdx := tr.Index("replicate")
	lfcIdx := tr.Index("log2FC", "log2FoldChange")
	tIdx := tr.Index("t", "t_value", "t_stat")
	strainsIdx := tr.Index("strains_per_gene", "n_strains")
	countsIdx := tr.Index("counts", "n_counts")

	var records []Record
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, fmt.Errorf("fitness table: %w", err)
		}
		if row == nil {
			return records, nil
		}

		rec := Record{
			LocusTag:  strings.TrimSpace(row.Get(locusIdx)),
			Carbon:    row.Get(carbonIdx),
			Nitrogen:  row.Get(nitrogenIdx),
			Fraction:  row.Get(fracIdx),
			Replicate: row.Get(repIdx),
		}
		rec.Condition = row.Get(condIdx)
		if rec.Condition == "" {
			rec.Condition = ConditionName(rec.Carbon, rec.Nitrogen)
		}

		for _, f := range []struct {
			idx  int
			name string
			dst  *float64
		}{
			{fitIdx, "fitness", &rec.NormFitness},
			{lfcIdx, "log2FC", &rec.Log2FC},
			{tIdx, "t", &rec.T},
			{strainsIdx, "strains_per_gene", &rec.StrainsPerGene},
			{countsIdx, "counts", &rec.Counts},
		} {
			v, err := table.ParseFloat(row.Get(f.idx))
			if err != nil {
				return nil, fmt.Errorf("fitness table: %w", tr.Errorf("invalid %s: %s", f.name, row.Get(f.idx)))
			}
			*f.dst = v
		}
		records = append(records, rec)
	}
}
