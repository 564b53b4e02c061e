// Package mapper joins barcode observations to the mutant pool and derives
// gene-level counts and per-sample diversity diagnostics.
package mapper

import (
	"math"
	"sort"

	"github.com/rbseq/phbfit/internal/barseq"
	"github.com/rbseq/phbfit/internal/pool"
)

// MappedBarcode is a barcode observation labelled with its pool location.
// Unmapped observations keep zero-valued location fields.
type MappedBarcode struct {
	barseq.BarcodeCount
	Mapped   bool
	Scaffold string
	Strand   string
	Pos      int64
	LocusTag string
}

// Map left-joins observations to the pool on exact barcode match. The
// output has exactly one row per input row, in input order.
func Map(obs []barseq.BarcodeCount, p *pool.Pool) []MappedBarcode {
	out := make([]MappedBarcode, len(obs))
	for i, o := range obs {
		out[i] = MappedBarcode{BarcodeCount: o}
		if e, ok := p.Lookup(o.Barcode); ok {
			out[i].Mapped = true
			out[i].Scaffold = e.Scaffold
			out[i].Strand = e.Strand
			out[i].Pos = e.Pos
			out[i].LocusTag = e.LocusTag
		}
	}
	return out
}

// GeneCount is the summed read count of all barcodes in one gene.
type GeneCount struct {
	LocusTag string
	Sample   string
	Barcodes int
	Count    int64
}

// GeneCounts sums counts per locus tag and sample over mapped barcodes
// that fall in a gene. Unmapped and intergenic barcodes are excluded.
// Results are sorted by sample, then locus tag.
func GeneCounts(mapped []MappedBarcode) []GeneCount {
	type key struct{ locus, sample string }
	sums := make(map[key]*GeneCount)
	for _, m := range mapped {
		if !m.Mapped || m.LocusTag == "" {
			continue
		}
		k := key{m.LocusTag, m.Sample}
		gc, ok := sums[k]
		if !ok {
			gc = &GeneCount{LocusTag: m.LocusTag, Sample: m.Sample}
			sums[k] = gc
		}
		gc.Barcodes++
		gc.Count += m.Count
	}

	out := make([]GeneCount, 0, len(sums))
	for _, gc := range sums {
		out = append(out, *gc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sample != out[j].Sample {
			return out[i].Sample < out[j].Sample
		}
		return out[i].LocusTag < out[j].LocusTag
	})
	return out
}

// SampleDiversity summarizes barcode complexity and mapping rate of one sample.
type SampleDiversity struct {
	Sample         string
	TotalReads     int64
	Barcodes       int // distinct barcodes with at least one read
	MappedBarcodes int
	MappedReads    int64
	Shannon        float64 // entropy of the barcode read distribution, in nats
}

// FractionMapped returns the fraction of reads carried by pool barcodes.
func (d SampleDiversity) FractionMapped() float64 {
	if d.TotalReads == 0 {
		return 0
	}
	return float64(d.MappedReads) / float64(d.TotalReads)
}

// Diversity computes per-sample diagnostics over all observations,
// mapped or not. A barcode seen more than once in a sample counts once, with
// its reads summed. Samples are returned in first-seen order.
func Diversity(mapped []MappedBarcode) []SampleDiversity {
	index := make(map[string]int)
	var out []SampleDiversity
	counts := make(map[string]map[string]int64)

	for _, m := range mapped {
		i, ok := index[m.Sample]
		if !ok {
			i = len(out)
			index[m.Sample] = i
			out = append(out, SampleDiversity{Sample: m.Sample})
			counts[m.Sample] = make(map[string]int64)
		}
		if m.Count <= 0 {
			continue
		}
		d := &out[i]
		d.TotalReads += m.Count
		perBarcode := counts[m.Sample]
		if _, seen := perBarcode[m.Barcode]; !seen {
			d.Barcodes++
			if m.Mapped {
				d.MappedBarcodes++
			}
		}
		perBarcode[m.Barcode] += m.Count
		if m.Mapped {
			d.MappedReads += m.Count
		}
	}

	for i := range out {
		out[i].Shannon = shannon(counts[out[i].Sample], out[i].TotalReads)
	}
	return out
}

func shannon(counts map[string]int64, total int64) float64 {
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		h -= p * math.Log(p)
	}
	return h
}

// Unmapped returns the observations with no pool match.
func Unmapped(mapped []MappedBarcode) []MappedBarcode {
	var out []MappedBarcode
	for _, m := range mapped {
		if !m.Mapped {
			out = append(out, m)
		}
	}
	return out
}
