package fitness

import (
	"sort"

	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/annotation"
)

// Summary is the replicate-reduced fitness of one gene in one condition
// and fraction, joined with its annotation.
type Summary struct {
	LocusTag  string
	Condition string
	Carbon    string
	Nitrogen  string
	Fraction  string

	Replicates int // records in the group
	Valid      int // records with a non-NaN fitness value

	MeanFitness   float64
	MedianFitness float64
	MeanLog2FC    float64
	MedianLog2FC  float64
	MeanT         float64
	MedianT       float64
	Strains       float64 // mean strains per gene
	Counts        float64 // summed counts

	GeneName   string // locus tag when unannotated
	EggNOGName string
	COGProcess string
	Pathway    string
	Annotated  bool
}

// Stat selects which summary statistic feeds downstream scoring.
type Stat string

// Supported statistics.
const (
	StatMean   Stat = "mean"
	StatMedian Stat = "median"
)

// Fitness returns the summary's fitness under the given statistic.
func (s *Summary) Fitness(stat Stat) float64 {
	if stat == StatMedian {
		return s.MedianFitness
	}
	return s.MeanFitness
}

type groupKey struct {
	locus, condition, fraction string
}

// Aggregator reduces fitness records to gene summaries.
type Aggregator struct {
	annotations annotation.Index
	logger      *zap.Logger
}

// NewAggregator creates an aggregator that joins the given annotation.
// A nil index leaves every gene unannotated.
func NewAggregator(annotations annotation.Index) *Aggregator {
	return &Aggregator{
		annotations: annotations,
		logger:      zap.NewNop(),
	}
}

// SetLogger sets the logger for diagnostics.
func (a *Aggregator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Summarize groups records by (locus tag, condition, fraction), reduces
// each group with NaN-skipping mean and median, and left-joins annotation.
// Output is sorted by condition, fraction and locus tag.
func (a *Aggregator) Summarize(records []Record) []Summary {
	groups := make(map[groupKey][]int)
	var keys []groupKey
	for i, r := range records {
		k := groupKey{r.LocusTag, r.Condition, r.Fraction}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].condition != keys[j].condition {
			return keys[i].condition < keys[j].condition
		}
		if keys[i].fraction != keys[j].fraction {
			return keys[i].fraction < keys[j].fraction
		}
		return keys[i].locus < keys[j].locus
	})

	unannotated := make(map[string]bool)
	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		idx := groups[k]
		fit := make([]float64, len(idx))
		lfc := make([]float64, len(idx))
		ts := make([]float64, len(idx))
		strains := make([]float64, len(idx))
		counts := make([]float64, len(idx))
		for j, i := range idx {
			fit[j] = records[i].NormFitness
			lfc[j] = records[i].Log2FC
			ts[j] = records[i].T
			strains[j] = records[i].StrainsPerGene
			counts[j] = records[i].Counts
		}

		first := records[idx[0]]
		s := Summary{
			LocusTag:      k.locus,
			Condition:     k.condition,
			Carbon:        first.Carbon,
			Nitrogen:      first.Nitrogen,
			Fraction:      k.fraction,
			Replicates:    len(idx),
			Valid:         CountValid(fit),
			MeanFitness:   MeanNA(fit),
			MedianFitness: MedianNA(fit),
			MeanLog2FC:    MeanNA(lfc),
			MedianLog2FC:  MedianNA(lfc),
			MeanT:         MeanNA(ts),
			MedianT:       MedianNA(ts),
			Strains:       MeanNA(strains),
			Counts:        SumNA(counts),
			GeneName:      a.annotations.DisplayName(k.locus),
		}
		if rec, ok := a.annotations.Get(k.locus); ok {
			s.Annotated = true
			s.EggNOGName = rec.EggNOGName
			s.COGProcess = rec.COGProcess
			s.Pathway = rec.Pathway
		} else {
			unannotated[k.locus] = true
		}
		out = append(out, s)
	}

	if len(unannotated) > 0 {
		a.logger.Info("genes without annotation use locus tag as name",
			zap.Int("genes", len(unannotated)))
	}
	return out
}

// Filter returns the summaries for one condition and fraction.
func Filter(summaries []Summary, condition, fraction string) []Summary {
	var out []Summary
	for _, s := range summaries {
		if s.Condition == condition && s.Fraction == fraction {
			out = append(out, s)
		}
	}
	return out
}

// Conditions returns the distinct conditions in sorted order.
func Conditions(summaries []Summary) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range summaries {
		if !seen[s.Condition] {
			seen[s.Condition] = true
			out = append(out, s.Condition)
		}
	}
	sort.Strings(out)
	return out
}

// Summarize is a convenience for NewAggregator(annotations).Summarize.
func Summarize(records []Record, annotations annotation.Index) []Summary {
	return NewAggregator(annotations).Summarize(records)
}
