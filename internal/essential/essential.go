// Package essential flags genes whose disruption causes a severe growth
// defect on a substrate, by thresholding steady-state fitness.
package essential

import (
	"math"
	"sort"

	"github.com/rbseq/phbfit/internal/fitness"
)

// DefaultCutoff is the fitness below which a gene is called essential.
// Some datasets use -3.0; the cutoff is a setting, not a derived value.
const DefaultCutoff = -2.5

// Flag is the essentiality call of one gene on one substrate.
type Flag struct {
	LocusTag    string
	Substrate   string
	MeanFitness float64
	Essential   bool
}

// Options controls which records are classified and how.
type Options struct {
	Cutoff     float64
	Time       string   // only records at this timepoint/fraction; empty means all
	Substrates []string // only these substrates (conditions); empty means all
}

// IsEssential is the threshold predicate: strictly below the cutoff.
// NaN is never essential.
func IsEssential(meanFitness, cutoff float64) bool {
	return !math.IsNaN(meanFitness) && meanFitness < cutoff
}

// Classify averages normalized fitness per gene and Substrate and flags
// genes below the cutoff. Results are sorted by substrate, then locus tag.
func Classify(records []fitness.Record, opts Options) []Flag {
	wanted := make(map[string]bool, len(opts.Substrates))
	for _, s := range opts.Substrates {
		wanted[s] = true
	}

	type key struct{ locus, substrate string }
	values := make(map[key][]float64)
	for _, r := range records {
		if opts.Time != "" && r.Fraction != opts.Time {
			continue
		}
		sub := Substrate(r)
		if len(wanted) > 0 && !wanted[sub] {
			continue
		}
		k := key{r.LocusTag, sub}
		values[k] = append(values[k], r.NormFitness)
	}

	flags := make([]Flag, 0, len(values))
	for k, v := range values {
		mean := fitness.MeanNA(v)
		flags = append(flags, Flag{
			LocusTag:    k.locus,
			Substrate:   k.substrate,
			MeanFitness: mean,
			Essential:   IsEssential(mean, opts.Cutoff),
		})
	}
	sort.Slice(flags, func(i, j int) bool {
		if flags[i].Substrate != flags[j].Substrate {
			return flags[i].Substrate < flags[j].Substrate
		}
		return flags[i].LocusTag < flags[j].LocusTag
	})
	return flags
}

// Substrate returns the growth condition of a record (carbon and nitrogen
// source, e.g. fructose_NH4Cl), so records on the same carbon source with
// different nitrogen sources are classified separately. Records without a
// condition fall back to the carbon source.
func Substrate(r fitness.Record) string {
	if r.Condition != "" {
		return r.Condition
	}
	return r.Carbon
}

// Set indexes essential genes by locus tag and substrate.
type Set map[string]map[string]bool

// NewSet builds a Set from flags, keeping only essential calls.
func NewSet(flags []Flag) Set {
	s := make(Set)
	for _, f := range flags {
		if !f.Essential {
			continue
		}
		if s[f.LocusTag] == nil {
			s[f.LocusTag] = make(map[string]bool)
		}
		s[f.LocusTag][f.Substrate] = true
	}
	return s
}

// IsEssential reports whether locusTag is essential on substrate.
func (s Set) IsEssential(locusTag, substrate string) bool {
	return s[locusTag][substrate]
}

// Count returns the number of genes essential on at least one substrate.
func (s Set) Count() int {
	return len(s)
}
