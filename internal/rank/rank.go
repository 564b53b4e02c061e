// Package rank combines per-condition gene fitness into a single score and
// selects the most depleted or enriched genes.
package rank

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
)

// Direction is the ranking order.
type Direction string

// Ranking directions.
const (
	Depletion  Direction = "depletion"  // most negative combined score first
	Enrichment Direction = "enrichment" // most positive combined score first
)

// ParseDirection parses a direction name (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Depletion, "":
		return Depletion, nil
	case Enrichment:
		return Enrichment, nil
	}
	return "", fmt.Errorf("unknown ranking direction %q (want depletion or enrichment)", s)
}

// Score is the combined fitness of one gene across two conditions.
type Score struct {
	LocusTag string
	GeneName string
	ScoreA   float64
	ScoreB   float64
	Combined float64
	Rank     int // 1-based; 0 until ranked
}

// Combine inner-joins two summaries on locus tag and sums the chosen
// statistic. Genes absent from either side or with a NaN statistic are
// excluded. When a side repeats a locus tag the first summary is used.
// Output is sorted by locus tag.
func Combine(a, b []fitness.Summary, stat fitness.Stat) []Score {
	right := make(map[string]float64, len(b))
	for i := range b {
		if _, ok := right[b[i].LocusTag]; !ok {
			right[b[i].LocusTag] = b[i].Fitness(stat)
		}
	}

	seen := make(map[string]bool, len(a))
	var out []Score
	for i := range a {
		s := &a[i]
		if seen[s.LocusTag] {
			continue
		}
		seen[s.LocusTag] = true

		sb, ok := right[s.LocusTag]
		if !ok {
			continue
		}
		sa := s.Fitness(stat)
		if math.IsNaN(sa) || math.IsNaN(sb) {
			continue
		}
		name := s.GeneName
		if name == "" {
			name = s.LocusTag
		}
		out = append(out, Score{
			LocusTag: s.LocusTag,
			GeneName: name,
			ScoreA:   sa,
			ScoreB:   sb,
			Combined: sa + sb,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocusTag < out[j].LocusTag })
	return out
}

// Rank returns a copy of scores ordered by direction with 1-based ranks
// assigned. Equal combined scores are ordered by locus tag.
func Rank(scores []Score, dir Direction) []Score {
	out := make([]Score, len(scores))
	copy(out, scores)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Combined != out[j].Combined {
			if dir == Enrichment {
				return out[i].Combined > out[j].Combined
			}
			return out[i].Combined < out[j].Combined
		}
		return out[i].LocusTag < out[j].LocusTag
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Top returns the first n ranked scores. n <= 0 returns none.
func Top(ranked []Score, n int) []Score {
	if n <= 0 {
		return nil
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// Threshold keeps scores on the extreme side of t, inclusive: combined <= t
// for depletion and combined >= t for enrichment. Order is preserved.
func Threshold(ranked []Score, dir Direction, t float64) []Score {
	var out []Score
	for _, s := range ranked {
		if dir == Enrichment && s.Combined >= t || dir != Enrichment && s.Combined <= t {
			out = append(out, s)
		}
	}
	return out
}

// ExcludeMode decides when a gene counts as essential across substrates.
type ExcludeMode string

// Exclusion modes.
const (
	ExcludeAny ExcludeMode = "any" // essential on at least one substrate
	ExcludeAll ExcludeMode = "all" // essential on every substrate
)

// ParseExcludeMode parses an exclusion mode name.
func ParseExcludeMode(s string) (ExcludeMode, error) {
	switch ExcludeMode(strings.ToLower(strings.TrimSpace(s))) {
	case ExcludeAny, "":
		return ExcludeAny, nil
	case ExcludeAll:
		return ExcludeAll, nil
	}
	return "", fmt.Errorf("unknown exclude mode %q (want any or all)", s)
}

// ExcludeEssential drops genes flagged essential on the given substrates.
// With no substrates listed, any essential call excludes the gene.
func ExcludeEssential(scores []Score, set essential.Set, substrates []string, mode ExcludeMode) []Score {
	var out []Score
	for _, s := range scores {
		if !isExcluded(s.LocusTag, set, substrates, mode) {
			out = append(out, s)
		}
	}
	return out
}

func isExcluded(locus string, set essential.Set, substrates []string, mode ExcludeMode) bool {
	if len(substrates) == 0 {
		return len(set[locus]) > 0
	}
	hits := 0
	for _, sub := range substrates {
		if set.IsEssential(locus, sub) {
			hits++
		}
	}
	if mode == ExcludeAll {
		return hits == len(substrates)
	}
	return hits > 0
}
