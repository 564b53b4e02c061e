package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
)

func summary(locus string, mean, median float64) fitness.Summary {
	return fitness.Summary{LocusTag: locus, GeneName: locus, MeanFitness: mean, MedianFitness: median}
}

func TestCombine(t *testing.T) {
	a := []fitness.Summary{
		summary("H16_A0003", -1.5, -1.0),
		summary("H16_A0001", 0.5, 0.4),
		summary("H16_A0002", math.NaN(), math.NaN()),
		summary("H16_A0004", 1.0, 1.0),
	}
	a[0].GeneName = "phaC1"
	b := []fitness.Summary{
		summary("H16_A0001", 0.25, 0.2),
		summary("H16_A0002", -3.0, -3.0),
		summary("H16_A0003", -2.0, -2.5),
		summary("H16_A0005", -9.0, -9.0),
	}

	scores := Combine(a, b, fitness.StatMean)
	require.Len(t, scores, 2, "NaN and one-sided genes excluded")
	assert.Equal(t, "H16_A0001", scores[0].LocusTag)
	assert.Equal(t, 0.75, scores[0].Combined)

	pha := scores[1]
	assert.Equal(t, "phaC1", pha.GeneName)
	assert.Equal(t, -1.5, pha.ScoreA)
	assert.Equal(t, -2.0, pha.ScoreB)
	assert.Equal(t, -3.5, pha.Combined)

	median := Combine(a, b, fitness.StatMedian)
	require.Len(t, median, 2)
	assert.Equal(t, -3.5, median[1].Combined)
	assert.InDelta(t, 0.6, median[0].Combined, 1e-12)
}

func TestRank(t *testing.T) {
	scores := []Score{
		{LocusTag: "C", Combined: -1},
		{LocusTag: "B", Combined: -3},
		{LocusTag: "A", Combined: -1},
		{LocusTag: "D", Combined: 2},
	}

	tests := []struct {
		name  string
		dir   Direction
		order []string
	}{
		{"depletion ascending", Depletion, []string{"B", "A", "C", "D"}},
		{"enrichment descending", Enrichment, []string{"D", "A", "C", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := Rank(scores, tt.dir)
			require.Len(t, ranked, 4)
			for i, s := range ranked {
				assert.Equal(t, tt.order[i], s.LocusTag)
				assert.Equal(t, i+1, s.Rank)
			}
		})
	}

	assert.Equal(t, 0, scores[0].Rank, "input not modified")
}

func TestTopAndThreshold(t *testing.T) {
	ranked := Rank([]Score{
		{LocusTag: "A", Combined: -4},
		{LocusTag: "B", Combined: -2},
		{LocusTag: "C", Combined: 0},
		{LocusTag: "D", Combined: 3},
	}, Depletion)

	assert.Len(t, Top(ranked, 2), 2)
	assert.Equal(t, "A", Top(ranked, 2)[0].LocusTag)
	assert.Len(t, Top(ranked, 10), 4)
	assert.Empty(t, Top(ranked, 0))

	dep := Threshold(ranked, Depletion, -2)
	require.Len(t, dep, 2, "inclusive")
	assert.Equal(t, "B", dep[1].LocusTag)

	enr := Threshold(Rank(ranked, Enrichment), Enrichment, 0)
	require.Len(t, enr, 2)
	assert.Equal(t, "D", enr[0].LocusTag)
	assert.Equal(t, "C", enr[1].LocusTag)
}

func TestExcludeEssential(t *testing.T) {
	set := essential.NewSet([]essential.Flag{
		{LocusTag: "A", Substrate: "fructose", Essential: true},
		{LocusTag: "A", Substrate: "formate", Essential: true},
		{LocusTag: "B", Substrate: "fructose", Essential: true},
		{LocusTag: "C", Substrate: "fructose", Essential: false},
	})
	scores := []Score{{LocusTag: "A"}, {LocusTag: "B"}, {LocusTag: "C"}}

	loci := func(ss []Score) []string {
		var out []string
		for _, s := range ss {
			out = append(out, s.LocusTag)
		}
		return out
	}

	subs := []string{"fructose", "formate"}
	assert.Equal(t, []string{"C"}, loci(ExcludeEssential(scores, set, subs, ExcludeAny)))
	assert.Equal(t, []string{"B", "C"}, loci(ExcludeEssential(scores, set, subs, ExcludeAll)))
	assert.Equal(t, []string{"A", "B", "C"}, loci(ExcludeEssential(scores, set, []string{"succinate", "formate"}, ExcludeAll)))
	assert.Equal(t, []string{"C"}, loci(ExcludeEssential(scores, set, nil, ExcludeAll)), "no substrates means any call")
}

func TestParse(t *testing.T) {
	d, err := ParseDirection("Enrichment")
	require.NoError(t, err)
	assert.Equal(t, Enrichment, d)
	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Depletion, d)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)

	m, err := ParseExcludeMode("ALL")
	require.NoError(t, err)
	assert.Equal(t, ExcludeAll, m)
	_, err = ParseExcludeMode("some")
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	first := Sample(items, 10, 42)
	second := Sample(items, 10, 42)
	require.Len(t, first, 10)
	assert.Equal(t, first, second, "same seed, same subset")
	assert.IsIncreasing(t, first, "input order kept")

	other := Sample(items, 10, 7)
	assert.NotEqual(t, first, other)

	assert.Len(t, Sample(items, 500, 1), 100)
	assert.Empty(t, Sample(items, 0, 1))
}
