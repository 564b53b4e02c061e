package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/input"
	"github.com/rbseq/phbfit/internal/rank"
	"github.com/rbseq/phbfit/internal/stringdb"
)

// Inputs names the input tables. Empty paths skip the steps that need them.
type Inputs struct {
	PoolCount   string // result.poolcount (wide barcode counts)
	Codes       string // single-sample *.codes, used when PoolCount is empty
	CodesSample string
	ColSums     string // result.colsum
	Pool        string // pool file
	Genes       string // genes table, for assigning loci to pool entries
	Fitness     string // fitness_gene table of the screen being ranked
	Annotation  string // annotation CSV/TSV

	// Essentiality is a fitness_gene table from an independent steady-state
	// experiment (e.g. 8 generations of growth). Essentiality calls and
	// essential-gene exclusion use only this table.
	Essentiality string
}

// Locus controls assignment of pool insertions to genes.
type Locus struct {
	MinFraction float64
	MaxFraction float64
}

// Ranking selects and orders genes by combined fitness of two conditions.
type Ranking struct {
	ConditionA   string
	ConditionB   string
	Fraction     string // empty matches every fraction
	Stat         fitness.Stat
	Direction    rank.Direction
	TopN         int
	Threshold    float64
	UseThreshold bool

	ExcludeEssential bool
	ExcludeMode      rank.ExcludeMode
}

// Sample draws a seeded random subset of the selected genes.
type Sample struct {
	N    int
	Seed uint64
}

// Network configures the optional STRING query for selected genes.
type Network struct {
	Enabled       bool
	BaseURL       string
	Taxon         int
	RequiredScore int
	Timeout       time.Duration
}

// Config holds every setting of a pipeline run.
type Config struct {
	Inputs    Inputs
	S3        input.S3Config
	Locus     Locus
	Essential essential.Options
	Ranking   Ranking
	Sample    Sample
	Network   Network

	// Opener overrides the input opener built from S3.
	Opener *input.Opener
	Logger *zap.Logger
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Locus: Locus{MinFraction: 0.1, MaxFraction: 0.9},
		Essential: essential.Options{
			Cutoff: essential.DefaultCutoff,
		},
		Ranking: Ranking{
			Stat:        fitness.StatMean,
			Direction:   rank.Depletion,
			TopN:        20,
			ExcludeMode: rank.ExcludeAny,
		},
		Sample: Sample{Seed: 42},
		Network: Network{
			Taxon:   stringdb.DefaultTaxon,
			Timeout: 30 * time.Second,
		},
	}
}
