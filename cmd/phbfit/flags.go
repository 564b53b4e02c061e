package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rbseq/phbfit/internal/pipeline"
	"github.com/rbseq/phbfit/internal/printer"
)

// flagKeys maps flag names to viper keys.
type flagKeys map[string]string

func (k flagKeys) merge(other flagKeys) flagKeys {
	for f, key := range other {
		k[f] = key
	}
	return k
}

func mappingFlags(cmd *cobra.Command) flagKeys {
	f := cmd.Flags()
	f.String("pool", "", "pool file (barcode, scaffold, pos[, locus_tag])")
	f.String("poolcount", "", "result.poolcount table (wide barcode counts)")
	f.String("codes", "", "single-sample .codes table, used when --poolcount is not set")
	f.String("codes-sample", "", "sample name for --codes (default: count column header)")
	f.String("genes", "", "genes table used to assign pool insertions to loci")
	f.Float64("min-fraction", 0.1, "minimum relative position within a gene for locus assignment")
	f.Float64("max-fraction", 0.9, "maximum relative position within a gene for locus assignment")
	return flagKeys{
		"pool":         "inputs.pool",
		"poolcount":    "inputs.poolcount",
		"codes":        "inputs.codes",
		"codes-sample": "inputs.codes_sample",
		"genes":        "inputs.genes",
		"min-fraction": "locus.min_fraction",
		"max-fraction": "locus.max_fraction",
	}
}

func fitnessFlags(cmd *cobra.Command) flagKeys {
	f := cmd.Flags()
	f.String("fitness", "", "fitness_gene table (replicate-level gene fitness)")
	f.String("annotation", "", "annotation table (CSV or TSV keyed by locus_tag)")
	return flagKeys{
		"fitness":    "inputs.fitness",
		"annotation": "inputs.annotation",
	}
}

func essentialFlags(cmd *cobra.Command) flagKeys {
	f := cmd.Flags()
	f.String("essentiality-fitness", "", "fitness_gene table of an independent steady-state experiment (e.g. 8 generations)")
	f.Float64("cutoff", -2.5, "essentiality cutoff: mean fitness strictly below is essential")
	f.String("time", "", "timepoint of the essentiality table to use (default: all)")
	f.StringSlice("substrates", nil, "conditions to classify, e.g. fructose_NH4Cl (default: all; for exclusion, the ranked conditions)")
	return flagKeys{
		"essentiality-fitness": "inputs.essentiality",
		"cutoff":               "essentiality.cutoff",
		"time":                 "essentiality.time",
		"substrates":           "essentiality.substrates",
	}
}

func rankingFlags(cmd *cobra.Command) flagKeys {
	f := cmd.Flags()
	f.String("condition-a", "", "first condition (e.g. fructose_NH4Cl)")
	f.String("condition-b", "", "second condition")
	f.String("fraction", "", "fraction/timepoint compared in both conditions")
	f.String("stat", "mean", "statistic combined: mean or median")
	f.String("direction", "depletion", "ranking direction: depletion or enrichment")
	f.Int("top", 20, "number of top-ranked genes to select (0 for all)")
	f.Float64("threshold", 0, "select by combined score instead of --top (inclusive)")
	f.Bool("exclude-essential", false, "drop genes classified essential by --essentiality-fitness before ranking")
	f.String("exclude-mode", "any", "essential on any or all listed substrates")
	f.Int("sample", 0, "draw a seeded random subset of this size from the selection")
	f.Uint64("seed", 42, "random seed for --sample")
	return flagKeys{
		"condition-a":       "ranking.condition_a",
		"condition-b":       "ranking.condition_b",
		"fraction":          "ranking.fraction",
		"stat":              "ranking.stat",
		"direction":         "ranking.direction",
		"top":               "ranking.top_n",
		"threshold":         "ranking.threshold",
		"exclude-essential": "ranking.exclude_essential",
		"exclude-mode":      "essentiality.exclude_mode",
		"sample":            "sample.n",
		"seed":              "sample.seed",
	}
}

func networkFlags(cmd *cobra.Command) flagKeys {
	f := cmd.Flags()
	f.String("string-url", "https://string-db.org", "STRING API base URL")
	f.Int("taxon", 381666, "NCBI taxon ID")
	f.Int("required-score", 0, "minimum STRING combined score (0-1000)")
	f.Duration("string-timeout", 0, "STRING request timeout")
	return flagKeys{
		"string-url":     "string.base_url",
		"taxon":          "string.taxon",
		"required-score": "string.required_score",
		"string-timeout": "string.timeout",
	}
}

func outputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", "", "output file (default: stdout)")
}

// writeOutput writes a table to path, or to the command's stdout when path
// is empty or "-".
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return printer.Error("Cannot create output file", err.Error(), nil)
	}
	if err := write(f); err != nil {
		f.Close()
		return printer.Error("Cannot write output", err.Error(), nil)
	}
	if err := f.Close(); err != nil {
		return printer.Error("Cannot write output", err.Error(), nil)
	}
	return nil
}

// configure loads the pipeline configuration and lets the command narrow it.
func configure(narrow func(*pipeline.Config)) (pipeline.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, printer.UsageError("Invalid configuration", err.Error(),
			[]string{"Check flags, PHBFIT_* environment variables and 'phbfit config'."})
	}
	if narrow != nil {
		narrow(&cfg)
	}
	return cfg, nil
}

// runPipeline runs the configured steps and reports failures.
func runPipeline(ctx context.Context, cfg pipeline.Config) (*pipeline.Result, error) {
	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return nil, printer.Error("Analysis failed", err.Error(), []string{
			"Check that input paths exist and tables have the expected columns.",
		})
	}
	if res.NetworkErr != nil {
		printer.Warning("STRING network step skipped: %v\n", res.NetworkErr)
	}
	return res, nil
}

func requireInputs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return printer.UsageError(fmt.Sprintf("Missing --%s", pairs[i]), "",
				[]string{fmt.Sprintf("Pass --%s or set it in the config file.", pairs[i])})
		}
	}
	return nil
}

func withoutEssentiality(cfg *pipeline.Config) {
	cfg.Inputs.Essentiality = ""
}

func withoutMapping(cfg *pipeline.Config) {
	cfg.Inputs.Pool = ""
	cfg.Inputs.PoolCount = ""
	cfg.Inputs.Codes = ""
	cfg.Inputs.Genes = ""
	cfg.Inputs.ColSums = ""
}

func withoutFitness(cfg *pipeline.Config) {
	cfg.Inputs.Fitness = ""
	cfg.Inputs.Annotation = ""
}

func withoutRanking(cfg *pipeline.Config) {
	cfg.Ranking.ConditionA = ""
	cfg.Ranking.ConditionB = ""
	cfg.Network.Enabled = false
}
