package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/input"
	"github.com/rbseq/phbfit/internal/pipeline"
	"github.com/rbseq/phbfit/internal/rank"
	"github.com/rbseq/phbfit/internal/stringdb"
)

func setDefaults() {
	d := pipeline.DefaultConfig()
	viper.SetDefault("locus.min_fraction", d.Locus.MinFraction)
	viper.SetDefault("locus.max_fraction", d.Locus.MaxFraction)
	viper.SetDefault("essentiality.cutoff", d.Essential.Cutoff)
	viper.SetDefault("essentiality.exclude_mode", string(d.Ranking.ExcludeMode))
	viper.SetDefault("ranking.stat", string(d.Ranking.Stat))
	viper.SetDefault("ranking.direction", string(d.Ranking.Direction))
	viper.SetDefault("ranking.top_n", d.Ranking.TopN)
	viper.SetDefault("sample.seed", d.Sample.Seed)
	viper.SetDefault("string.base_url", stringdb.DefaultBaseURL)
	viper.SetDefault("string.taxon", d.Network.Taxon)
	viper.SetDefault("string.timeout", d.Network.Timeout)
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("export.format", "duckdb")
	viper.SetDefault("export.path", "phbfit.duckdb")
	viper.SetDefault("output.dir", "phbfit-out")
}

// loadConfig builds the pipeline configuration from viper.
func loadConfig() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.Logger = logger

	cfg.Inputs = pipeline.Inputs{
		PoolCount:   viper.GetString("inputs.poolcount"),
		Codes:       viper.GetString("inputs.codes"),
		CodesSample: viper.GetString("inputs.codes_sample"),
		ColSums:     viper.GetString("inputs.colsums"),
		Pool:        viper.GetString("inputs.pool"),
		Genes:       viper.GetString("inputs.genes"),
		Fitness:     viper.GetString("inputs.fitness"),
		Annotation:  viper.GetString("inputs.annotation"),

		Essentiality: viper.GetString("inputs.essentiality"),
	}
	cfg.S3 = input.S3Config{
		Region:    viper.GetString("s3.region"),
		Endpoint:  viper.GetString("s3.endpoint"),
		PathStyle: viper.GetBool("s3.path_style"),
	}
	cfg.Locus = pipeline.Locus{
		MinFraction: viper.GetFloat64("locus.min_fraction"),
		MaxFraction: viper.GetFloat64("locus.max_fraction"),
	}
	if cfg.Locus.MinFraction < 0 || cfg.Locus.MaxFraction > 1 || cfg.Locus.MinFraction > cfg.Locus.MaxFraction {
		return cfg, fmt.Errorf("locus fractions must satisfy 0 <= min <= max <= 1, got %g and %g",
			cfg.Locus.MinFraction, cfg.Locus.MaxFraction)
	}

	cfg.Essential = essential.Options{
		Cutoff:     viper.GetFloat64("essentiality.cutoff"),
		Time:       viper.GetString("essentiality.time"),
		Substrates: splitList(viper.GetStringSlice("essentiality.substrates")),
	}

	stat := fitness.Stat(strings.ToLower(viper.GetString("ranking.stat")))
	if stat != fitness.StatMean && stat != fitness.StatMedian {
		return cfg, fmt.Errorf("unknown statistic %q (want mean or median)", stat)
	}
	dir, err := rank.ParseDirection(viper.GetString("ranking.direction"))
	if err != nil {
		return cfg, err
	}
	mode, err := rank.ParseExcludeMode(viper.GetString("essentiality.exclude_mode"))
	if err != nil {
		return cfg, err
	}
	cfg.Ranking = pipeline.Ranking{
		ConditionA:       viper.GetString("ranking.condition_a"),
		ConditionB:       viper.GetString("ranking.condition_b"),
		Fraction:         viper.GetString("ranking.fraction"),
		Stat:             stat,
		Direction:        dir,
		TopN:             viper.GetInt("ranking.top_n"),
		ExcludeEssential: viper.GetBool("ranking.exclude_essential"),
		ExcludeMode:      mode,
	}
	if viper.IsSet("ranking.threshold") {
		cfg.Ranking.UseThreshold = true
		cfg.Ranking.Threshold = viper.GetFloat64("ranking.threshold")
	}

	cfg.Sample = pipeline.Sample{
		N:    viper.GetInt("sample.n"),
		Seed: viper.GetUint64("sample.seed"),
	}
	cfg.Network = pipeline.Network{
		Enabled:       viper.GetBool("string.enabled"),
		BaseURL:       viper.GetString("string.base_url"),
		Taxon:         viper.GetInt("string.taxon"),
		RequiredScore: viper.GetInt("string.required_score"),
		Timeout:       viper.GetDuration("string.timeout"),
	}
	return cfg, nil
}

// splitList flattens comma-separated entries, as given by env variables.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
