package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/output"
	"github.com/rbseq/phbfit/internal/pipeline"
	"github.com/rbseq/phbfit/internal/printer"
)

func newAggregateCmd() *cobra.Command {
	var out, condition, fraction string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate replicate gene fitness per condition and fraction",
		Long: `Collapse replicate-level fitness values into one summary per gene, condition
and fraction. Missing values are skipped; a gene with no valid replicate gets
NA statistics. Annotation columns are joined by locus tag.`,
		Example: `  phbfit aggregate --fitness fitness_gene.tsv --annotation H16_annotation.csv
  phbfit aggregate --fitness fitness_gene.tsv --condition fructose_NH4Cl --fraction F3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(func(c *pipeline.Config) {
				withoutMapping(c)
				withoutRanking(c)
				withoutEssentiality(c)
			})
			if err != nil {
				return err
			}
			if err := requireInputs("fitness", cfg.Inputs.Fitness); err != nil {
				return err
			}
			res, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			summaries := filterSummaries(res.Summaries, condition, fraction)
			if len(summaries) == 0 && condition != "" {
				printer.Warning("No summaries for condition %q. Available: %s\n",
					condition, strings.Join(fitness.Conditions(res.Summaries), ", "))
			}
			return writeOutput(cmd, out, func(w io.Writer) error {
				return output.WriteGeneSummaries(w, summaries)
			})
		},
	}
	keys := fitnessFlags(cmd)
	outputFlag(cmd, &out)
	cmd.Flags().StringVar(&condition, "condition", "", "only write this condition")
	cmd.Flags().StringVar(&fraction, "fraction", "", "only write this fraction")
	cmd.PreRunE = bindFlags(keys)
	return cmd
}

// filterSummaries keeps summaries matching the non-empty filters.
func filterSummaries(summaries []fitness.Summary, condition, fraction string) []fitness.Summary {
	if condition == "" && fraction == "" {
		return summaries
	}
	out := []fitness.Summary{}
	for _, s := range summaries {
		if condition != "" && s.Condition != condition {
			continue
		}
		if fraction != "" && s.Fraction != fraction {
			continue
		}
		out = append(out, s)
	}
	return out
}

func newEssentialCmd() *cobra.Command {
	var out string
	var essentialOnly bool
	cmd := &cobra.Command{
		Use:   "essential",
		Short: "Classify essential genes per substrate",
		Long: `Classify each gene per growth condition by its mean normalized fitness in an
independent steady-state experiment (e.g. 8 generations of growth), not the
density-fraction screen. A gene is essential when the mean is strictly below
the cutoff (default -2.5); genes with no valid values are never essential.`,
		Example: `  phbfit essential --essentiality-fitness fitness_8gen.tsv
  phbfit essential --essentiality-fitness fitness_8gen.tsv --cutoff -3 \
      --substrates fructose_NH4Cl,formate_NH4Cl --essential-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(func(c *pipeline.Config) {
				withoutMapping(c)
				withoutFitness(c)
				withoutRanking(c)
			})
			if err != nil {
				return err
			}
			if err := requireInputs("essentiality-fitness", cfg.Inputs.Essentiality); err != nil {
				return err
			}
			res, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			flags := res.Essentiality
			if essentialOnly {
				flags = []essential.Flag{}
				for _, f := range res.Essentiality {
					if f.Essential {
						flags = append(flags, f)
					}
				}
			}
			return writeOutput(cmd, out, func(w io.Writer) error {
				return output.WriteEssentiality(w, flags)
			})
		},
	}
	keys := essentialFlags(cmd)
	outputFlag(cmd, &out)
	cmd.Flags().BoolVar(&essentialOnly, "essential-only", false, "write only genes called essential")
	cmd.PreRunE = bindFlags(keys)
	return cmd
}

func newRankCmd() *cobra.Command {
	var out string
	var all bool
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank genes by combined fitness across two conditions",
		Long: `Combine each gene's fitness statistic in two conditions by summation and rank
the result. Depletion ranks the lowest combined scores first, enrichment the
highest. Genes missing from either condition are not ranked. The selection is
the top N genes, or every gene at or past --threshold when it is set.`,
		Example: `  phbfit rank --fitness fitness_gene.tsv --condition-a fructose_NH4Cl --condition-b formate_NH4Cl --fraction F3
  phbfit rank --fitness fitness_gene.tsv --condition-a fructose_NH4Cl --condition-b formate_NH4Cl \
      --direction enrichment --threshold 2 --exclude-essential --essentiality-fitness fitness_8gen.tsv
  phbfit rank --fitness fitness_gene.tsv --condition-a fructose_NH4Cl --condition-b formate_NH4Cl --sample 10 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(func(c *pipeline.Config) {
				withoutMapping(c)
				c.Network.Enabled = false
			})
			if err != nil {
				return err
			}
			if err := requireInputs("fitness", cfg.Inputs.Fitness,
				"condition-a", cfg.Ranking.ConditionA,
				"condition-b", cfg.Ranking.ConditionB); err != nil {
				return err
			}
			res, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			scores := res.Selected
			switch {
			case all:
				scores = res.Ranked
			case res.Sampled != nil:
				scores = res.Sampled
			}
			return writeOutput(cmd, out, func(w io.Writer) error {
				return output.WriteCombinedScores(w, cfg.Ranking.ConditionA, cfg.Ranking.ConditionB, scores)
			})
		},
	}
	keys := fitnessFlags(cmd)
	keys.merge(essentialFlags(cmd))
	keys.merge(rankingFlags(cmd))
	outputFlag(cmd, &out)
	cmd.Flags().BoolVar(&all, "all", false, "write every ranked gene instead of the selection")
	cmd.PreRunE = bindFlags(keys)
	return cmd
}
