package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/rbseq/phbfit/internal/mapper"
	"github.com/rbseq/phbfit/internal/output"
	"github.com/rbseq/phbfit/internal/pipeline"
)

func newMapCmd() *cobra.Command {
	var (
		out          string
		unmappedOnly bool
		geneCounts   bool
	)
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Join barcode counts to the transposon pool",
		Long: `Join observed barcode counts to the pool. Every observation is kept; barcodes
absent from the pool are reported with mapped=FALSE and NA position fields.`,
		Example: `  phbfit map --pool pool.tsv --poolcount result.poolcount --genes genes.GC
  phbfit map --pool pool.tsv --codes F3_fru_1.codes --unmapped-only
  phbfit map --pool s3://bucket/pool.tsv --poolcount s3://bucket/result.poolcount --gene-counts -o gene_counts.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(func(c *pipeline.Config) {
				withoutFitness(c)
				c.Inputs.ColSums = ""
			})
			if err != nil {
				return err
			}
			if err := requireMapping(cfg.Inputs); err != nil {
				return err
			}
			res, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			return writeOutput(cmd, out, func(w io.Writer) error {
				switch {
				case geneCounts:
					return output.WriteGeneCounts(w, res.GeneCounts)
				case unmappedOnly:
					return output.WriteMappedBarcodes(w, mapper.Unmapped(res.Mapped))
				default:
					return output.WriteMappedBarcodes(w, res.Mapped)
				}
			})
		},
	}
	keys := mappingFlags(cmd)
	outputFlag(cmd, &out)
	cmd.Flags().BoolVar(&unmappedOnly, "unmapped-only", false, "write only observations absent from the pool")
	cmd.Flags().BoolVar(&geneCounts, "gene-counts", false, "write per-gene read counts instead of barcodes")
	cmd.MarkFlagsMutuallyExclusive("unmapped-only", "gene-counts")
	cmd.PreRunE = bindFlags(keys)
	return cmd
}

func newDiversityCmd() *cobra.Command {
	var out, colSumsOut string
	cmd := &cobra.Command{
		Use:   "diversity",
		Short: "Report per-sample barcode diversity and read totals",
		Long: `Report per-sample read totals, distinct barcodes, the mapped fraction and
Shannon diversity. With --colsums, the per-sample totals from a colsum table
are written as well.`,
		Example: `  phbfit diversity --pool pool.tsv --poolcount result.poolcount
  phbfit diversity --colsums result.colsum
  phbfit diversity --pool pool.tsv --poolcount result.poolcount --colsums result.colsum --colsums-output colsums.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(withoutFitness)
			if err != nil {
				return err
			}
			in := cfg.Inputs
			hasCounts := in.Pool != "" && (in.PoolCount != "" || in.Codes != "")
			if !hasCounts && in.ColSums == "" {
				return requireMapping(in)
			}
			res, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if !hasCounts {
				return writeOutput(cmd, out, func(w io.Writer) error {
					return output.WriteColumnSums(w, res.ColumnSums)
				})
			}
			if err := writeOutput(cmd, out, func(w io.Writer) error {
				return output.WriteDiversity(w, res.Diversity)
			}); err != nil {
				return err
			}
			if res.ColumnSums != nil && colSumsOut != "" {
				return writeOutput(cmd, colSumsOut, func(w io.Writer) error {
					return output.WriteColumnSums(w, res.ColumnSums)
				})
			}
			return nil
		},
	}
	keys := mappingFlags(cmd)
	cmd.Flags().String("colsums", "", "colsum table with raw and mapped reads per sample")
	keys["colsums"] = "inputs.colsums"
	outputFlag(cmd, &out)
	cmd.Flags().StringVar(&colSumsOut, "colsums-output", "", "file for the column sums table when diversity is also written")
	cmd.PreRunE = bindFlags(keys)
	return cmd
}

func requireMapping(in pipeline.Inputs) error {
	counts := in.PoolCount
	if counts == "" {
		counts = in.Codes
	}
	return requireInputs("pool", in.Pool, "poolcount", counts)
}
