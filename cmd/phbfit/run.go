package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/printer"
)

func newRunCmd() *cobra.Command {
	var export bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis and write every report",
		Long: `Run every step whose inputs are configured: barcode mapping, diversity,
fitness aggregation, essentiality, ranking, sampling and, with --string, the
STRING network of the selected genes. Each table is written as TSV to the
output directory. A STRING failure is reported but does not fail the run.`,
		Example: `  phbfit run --config screen.yaml
  phbfit run --pool pool.tsv --poolcount result.poolcount --fitness fitness_gene.tsv \
      --condition-a fructose_NH4Cl --condition-b formate_NH4Cl --fraction F3 --out results/
  phbfit run --config screen.yaml --string --export --export-format sqlite --db screen.sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(nil)
			if err != nil {
				return err
			}
			res, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			dir := viper.GetString("output.dir")
			paths, err := res.WriteReports(dir, cfg)
			if err != nil {
				return printer.Error("Cannot write reports", err.Error(), nil)
			}
			for _, p := range paths {
				printer.Success("%s\n", filepath.Base(p))
			}
			logger.Info("reports written", zap.String("dir", dir), zap.Int("files", len(paths)))

			if !export {
				return nil
			}
			run, err := exportResult(cmd.Context(), res, cfg)
			if err != nil {
				return err
			}
			printer.Success("exported run %s to %s\n", run.ID, viper.GetString("export.path"))
			return nil
		},
	}

	keys := mappingFlags(cmd)
	cmd.Flags().String("colsums", "", "colsum table with raw and mapped reads per sample")
	keys["colsums"] = "inputs.colsums"
	keys.merge(fitnessFlags(cmd))
	keys.merge(essentialFlags(cmd))
	keys.merge(rankingFlags(cmd))
	keys.merge(networkFlags(cmd))
	keys.merge(exportFlags(cmd))

	f := cmd.Flags()
	f.String("out", "phbfit-out", "output directory for TSV reports")
	f.Bool("string", false, "query STRING for the selected genes")
	f.BoolVar(&export, "export", false, "also export the tables to a database")
	keys["out"] = "output.dir"
	keys["string"] = "string.enabled"
	cmd.PreRunE = bindFlags(keys)
	return cmd
}
