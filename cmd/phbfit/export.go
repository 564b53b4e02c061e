package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/duckdb"
	"github.com/rbseq/phbfit/internal/export"
	"github.com/rbseq/phbfit/internal/pipeline"
	"github.com/rbseq/phbfit/internal/printer"
	"github.com/rbseq/phbfit/internal/sqlite"
)

func exportFlags(cmd *cobra.Command) flagKeys {
	f := cmd.Flags()
	f.String("export-format", "duckdb", "database format: duckdb or sqlite")
	f.String("db", "phbfit.duckdb", "database file")
	f.String("label", "", "label stored with the exported run")
	return flagKeys{
		"export-format": "export.format",
		"db":            "export.path",
		"label":         "export.label",
	}
}

func newExportCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export analysis tables to DuckDB or SQLite",
		Long: `Run the configured analysis and append its tables to a database under a new
run ID. Each export is a separate run; earlier runs are kept. The run ID is
printed on stdout.`,
		Example: `  phbfit export --config screen.yaml --db screen.duckdb --label "F3 fructose vs formate"
  phbfit export --config screen.yaml --export-format sqlite --db screen.sqlite
  phbfit export --db screen.duckdb --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return listRuns(cmd)
			}
			cfg, err := configure(nil)
			if err != nil {
				return err
			}
			if cfg.Inputs.Fitness == "" && cfg.Inputs.Pool == "" {
				return printer.UsageError("Nothing to export", "No fitness or pool inputs are configured.",
					[]string{"Pass --fitness, or --pool with --poolcount."})
			}
			res, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			run, err := exportResult(cmd.Context(), res, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.ID)
			return nil
		},
	}

	keys := mappingFlags(cmd)
	keys.merge(fitnessFlags(cmd))
	keys.merge(essentialFlags(cmd))
	keys.merge(rankingFlags(cmd))
	keys.merge(exportFlags(cmd))
	cmd.Flags().BoolVar(&list, "list", false, "list the runs stored in the database")
	cmd.PreRunE = bindFlags(keys)
	return cmd
}

// openStore opens the database selected by export.format and export.path.
func openStore() (export.Store, error) {
	path := viper.GetString("export.path")
	switch format := strings.ToLower(viper.GetString("export.format")); format {
	case "duckdb", "":
		return duckdb.Open(path)
	case "sqlite", "sqlite3":
		return sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown export format %q (want duckdb or sqlite)", format)
	}
}

func exportResult(ctx context.Context, res *pipeline.Result, cfg pipeline.Config) (export.Run, error) {
	store, err := openStore()
	if err != nil {
		return export.Run{}, printer.Error("Cannot open database", err.Error(), []string{
			"Check --export-format and --db.",
		})
	}
	defer store.Close()

	start := time.Now()
	run, err := store.WriteRun(ctx, res.ExportTables(viper.GetString("export.label"), cfg))
	if err != nil {
		return export.Run{}, printer.Error("Export failed", err.Error(), nil)
	}
	logger.Info("exported run",
		zap.String("run_id", run.ID),
		zap.String("path", viper.GetString("export.path")),
		zap.Int("summaries", len(res.Summaries)),
		zap.Int("scores", len(res.Ranked)),
		zap.Duration("elapsed", time.Since(start)))
	return run, nil
}

func listRuns(cmd *cobra.Command) error {
	store, err := openStore()
	if err != nil {
		return printer.Error("Cannot open database", err.Error(), nil)
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return printer.Error("Cannot list runs", err.Error(), nil)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "run_id\tcreated_at\tlabel")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Label)
	}
	return nil
}
