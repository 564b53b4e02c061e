package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/printer"
)

const configName = ".phbfit.yaml"

// logger is built from log.level and log.format before any command runs.
var logger = zap.NewNop()

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "phbfit",
		Short: "Gene fitness analysis for PHB density-fraction RB-TnSeq screens",
		Long: `phbfit joins barcode counts to the transposon pool, aggregates replicate
gene fitness, classifies essential genes and ranks genes enriched or depleted
across two growth conditions. Tables are written as TSV and can be exported
to DuckDB or SQLite.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return printer.UsageError("Cannot read configuration", err.Error(),
					[]string{"Check the file passed with --config or ~/" + configName})
			}
			l, err := newLogger(viper.GetString("log.level"), viper.GetString("log.format"))
			if err != nil {
				return printer.UsageError("Invalid logging configuration", err.Error(), nil)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return printer.UsageError(err.Error(), "", []string{
			fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath()),
		})
	})

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/"+configName+")")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	mustBind("log.level", pf.Lookup("log-level"))
	mustBind("log.format", pf.Lookup("log-format"))

	root.AddCommand(
		newMapCmd(),
		newDiversityCmd(),
		newAggregateCmd(),
		newEssentialCmd(),
		newRankCmd(),
		newNetworkCmd(),
		newRunCmd(),
		newExportCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// initConfig reads the config file and environment. A missing default
// config file is not an error.
func initConfig(cfgFile string) error {
	setDefaults()
	viper.SetEnvPrefix("PHBFIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return viper.ReadInConfig()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, configName)
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", format)
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// mustBind binds a viper key to a flag. Flags are declared in this
// package, so a failure is a programming error.
func mustBind(key string, f *pflag.Flag) {
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// bindFlags returns a PreRunE binding the command's flags to viper keys.
// Binding happens only for the command being executed, so commands may
// share keys.
func bindFlags(keys map[string]string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		for flag, key := range keys {
			f := cmd.Flags().Lookup(flag)
			if f == nil {
				return fmt.Errorf("unknown flag %q bound to %s", flag, key)
			}
			mustBind(key, f)
		}
		return nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phbfit version %s (%s) built %s\n", version, commit, date)
		},
	}
}
