package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rbseq/phbfit/internal/printer"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage phbfit configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/.phbfit.yaml
unless --config names another file. Every key can also be set through an
environment variable: ranking.top_n is PHBFIT_RANKING_TOP_N.`,
		Example: `  phbfit config                                      # show effective config
  phbfit config set essentiality.cutoff -3            # stricter essentiality call
  phbfit config set ranking.condition_a fructose_NH4Cl
  phbfit config get string.taxon`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		if _, err := os.Stat(used); err == nil {
			fmt.Fprintf(w, "# Config file: %s\n", used)
		} else {
			fmt.Fprintf(w, "# No config file found, showing defaults. Config file: %s\n", used)
		}
	}

	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return printer.Error("Cannot show configuration", fmt.Sprintf("marshaling config: %v", err), nil)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	viper.Set(key, parseValue(value))

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return printer.Error("Cannot determine home directory", err.Error(),
				[]string{"Pass --config to choose the config file."})
		}
		cfgFile = filepath.Join(home, configName)
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return printer.Error("Cannot write configuration", fmt.Sprintf("writing config: %v", err), nil)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	val := viper.Get(key)
	if val == nil {
		return printer.UsageError(fmt.Sprintf("Key %q is not set", key), "",
			[]string{"Run 'phbfit config' to list keys."})
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}

// parseValue keeps booleans and numbers typed in the YAML file.
func parseValue(value string) any {
	switch value {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
