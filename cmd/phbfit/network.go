package main

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/input"
	"github.com/rbseq/phbfit/internal/output"
	"github.com/rbseq/phbfit/internal/printer"
	"github.com/rbseq/phbfit/internal/stringdb"
	"github.com/rbseq/phbfit/internal/table"
)

func newNetworkCmd() *cobra.Command {
	var out, idsFile string
	cmd := &cobra.Command{
		Use:   "network [locus_tag...]",
		Short: "Fetch the STRING interaction network for a gene list",
		Long: `Query the STRING network API for interactions among the given identifiers.
Identifiers come from the arguments or from --ids-file: one per line, or the
locus_tag column of a table written by 'phbfit rank'.`,
		Example: `  phbfit network H16_A0001 H16_A1437 H16_B0357
  phbfit network --ids-file selected_genes.tsv --required-score 700 -o network.tsv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(nil)
			if err != nil {
				return err
			}
			ids := append([]string(nil), args...)
			if idsFile != "" {
				fromFile, err := readIdentifiers(cmd.Context(), input.NewOpener(cfg.S3), idsFile)
				if err != nil {
					return printer.Error("Cannot read identifiers", err.Error(), nil)
				}
				ids = append(ids, fromFile...)
			}
			if len(ids) == 0 {
				return printer.UsageError("No identifiers given", "",
					[]string{"Pass locus tags as arguments or use --ids-file."})
			}

			nc := cfg.Network
			client := stringdb.NewClient(nc.BaseURL)
			client.SetLogger(logger)
			client.SetRequiredScore(nc.RequiredScore)
			if nc.Timeout > 0 {
				client.SetTimeout(nc.Timeout)
			}
			logger.Info("querying STRING", zap.Int("identifiers", len(ids)), zap.Int("taxon", nc.Taxon))
			edges, err := client.Network(cmd.Context(), ids, nc.Taxon)
			if err != nil {
				return printer.ErrorWithContext("STRING request failed", err.Error(),
					map[string]string{"url": nc.BaseURL, "identifiers": strconv.Itoa(len(ids))},
					[]string{"Check network access and --string-url.", "The request is not retried."})
			}
			return writeOutput(cmd, out, func(w io.Writer) error {
				return output.WriteInteractions(w, edges)
			})
		},
	}
	keys := networkFlags(cmd)
	outputFlag(cmd, &out)
	cmd.Flags().StringVar(&idsFile, "ids-file", "", "file of identifiers (local path or s3:// URI)")
	cmd.PreRunE = bindFlags(keys)
	return cmd
}

// readIdentifiers reads identifiers from a table with a locus_tag column,
// such as one written by 'phbfit rank', or from a header-less list with one
// identifier per line. Gzipped input is accepted.
func readIdentifiers(ctx context.Context, opener *input.Opener, path string) ([]string, error) {
	rc, err := opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tr, err := table.NewReader(rc)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	col := tr.Index("locus_tag")
	var ids []string
	if col < 0 {
		// No header: the first line is already an identifier.
		col = 0
		if id := tr.Header()[0]; !table.IsMissing(id) {
			ids = append(ids, id)
		}
	}
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return ids, nil
		}
		if id := strings.TrimSpace(row.Get(col)); !table.IsMissing(id) {
			ids = append(ids, id)
		}
	}
}
