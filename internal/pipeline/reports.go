package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rbseq/phbfit/internal/export"
	"github.com/rbseq/phbfit/internal/output"
)

// Report file names written by WriteReports.
const (
	FileMapped       = "mapped_barcodes.tsv"
	FileGeneCounts   = "gene_counts.tsv"
	FileDiversity    = "sample_diversity.tsv"
	FileColumnSums   = "column_sums.tsv"
	FileSummaries    = "gene_summary.tsv"
	FileEssentiality = "essentiality.tsv"
	FileRanked       = "combined_scores.tsv"
	FileSelected     = "selected_genes.tsv"
	FileSampled      = "sampled_genes.tsv"
	FileInteractions = "string_network.tsv"
)

// WriteReports writes every non-nil table of the result as a TSV file in
// dir and returns the paths written.
func (res *Result) WriteReports(dir string, cfg Config) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	condA, condB := cfg.Ranking.ConditionA, cfg.Ranking.ConditionB
	reports := []struct {
		name    string
		present bool
		write   func(io.Writer) error
	}{
		{FileMapped, res.Mapped != nil, func(w io.Writer) error { return output.WriteMappedBarcodes(w, res.Mapped) }},
		{FileGeneCounts, res.Mapped != nil, func(w io.Writer) error { return output.WriteGeneCounts(w, res.GeneCounts) }},
		{FileDiversity, res.Mapped != nil, func(w io.Writer) error { return output.WriteDiversity(w, res.Diversity) }},
		{FileColumnSums, res.ColumnSums != nil, func(w io.Writer) error { return output.WriteColumnSums(w, res.ColumnSums) }},
		{FileSummaries, res.Summaries != nil, func(w io.Writer) error { return output.WriteGeneSummaries(w, res.Summaries) }},
		{FileEssentiality, res.Essentiality != nil, func(w io.Writer) error { return output.WriteEssentiality(w, res.Essentiality) }},
		{FileRanked, res.Ranked != nil, func(w io.Writer) error { return output.WriteCombinedScores(w, condA, condB, res.Ranked) }},
		{FileSelected, res.Ranked != nil, func(w io.Writer) error { return output.WriteCombinedScores(w, condA, condB, res.Selected) }},
		{FileSampled, res.Sampled != nil, func(w io.Writer) error { return output.WriteCombinedScores(w, condA, condB, res.Sampled) }},
		{FileInteractions, res.Interactions != nil, func(w io.Writer) error { return output.WriteInteractions(w, res.Interactions) }},
	}

	var written []string
	for _, r := range reports {
		if !r.present {
			continue
		}
		path := filepath.Join(dir, r.name)
		if err := writeFile(path, r.write); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ExportTables collects the tables persisted by an export.
func (res *Result) ExportTables(label string, cfg Config) *export.Tables {
	return &export.Tables{
		Label:        label,
		ConditionA:   cfg.Ranking.ConditionA,
		ConditionB:   cfg.Ranking.ConditionB,
		Summaries:    res.Summaries,
		Scores:       res.Ranked,
		Essentiality: res.Essentiality,
		Diversity:    res.Diversity,
	}
}
