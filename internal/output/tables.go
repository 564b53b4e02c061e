package output

import (
	"io"

	"github.com/rbseq/phbfit/internal/barseq"
	"github.com/rbseq/phbfit/internal/essential"
	"github.com/rbseq/phbfit/internal/fitness"
	"github.com/rbseq/phbfit/internal/mapper"
	"github.com/rbseq/phbfit/internal/rank"
	"github.com/rbseq/phbfit/internal/stringdb"
)

// GeneSummaryWriter writes aggregated gene fitness.
type GeneSummaryWriter struct{ *TabWriter }

// NewGeneSummaryWriter creates a gene summary writer.
func NewGeneSummaryWriter(w io.Writer) *GeneSummaryWriter {
	return &GeneSummaryWriter{NewTabWriter(w,
		"locus_tag", "gene_name", "condition", "carbon_source", "nitrogen_source", "fraction",
		"n", "n_valid",
		"mean_fitness", "median_fitness", "mean_log2FC", "median_log2FC", "mean_t", "median_t",
		"strains_per_gene", "counts",
		"eggNOG_name", "COG_Process", "Pathway",
	)}
}

// Write writes one summary.
func (gw *GeneSummaryWriter) Write(s *fitness.Summary) error {
	return gw.WriteRow([]string{
		s.LocusTag, s.GeneName, s.Condition, orNA(s.Carbon), orNA(s.Nitrogen), orNA(s.Fraction),
		FormatInt(s.Replicates), FormatInt(s.Valid),
		FormatFloat(s.MeanFitness), FormatFloat(s.MedianFitness),
		FormatFloat(s.MeanLog2FC), FormatFloat(s.MedianLog2FC),
		FormatFloat(s.MeanT), FormatFloat(s.MedianT),
		FormatFloat(s.Strains), FormatFloat(s.Counts),
		orNA(s.EggNOGName), orNA(s.COGProcess), orNA(s.Pathway),
	})
}

// CombinedScoreWriter writes ranked combined scores. The two score columns
// are named after the conditions they came from.
type CombinedScoreWriter struct{ *TabWriter }

// NewCombinedScoreWriter creates a combined score writer.
func NewCombinedScoreWriter(w io.Writer, conditionA, conditionB string) *CombinedScoreWriter {
	if conditionA == "" {
		conditionA = "a"
	}
	if conditionB == "" {
		conditionB = "b"
	}
	return &CombinedScoreWriter{NewTabWriter(w,
		"rank", "locus_tag", "gene_name", "score_"+conditionA, "score_"+conditionB, "combined_score",
	)}
}

// Write writes one score.
func (cw *CombinedScoreWriter) Write(s *rank.Score) error {
	return cw.WriteRow([]string{
		FormatInt(s.Rank), s.LocusTag, s.GeneName,
		FormatFloat(s.ScoreA), FormatFloat(s.ScoreB), FormatFloat(s.Combined),
	})
}

// EssentialityWriter writes essentiality calls.
type EssentialityWriter struct{ *TabWriter }

// NewEssentialityWriter creates an essentiality writer.
func NewEssentialityWriter(w io.Writer) *EssentialityWriter {
	return &EssentialityWriter{NewTabWriter(w,
		"locus_tag", "substrate", "mean_normalized_fitness", "is_essential",
	)}
}

// Write writes one flag.
func (ew *EssentialityWriter) Write(f *essential.Flag) error {
	return ew.WriteRow([]string{
		f.LocusTag, f.Substrate, FormatFloat(f.MeanFitness), FormatBool(f.Essential),
	})
}

// MappedBarcodeWriter writes barcode observations joined to the pool.
type MappedBarcodeWriter struct{ *TabWriter }

// NewMappedBarcodeWriter creates a mapped barcode writer.
func NewMappedBarcodeWriter(w io.Writer) *MappedBarcodeWriter {
	return &MappedBarcodeWriter{NewTabWriter(w,
		"barcode", "sample", "count", "mapped", "scaffold", "strand", "pos", "locus_tag",
	)}
}

// Write writes one mapped barcode.
func (mw *MappedBarcodeWriter) Write(m *mapper.MappedBarcode) error {
	pos := "NA"
	if m.Mapped {
		pos = FormatInt(m.Pos)
	}
	return mw.WriteRow([]string{
		m.Barcode, m.Sample, FormatInt(m.Count), FormatBool(m.Mapped),
		orNA(m.Scaffold), orNA(m.Strand), pos, orNA(m.LocusTag),
	})
}

// DiversityWriter writes per-sample barcode diversity.
type DiversityWriter struct{ *TabWriter }

// NewDiversityWriter creates a diversity writer.
func NewDiversityWriter(w io.Writer) *DiversityWriter {
	return &DiversityWriter{NewTabWriter(w,
		"sample", "total_reads", "barcodes", "mapped_barcodes", "mapped_reads", "fraction_mapped", "shannon",
	)}
}

// Write writes one sample's diversity.
func (dw *DiversityWriter) Write(d *mapper.SampleDiversity) error {
	return dw.WriteRow([]string{
		d.Sample, FormatInt(d.TotalReads), FormatInt(d.Barcodes), FormatInt(d.MappedBarcodes),
		FormatInt(d.MappedReads), FormatFloat(d.FractionMapped()), FormatFloat(d.Shannon),
	})
}

// ColumnSumWriter writes per-sample read totals.
type ColumnSumWriter struct{ *TabWriter }

// NewColumnSumWriter creates a column sum writer.
func NewColumnSumWriter(w io.Writer) *ColumnSumWriter {
	return &ColumnSumWriter{NewTabWriter(w, "sample", "raw_reads", "mapped_reads", "fraction")}
}

// Write writes one column sum.
func (cw *ColumnSumWriter) Write(c *barseq.ColumnSum) error {
	return cw.WriteRow([]string{
		c.Sample, FormatInt(c.RawReads), FormatInt(c.MappedReads), FormatFloat(c.Fraction()),
	})
}

// GeneCountWriter writes per-gene read counts.
type GeneCountWriter struct{ *TabWriter }

// NewGeneCountWriter creates a gene count writer.
func NewGeneCountWriter(w io.Writer) *GeneCountWriter {
	return &GeneCountWriter{NewTabWriter(w, "locus_tag", "sample", "barcodes", "count")}
}

// Write writes one gene count.
func (gw *GeneCountWriter) Write(c *mapper.GeneCount) error {
	return gw.WriteRow([]string{c.LocusTag, c.Sample, FormatInt(c.Barcodes), FormatInt(c.Count)})
}

// InteractionWriter writes STRING network edges.
type InteractionWriter struct{ *TabWriter }

// NewInteractionWriter creates an interaction writer.
func NewInteractionWriter(w io.Writer) *InteractionWriter {
	return &InteractionWriter{NewTabWriter(w, "protein_a", "protein_b", "score")}
}

// Write writes one edge.
func (iw *InteractionWriter) Write(e *stringdb.Interaction) error {
	return iw.WriteRow([]string{e.ProteinA, e.ProteinB, FormatFloat(e.Score)})
}

// rowWriter is the shape shared by the table writers.
type rowWriter[T any] interface {
	WriteHeader() error
	Write(*T) error
	Flush() error
}

func writeAll[T any](w rowWriter[T], items []T) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for i := range items {
		if err := w.Write(&items[i]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WriteGeneSummaries writes a complete gene summary table.
func WriteGeneSummaries(w io.Writer, items []fitness.Summary) error {
	return writeAll[fitness.Summary](NewGeneSummaryWriter(w), items)
}

// WriteCombinedScores writes a complete combined score table.
func WriteCombinedScores(w io.Writer, conditionA, conditionB string, items []rank.Score) error {
	return writeAll[rank.Score](NewCombinedScoreWriter(w, conditionA, conditionB), items)
}

// WriteEssentiality writes a complete essentiality table.
func WriteEssentiality(w io.Writer, items []essential.Flag) error {
	return writeAll[essential.Flag](NewEssentialityWriter(w), items)
}

// WriteMappedBarcodes writes a complete mapped barcode table.
func WriteMappedBarcodes(w io.Writer, items []mapper.MappedBarcode) error {
	return writeAll[mapper.MappedBarcode](NewMappedBarcodeWriter(w), items)
}

// WriteDiversity writes a complete diversity table.
func WriteDiversity(w io.Writer, items []mapper.SampleDiversity) error {
	return writeAll[mapper.SampleDiversity](NewDiversityWriter(w), items)
}

// WriteColumnSums writes a complete column sum table.
func WriteColumnSums(w io.Writer, items []barseq.ColumnSum) error {
	return writeAll[barseq.ColumnSum](NewColumnSumWriter(w), items)
}

// WriteGeneCounts writes a complete gene count table.
func WriteGeneCounts(w io.Writer, items []mapper.GeneCount) error {
	return writeAll[mapper.GeneCount](NewGeneCountWriter(w), items)
}

// WriteInteractions writes a complete interaction table.
func WriteInteractions(w io.Writer, items []stringdb.Interaction) error {
	return writeAll[stringdb.Interaction](NewInteractionWriter(w), items)
}
